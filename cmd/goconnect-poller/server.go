package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goconnect-io/goconnect/internal/log"
	"github.com/goconnect-io/goconnect/internal/metrics"
	"github.com/goconnect-io/goconnect/pkg/poller"
	"github.com/goconnect-io/goconnect/pkg/vehicle"
)

// Coordinator is the subset of *poller.Poller served over HTTP.
type Coordinator interface {
	Data() *vehicle.Aggregate
	Err() error
	LastSuccess() time.Time
	NeedsReauth() bool
	Refresh(ctx context.Context) (*vehicle.Aggregate, error)
}

// Response is the body of every reply that is not a snapshot.
type Response struct {
	Error       string     `json:"error,omitempty"`
	NeedsReauth bool       `json:"needs_reauth"`
	LastSuccess *time.Time `json:"last_success,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

type Server struct {
	coordinator Coordinator
	mux         *http.ServeMux
}

func NewServer(coordinator Coordinator) *Server {
	s := &Server{coordinator: coordinator, mux: http.NewServeMux()}
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/snapshot", s.handleSnapshot)
	s.mux.HandleFunc("/snapshot/", s.handleVehicle)
	s.mux.HandleFunc("/refresh", s.handleRefresh)
	s.mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	log.Debug("Received %s request for %s", req.Method, req.URL.Path)
	s.mux.ServeHTTP(w, req)
}

func writeJSON(w http.ResponseWriter, code int, value interface{}) {
	jsonBytes, err := json.Marshal(value)
	if err != nil {
		log.Error("Error serializing reply %+v: %s", value, err)
		code = http.StatusInternalServerError
		jsonBytes = []byte("{\"error\": \"internal server error\"}")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	jsonBytes = append(jsonBytes, '\n')
	w.Write(jsonBytes)
}

func writeJSONError(w http.ResponseWriter, code int, err error) {
	reply := Response{}
	if err == nil {
		reply.Error = http.StatusText(code)
	} else {
		reply.Error = err.Error()
	}
	writeJSON(w, code, &reply)
}

func (s *Server) status() Response {
	reply := Response{NeedsReauth: s.coordinator.NeedsReauth()}
	if last := s.coordinator.LastSuccess(); !last.IsZero() {
		reply.LastSuccess = &last
	}
	if err := s.coordinator.Err(); err != nil {
		reply.LastError = err.Error()
	}
	return reply
}

func (s *Server) handleStatus(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, nil)
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) snapshot(w http.ResponseWriter) *vehicle.Aggregate {
	data := s.coordinator.Data()
	if data == nil {
		reply := s.status()
		reply.Error = "no snapshot available yet"
		writeJSON(w, http.StatusServiceUnavailable, reply)
	}
	return data
}

func (s *Server) handleSnapshot(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, nil)
		return
	}
	if data := s.snapshot(w); data != nil {
		writeJSON(w, http.StatusOK, data)
	}
}

func (s *Server) handleVehicle(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, nil)
		return
	}
	id := strings.TrimPrefix(req.URL.Path, "/snapshot/")
	if id == "" || strings.Contains(id, "/") {
		writeJSONError(w, http.StatusNotFound, errors.New("expected vehicle id in path"))
		return
	}
	data := s.snapshot(w)
	if data == nil {
		return
	}
	record, ok := data.Find(id)
	if !ok {
		writeJSONError(w, http.StatusNotFound, errors.New("vehicle not found"))
		return
	}
	writeJSON(w, http.StatusOK, vehicle.Entry{Vehicle: record})
}

func (s *Server) handleRefresh(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, nil)
		return
	}
	data, err := s.coordinator.Refresh(req.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, data)
	case errors.Is(err, poller.ErrReauthRequired):
		writeJSONError(w, http.StatusUnauthorized, err)
	default:
		writeJSONError(w, http.StatusBadGateway, err)
	}
}

func isLocalAddr(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
