package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goconnect-io/goconnect/internal/log"
	"github.com/goconnect-io/goconnect/pkg/cli"
	"github.com/goconnect-io/goconnect/pkg/poller"
	"github.com/goconnect-io/goconnect/pkg/vehicle"
)

const defaultAddr = "localhost:9410"

const (
	EnvAddr  = "GOCONNECT_POLLER_ADDR"
	EnvPrint = "GOCONNECT_POLLER_PRINT"
)

const nonLocalhostWarning = `
Do not listen on a network interface without adding client authentication. Unauthorized clients can
read vehicle data and trigger refreshes, which may get your account rate limited.`

type PollerConfig struct {
	addr  string
	print bool
}

var (
	pollerConfig = &PollerConfig{}
)

func init() {
	flag.StringVar(&pollerConfig.addr, "metrics-addr", defaultAddr, "`Address` serving /metrics, /status, /snapshot and /refresh. Empty disables the server.")
	flag.BoolVar(&pollerConfig.print, "print", false, "Print each snapshot to stdout as JSON")
}

func Usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: %s [OPTION...]\n", os.Args[0])
	fmt.Fprintf(out, "\nPolls the GoConnect backend and serves the latest vehicle snapshot")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, nonLocalhostWarning)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Options:")
	flag.PrintDefaults()
}

// readFromEnvironment applies configuration from environment variables.
// Values are not overwritten.
func readFromEnvironment() {
	if pollerConfig.addr == defaultAddr {
		if addr, ok := os.LookupEnv(EnvAddr); ok {
			pollerConfig.addr = addr
		}
	}
	if !pollerConfig.print {
		if value, ok := os.LookupEnv(EnvPrint); ok {
			pollerConfig.print = value != "false" && value != "0"
		}
	}
}

func printSnapshot(data *vehicle.Aggregate, err error) {
	if err != nil {
		return
	}
	if jsonBytes, err := json.Marshal(data); err == nil {
		fmt.Println(string(jsonBytes))
	}
}

func main() {
	config, err := cli.NewConfig(cli.FlagAll)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load credential configuration: %s\n", err)
		os.Exit(1)
	}

	defer func() {
		log.Sync()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
	}()

	flag.Usage = Usage
	config.RegisterCommandLineFlags()
	flag.Parse()
	readFromEnvironment()
	if err = config.ReadFromEnvironment(); err != nil {
		return
	}
	if config.Verbose {
		log.SetLevel(log.LevelDebug)
	} else {
		log.SetLevel(log.LevelInfo)
	}

	acct, err := config.Account(http.DefaultClient)
	if err != nil {
		return
	}
	p, err := poller.New(acct, config.PollInterval)
	if err != nil {
		return
	}
	p.Subscribe(func(data *vehicle.Aggregate, err error) {
		if errors.Is(err, poller.ErrReauthRequired) {
			log.Error("Credentials rejected. Register the device again with goconnect-register.")
		}
	})
	if pollerConfig.print {
		p.Subscribe(printSnapshot)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var server *http.Server
	if pollerConfig.addr != "" {
		if !isLocalAddr(pollerConfig.addr) {
			fmt.Fprintln(os.Stderr, nonLocalhostWarning)
		}
		server = &http.Server{Addr: pollerConfig.addr, Handler: NewServer(p)}
		go func() {
			log.Info("Listening on %s", pollerConfig.addr)
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				log.Error("Server stopped: %s", err)
				stop()
			}
		}()
	}

	log.Info("Polling every %s", p.Interval())
	if err := p.Start(ctx); err != nil {
		log.Warning("Initial refresh failed: %s", err)
	}
	<-ctx.Done()
	log.Info("Shutting down")
	p.Stop()
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warning("Server shutdown: %s", err)
		}
	}
}
