// Package account authenticates against the GoConnect backend and queries the vehicles visible to
// the user.
//
// An [Account] logs in lazily. Every query made with an Account transparently logs in again and
// retries once if the backend rejects the current bearer token.
package account

import (
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
	"k8s.io/utils/clock"

	"github.com/goconnect-io/goconnect/internal/log"
	"github.com/goconnect-io/goconnect/pkg/connector"
)

const (
	AuthBaseURL = "https://auth-api.au1.connectedcars.io"
	APIURL      = "https://api.au1.connectedcars.io/graphql"

	PasswordLoginURL    = AuthBaseURL + "/auth/login/email/password"
	DeviceTokenLoginURL = AuthBaseURL + "/auth/login/deviceToken?expiresIn=3600"
	RegisterDeviceURL   = AuthBaseURL + "/user/registerDevice"

	UserAgent             = "okhttp/4.12.0"
	OrganizationNamespace = "vwaustralia:app"
	AppVersion            = "1.79.12"

	// DeviceName is reported to the backend when registering a device.
	DeviceName = "Home-Assistant"
)

// Credentials hold the secrets used to obtain a bearer token. At least one of DeviceToken or the
// Email and Password pair must be set.
type Credentials struct {
	Email       string
	Password    string
	DeviceToken string
}

// HasPassword returns true if both Email and Password are set.
func (c Credentials) HasPassword() bool {
	return c.Email != "" && c.Password != ""
}

// Account allows interaction with a GoConnect account.
type Account struct {
	transport   connector.Requester
	credentials Credentials
	clock       clock.PassiveClock

	mu     sync.Mutex
	token  string
	logins singleflight.Group
}

type Option func(*Account)

// WithClock replaces the clock used to detect expired tokens.
func WithClock(c clock.PassiveClock) Option {
	return func(a *Account) {
		a.clock = c
	}
}

// New returns an [Account] that sends requests through transport. No network traffic is generated
// until the first query.
func New(transport connector.Requester, credentials Credentials, options ...Option) *Account {
	a := &Account{
		transport:   transport,
		credentials: credentials,
		clock:       clock.RealClock{},
	}
	for _, option := range options {
		option(a)
	}
	return a
}

// HasToken returns true if the account holds a bearer token that has not expired.
func (a *Account) HasToken() bool {
	return a.currentToken() != ""
}

func (a *Account) currentToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.token != "" && tokenExpired(a.token, a.clock.Now()) {
		log.Debug("Bearer token expired")
		a.token = ""
	}
	return a.token
}

func (a *Account) setToken(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = token
}

// clearToken discards stale unless another request already replaced it.
func (a *Account) clearToken(stale string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.token == stale {
		a.token = ""
	}
}

// tokenExpired returns true if token is a JWT whose exp claim is not after now. Tokens are opaque
// to the client, so anything that does not parse is assumed to be valid.
func tokenExpired(token string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time)
}

// requestHeader returns the headers sent with every request. Authenticated requests also carry the
// app version and the bearer token.
func requestHeader(authenticated bool, token string) http.Header {
	header := http.Header{}
	header.Set("User-Agent", UserAgent)
	header.Set("X-Organization-Namespace", OrganizationNamespace)
	if authenticated {
		header.Set("X-App-Version", AppVersion)
		header.Set("Authorization", "Bearer "+token)
	}
	return header
}
