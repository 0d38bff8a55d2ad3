package account

import (
	"context"
	"net/http"

	"github.com/goconnect-io/goconnect/internal/log"
	"github.com/goconnect-io/goconnect/internal/metrics"
	"github.com/goconnect-io/goconnect/pkg/protocol"
)

const (
	methodDeviceToken = "device_token"
	methodPassword    = "password"
)

// Login obtains a new bearer token.
//
// The device token is tried first. If the backend rejects it and an email and password are
// configured, Login falls back to a password login. Concurrent calls share a single login.
func (a *Account) Login(ctx context.Context) error {
	_, err, _ := a.logins.Do("login", func() (interface{}, error) {
		return nil, a.login(ctx)
	})
	return err
}

func (a *Account) login(ctx context.Context) error {
	if a.credentials.DeviceToken != "" {
		err := a.loginWithDeviceToken(ctx)
		if err == nil {
			return nil
		}
		if !protocol.IsAuthentication(err) || !a.credentials.HasPassword() {
			return err
		}
		log.Warning("Device token rejected, falling back to password login")
	}
	if a.credentials.HasPassword() {
		return a.loginWithPassword(ctx)
	}
	return protocol.NewError(protocol.KindAuthentication, "no credentials provided")
}

func (a *Account) loginWithDeviceToken(ctx context.Context) error {
	body := map[string]string{"deviceToken": a.credentials.DeviceToken}
	return a.loginWith(ctx, methodDeviceToken, DeviceTokenLoginURL, body)
}

func (a *Account) loginWithPassword(ctx context.Context) error {
	body := map[string]string{"email": a.credentials.Email, "password": a.credentials.Password}
	return a.loginWith(ctx, methodPassword, PasswordLoginURL, body)
}

func (a *Account) loginWith(ctx context.Context, method, url string, body interface{}) error {
	var reply map[string]interface{}
	if err := a.transport.Do(ctx, http.MethodPost, url, body, requestHeader(false, ""), &reply); err != nil {
		metrics.Logins.WithLabelValues(method, "error").Inc()
		return err
	}
	token, _ := reply["token"].(string)
	if token == "" {
		metrics.Logins.WithLabelValues(method, "missing_token").Inc()
		return protocol.NewError(protocol.KindAuthentication, "missing token in response")
	}
	metrics.Logins.WithLabelValues(method, "success").Inc()
	log.Debug("Logged in using %s", method)
	a.setToken(token)
	return nil
}
