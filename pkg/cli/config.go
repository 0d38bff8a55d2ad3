/*
Package cli facilitates building command-line applications that talk to the GoConnect backend. It
defines a [Config] type that can be used to register common command-line flags (using the Golang
flag package) and environment variable equivalents.

The package uses [keyring]'s platform-agnostic interface for storing device tokens in an
OS-dependent credential store.

# Examples

	import flag

	config, err := NewConfig(FlagAll)
	if err != nil {
		panic(err)
	}
	config.RegisterCommandLineFlags() // Adds command-line flags for credentials, keyring, etc.
	flag.Parse()
	config.ReadFromEnvironment()      // Fills in missing fields using environment variables

	acct, err := config.Account(http.DefaultClient)
	if err != nil {
		panic(err)
	}
	snapshot, err := acct.Snapshot(ctx)

A [Flag] mask controls what [Config] fields are populated. Note that config.Flags must be set before
calling [flag.Parse] or [Config.ReadFromEnvironment]:

	config, err = NewConfig(FlagCredentials | FlagKeyring) // No polling interval option.
*/
package cli

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/99designs/keyring"

	"github.com/goconnect-io/goconnect/internal/log"
	"github.com/goconnect-io/goconnect/pkg/account"
	"github.com/goconnect-io/goconnect/pkg/connector/inet"
	"github.com/goconnect-io/goconnect/pkg/poller"
)

// Environment variable names used are used by [Config.ReadFromEnvironment] to set common parameters.
const (
	EnvEmail           = "GOCONNECT_EMAIL"
	EnvPassword        = "GOCONNECT_PASSWORD"
	EnvDeviceToken     = "GOCONNECT_DEVICE_TOKEN"
	EnvDeviceTokenName = "GOCONNECT_DEVICE_TOKEN_NAME"
	EnvPollInterval    = "GOCONNECT_POLL_INTERVAL"
	EnvKeyringType     = "GOCONNECT_KEYRING_TYPE"
	EnvKeyringPass     = "GOCONNECT_KEYRING_PASSWORD"
	EnvKeyringPath     = "GOCONNECT_KEYRING_PATH"
	EnvKeyringDebug    = "GOCONNECT_KEYRING_DEBUG"
	EnvVerbose         = "GOCONNECT_VERBOSE"
)

// Flag controls what options should be scanned from the command line and/or environment variables.
type Flag int

func (f Flag) isSet(other Flag) bool {
	return (f & other) == other
}

const (
	FlagCredentials Flag = 1 // Enable email, password and device token options.
	FlagKeyring     Flag = 2 // Enable keyring options. Required for stored device tokens.
	FlagPolling     Flag = 4 // Enable polling interval option.
	FlagAll         Flag = FlagCredentials | FlagKeyring | FlagPolling
)

var (
	ErrNoCredentials = errors.New("no credentials provided (set an email or a device token)")
	ErrNoTokenName   = errors.New("device token name not provided")
	ErrKeyNotFound   = keyring.ErrKeyNotFound
)

// Config fields determine how a client authenticates to the GoConnect backend.
type Config struct {
	Flags            Flag   // Controls which set of environment variables/CLI flags to use.
	Email            string // Account email, used for password logins.
	DeviceToken      string // Device token issued by a previous registration.
	KeyringTokenName string // Username for device token in system keyring
	PollInterval     time.Duration
	Verbose          bool // Enable debug logging
	HTTPDebug        bool // Log sanitized request and response bodies
	Backend          keyring.Config
	BackendType      backendType
	Debug            bool // Enable keyring debug messages

	accountPassword *string
	keyringPassword *string
}

func NewConfig(flags Flag) (*Config, error) {
	c := Config{
		Flags: flags,
		Backend: keyring.Config{
			ServiceName:              keyringServiceName,
			KeychainTrustApplication: true,
			KeyCtlScope:              "user",
		},
	}
	c.BackendType = backendType{&c}
	c.Backend.KeychainPasswordFunc = c.getKeyringPassword
	c.Backend.FilePasswordFunc = c.getKeyringPassword

	return &c, nil
}

func (c *Config) RegisterCommandLineFlags() {
	flag.BoolVar(&c.Verbose, "debug", false, "Enable verbose debugging messages. Defaults to $GOCONNECT_VERBOSE.")
	flag.BoolVar(&c.HTTPDebug, "http-debug", false, "Log sanitized HTTP bodies. Defaults to $VWGC_HTTP_DEBUG.")
	if c.Flags.isSet(FlagCredentials) {
		flag.StringVar(&c.Email, "email", "", "Account `email`. Defaults to $GOCONNECT_EMAIL.")
		flag.StringVar(&c.KeyringTokenName, "token-name", "", "System keyring `name` for device token. Defaults to $GOCONNECT_DEVICE_TOKEN_NAME.")
	}
	if c.Flags.isSet(FlagPolling) {
		flag.DurationVar(&c.PollInterval, "interval", 0, fmt.Sprintf("Polling `interval` (%s to %s). Defaults to $GOCONNECT_POLL_INTERVAL or %s.",
			poller.MinInterval, poller.MaxInterval, poller.DefaultInterval))
	}
	if c.Flags.isSet(FlagKeyring) {
		var names []string
		for _, name := range keyring.AvailableBackends() {
			names = append(names, string(name))
		}
		sort.Strings(names)
		flag.Var(&c.BackendType, "keyring-type", "Keyring `type` ("+strings.Join(names, "|")+"). Defaults to $GOCONNECT_KEYRING_TYPE.")
		flag.StringVar(&c.Backend.FileDir, "keyring-file-dir", keyringDirectory, "keyring `directory` for file-backed keyring types")
		flag.BoolVar(&c.Debug, "keyring-debug", false, "Enable keyring debug logging")
	}
}

// ReadFromEnvironment populates c using environment variables. Values that are already populated
// are not overwritten.
//
// Calling ReadFromEnvironment after flag.Parse() (or other initialization method) will prevent the
// environment from overriding explicit command-line parameters and avoid potentially misleading
// debug log messages.
func (c *Config) ReadFromEnvironment() error {
	if !c.Verbose {
		c.Verbose = inet.DebugEnabled(os.Getenv(EnvVerbose))
	}
	if !c.HTTPDebug {
		c.HTTPDebug = inet.DebugEnabled(os.Getenv(inet.EnvHTTPDebug))
	}
	if c.Flags.isSet(FlagCredentials) {
		if c.Email == "" {
			c.Email = os.Getenv(EnvEmail)
			log.Debug("Set email to '%s'", c.Email)
		}
		if c.accountPassword == nil {
			if password, ok := os.LookupEnv(EnvPassword); ok {
				c.accountPassword = &password
				log.Debug("Set account password to %s", strings.Repeat("*", len("hunter2")))
			}
		}
		if c.DeviceToken == "" {
			c.DeviceToken = os.Getenv(EnvDeviceToken)
		}
		if c.KeyringTokenName == "" {
			c.KeyringTokenName = os.Getenv(EnvDeviceTokenName)
			log.Debug("Set device token name to '%s'", c.KeyringTokenName)
		}
	}
	if c.Flags.isSet(FlagPolling) && c.PollInterval == 0 {
		c.PollInterval = poller.DefaultInterval
		if value := os.Getenv(EnvPollInterval); value != "" {
			interval, err := parseInterval(value)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", EnvPollInterval, err)
			}
			c.PollInterval = interval
			log.Debug("Set polling interval to %s", c.PollInterval)
		}
	}
	if c.Flags.isSet(FlagKeyring) {
		if c.BackendType.String() == string(keyring.InvalidBackend) {
			if err := c.BackendType.Set(os.Getenv(EnvKeyringType)); err == nil {
				log.Debug("Set keyring type to '%s'", c.BackendType)
			}
		}
		if c.keyringPassword == nil {
			password := os.Getenv(EnvKeyringPass)
			c.keyringPassword = &password
			if len(password) > 0 {
				log.Debug("Set keyring File Password to %s", strings.Repeat("*", len("hunter2")))
			}
		}
		if c.Backend.FileDir == "" || c.Backend.FileDir == keyringDirectory {
			if path := os.Getenv(EnvKeyringPath); path != "" {
				c.Backend.FileDir = path
				log.Debug("Set keyring File Path to '%s'", c.Backend.FileDir)
			}
		}
		if !c.Debug {
			_, c.Debug = os.LookupEnv(EnvKeyringDebug)
			log.Debug("Set keyring Debug Logging to '%v'", c.Debug)
		}
		keyring.Debug = c.Debug
	}
	if c.PollInterval != 0 {
		return poller.ValidateInterval(c.PollInterval)
	}
	return nil
}

// parseInterval accepts either a Go duration ("90s") or a whole number of seconds ("90").
func parseInterval(value string) (time.Duration, error) {
	if d, err := time.ParseDuration(value); err == nil {
		return d, nil
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("expected a duration or a number of seconds, got %q", value)
	}
	return time.Duration(seconds) * time.Second, nil
}

// SetPassword sets the account password, overriding the environment.
func (c *Config) SetPassword(password string) {
	c.accountPassword = &password
}

// Password returns the account password, prompting on the terminal if none was configured.
func (c *Config) Password() (string, error) {
	if c.accountPassword != nil && *c.accountPassword != "" {
		return *c.accountPassword, nil
	}
	password, err := promptPassword(fmt.Sprintf("Password for %s", c.Email))
	if err != nil {
		return "", err
	}
	c.accountPassword = &password
	return password, nil
}

// Credentials returns the credentials described by c.
//
// A device token is taken from c.DeviceToken or, failing that, from the keyring entry named by
// c.KeyringTokenName. The account password is only prompted for when no device token is
// available.
func (c *Config) Credentials() (account.Credentials, error) {
	credentials := account.Credentials{Email: c.Email, DeviceToken: c.DeviceToken}
	if credentials.DeviceToken == "" && c.KeyringTokenName != "" && c.Flags.isSet(FlagKeyring) {
		token, err := c.LoadDeviceTokenFromKeyring()
		switch {
		case err == nil:
			credentials.DeviceToken = token
		case errors.Is(err, ErrKeyNotFound) && c.Email != "":
			log.Info("No device token named '%s' in keyring", c.KeyringTokenName)
		default:
			return credentials, err
		}
	}
	if c.Email != "" {
		if c.accountPassword != nil {
			credentials.Password = *c.accountPassword
		}
		if credentials.Password == "" && credentials.DeviceToken == "" {
			password, err := c.Password()
			if err != nil {
				return credentials, err
			}
			credentials.Password = password
		}
	}
	if credentials.DeviceToken == "" && !credentials.HasPassword() {
		return credentials, ErrNoCredentials
	}
	return credentials, nil
}

// Transport returns a transport that sends requests through client.
func (c *Config) Transport(client *http.Client) *inet.Transport {
	transport := inet.NewTransport(client)
	transport.Verbose = c.HTTPDebug
	return transport
}

// Account returns an account configured with c's credentials. The client is borrowed, not owned.
func (c *Config) Account(client *http.Client) (*account.Account, error) {
	credentials, err := c.Credentials()
	if err != nil {
		return nil, err
	}
	return account.New(c.Transport(client), credentials), nil
}
