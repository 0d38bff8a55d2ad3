package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/99designs/keyring"
	"golang.org/x/term"
)

const (
	keyringServiceName        = "io.goconnect.auth"
	keyringDeviceTokenService = "devicetoken"
	keyringDirectory          = "~/.goconnect_keys"
)

type backendType struct {
	config *Config
}

func (b backendType) String() string {
	if b.config == nil || len(b.config.Backend.AllowedBackends) == 0 {
		return string(keyring.InvalidBackend)
	}
	return string(b.config.Backend.AllowedBackends[0])
}

func (b backendType) Set(v string) error {
	value := keyring.BackendType(v)
	if b.config == nil {
		return fmt.Errorf("invalid backendType")
	}
	if v == "" {
		return nil
	}
	for _, name := range keyring.AvailableBackends() {
		if name == value {
			b.config.Backend.AllowedBackends = []keyring.BackendType{name}
			return nil
		}
	}
	return fmt.Errorf("unsupported credential storage")
}

// promptPassword reads a password from the terminal without echoing it.
func promptPassword(prompt string) (string, error) {
	var w io.Writer
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		fd = int(os.Stderr.Fd())
		if !term.IsTerminal(fd) {
			return "", fmt.Errorf("no terminal output available for password prompt")
		} else {
			w = os.Stderr
		}
	} else {
		w = os.Stdout
	}

	fmt.Fprintf(w, "%s: ", prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	fmt.Fprintln(w)
	return string(b), nil
}

func (c *Config) getKeyringPassword(prompt string) (string, error) {
	if c.keyringPassword != nil && *c.keyringPassword != "" {
		return *c.keyringPassword, nil
	}
	password, err := promptPassword(prompt)
	if err != nil {
		return "", err
	}
	c.keyringPassword = &password
	return password, nil
}

func (c *Config) openKeyring() (keyring.Keyring, error) {
	return keyring.Open(c.Backend)
}

func (c *Config) fullTokenName() string {
	return keyringDeviceTokenService + "." + c.KeyringTokenName
}

// LoadDeviceTokenFromKeyring loads a device token from the system keyring.
//
// The name must match the value provided to SaveDeviceTokenToKeyring.
func (c *Config) LoadDeviceTokenFromKeyring() (string, error) {
	if c.KeyringTokenName == "" {
		return "", ErrNoTokenName
	}
	kr, err := c.openKeyring()
	if err != nil {
		return "", err
	}

	item, err := kr.Get(c.fullTokenName())
	if err != nil {
		return "", fmt.Errorf("could not load device token: %w", err)
	}
	return string(item.Data), nil
}

// SaveDeviceTokenToKeyring writes a device token to the system keyring.
//
// c.KeyringTokenName identifies the token for future use with LoadDeviceTokenFromKeyring and does
// not need to match the account email.
func (c *Config) SaveDeviceTokenToKeyring(token string) error {
	if c.KeyringTokenName == "" {
		return ErrNoTokenName
	}
	kr, err := c.openKeyring()
	if err != nil {
		return err
	}

	if err := kr.Set(keyring.Item{
		Key:   c.fullTokenName(),
		Data:  []byte(token),
		Label: "GoConnect device token",
	}); err != nil {
		return fmt.Errorf("failed to enroll device token in keyring: %w", err)
	}
	return nil
}

// DeleteDeviceToken removes the device token from the system keyring.
func (c *Config) DeleteDeviceToken() error {
	if c.KeyringTokenName == "" {
		return ErrNoTokenName
	}
	kr, err := c.openKeyring()
	if err != nil {
		return err
	}
	return kr.Remove(c.fullTokenName())
}
