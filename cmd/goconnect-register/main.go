// Utility for registering a device with the account and storing the device token

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/goconnect-io/goconnect/internal/log"
	"github.com/goconnect-io/goconnect/pkg/account"
	"github.com/goconnect-io/goconnect/pkg/cli"
)

func writeErr(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintf(os.Stderr, "\n")
}

const usageText = `
Registers this device with the account and saves the resulting device token in the system keyring,
prints a stored token, or deletes it.

Registration requires the account email and password. The password is read from
$GOCONNECT_PASSWORD or prompted for. Later logins use the device token and do not need the password.
The program will not overwrite an existing token unless invoked with -f.`

func cliUsage() {
	usage(flag.CommandLine.Output())
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "usage: %s [OPTION...] create|delete|export\n", filepath.Base(os.Args[0]))
	fmt.Fprintln(w, usageText)
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "OPTIONS:")
	flag.PrintDefaults()
}

func register(config *cli.Config, timeout time.Duration) (string, error) {
	if config.Email == "" {
		return "", cli.ErrNoCredentials
	}
	password, err := config.Password()
	if err != nil {
		return "", err
	}
	acct := account.New(config.Transport(http.DefaultClient), account.Credentials{
		Email:    config.Email,
		Password: password,
	})
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return acct.DeviceToken(ctx)
}

func main() {
	var (
		overwrite bool
		timeout   time.Duration
	)
	status := 1
	defer func() {
		log.Sync()
		os.Exit(status)
	}()

	config, err := cli.NewConfig(cli.FlagCredentials | cli.FlagKeyring)
	if err != nil {
		writeErr("Failed to load credential configuration: %s", err)
		return
	}
	config.RegisterCommandLineFlags()
	flag.Usage = cliUsage
	flag.BoolVar(&overwrite, "f", false, "Overwrite existing token if it exists")
	flag.DurationVar(&timeout, "timeout", time.Minute, "Timeout for registration")
	flag.Parse()
	if err := config.ReadFromEnvironment(); err != nil {
		writeErr("Invalid configuration: %s", err)
		return
	}
	if config.Verbose {
		log.SetLevel(log.LevelDebug)
	}

	if flag.NArg() != 1 {
		usage(os.Stderr)
		return
	}
	if config.KeyringTokenName == "" {
		writeErr("Must provide the keyring name of the token (-token-name)")
		return
	}

	switch flag.Arg(0) {
	case "create":
		if !overwrite {
			if _, err := config.LoadDeviceTokenFromKeyring(); err == nil {
				writeErr("Token '%s' already exists. Use -f to replace it.", config.KeyringTokenName)
				return
			} else if !errors.Is(err, cli.ErrKeyNotFound) {
				writeErr("Unable to read keyring: %s", err)
				return
			}
		}
		token, err := register(config, timeout)
		if err != nil {
			writeErr("Registration failed: %s", err)
			return
		}
		if err := config.SaveDeviceTokenToKeyring(token); err != nil {
			writeErr("%s", err)
			return
		}
		log.Info("Saved device token '%s'", config.KeyringTokenName)
	case "export":
		token, err := config.LoadDeviceTokenFromKeyring()
		if err != nil {
			writeErr("%s", err)
			return
		}
		fmt.Println(token)
	case "delete":
		if err := config.DeleteDeviceToken(); err != nil {
			writeErr("Failed to delete token: %s", err)
			return
		}
	default:
		usage(os.Stderr)
		return
	}
	status = 0
}
