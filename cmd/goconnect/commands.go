package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goconnect-io/goconnect/pkg/account"
	"github.com/goconnect-io/goconnect/pkg/protocol"
)

var (
	ErrCommandLineArgs = errors.New("invalid command line arguments")
	ErrUnknownCommand  = errors.New("unrecognized command")
	ErrVehicleNotFound = errors.New("vehicle not found")
)

type Argument struct {
	name string
	help string
}

// Handler returns a value that is printed as JSON. A nil value prints nothing.
type Handler func(ctx context.Context, acct *account.Account, args map[string]string) (interface{}, error)

type Command struct {
	help     string
	args     []Argument
	optional []Argument
	handler  Handler
}

var vehicleID = Argument{name: "ID", help: "Vehicle identifier, as listed by the vehicles command"}

var commands = map[string]*Command{
	"login": &Command{
		help: "Check that the configured credentials are accepted",
		handler: func(ctx context.Context, acct *account.Account, args map[string]string) (interface{}, error) {
			return nil, acct.Login(ctx)
		},
	},
	"vehicles": &Command{
		help: "List vehicles on the account",
		handler: func(ctx context.Context, acct *account.Account, args map[string]string) (interface{}, error) {
			return acct.Vehicles(ctx)
		},
	},
	"details": &Command{
		help: "Fetch the details screen of a vehicle",
		args: []Argument{vehicleID},
		handler: func(ctx context.Context, acct *account.Account, args map[string]string) (interface{}, error) {
			return acct.VehicleDetails(ctx, args["ID"])
		},
	},
	"overview": &Command{
		help: "Fetch the system overview of a vehicle",
		args: []Argument{vehicleID},
		handler: func(ctx context.Context, acct *account.Account, args map[string]string) (interface{}, error) {
			return acct.VehicleSystemOverview(ctx, args["ID"])
		},
	},
	"snapshot": &Command{
		help:     "Fetch and merge data for every vehicle, or for a single vehicle",
		optional: []Argument{vehicleID},
		handler: func(ctx context.Context, acct *account.Account, args map[string]string) (interface{}, error) {
			snapshot, err := acct.Snapshot(ctx)
			if err != nil {
				return nil, err
			}
			id, ok := args["ID"]
			if !ok {
				return snapshot, nil
			}
			record, found := snapshot.Find(id)
			if !found {
				return nil, fmt.Errorf("%w: %s", ErrVehicleNotFound, id)
			}
			return record, nil
		},
	},
}

func bindArguments(info *Command, args []string) (map[string]string, error) {
	if len(args) < len(info.args) || len(args) > len(info.args)+len(info.optional) {
		return nil, fmt.Errorf("%w: got %d (%d required, %d optional)", ErrCommandLineArgs, len(args), len(info.args), len(info.optional))
	}
	keywords := make(map[string]string)
	for i, argInfo := range info.args {
		keywords[argInfo.name] = args[i]
	}
	index := len(info.args)
	for _, argInfo := range info.optional {
		if index >= len(args) {
			break
		}
		keywords[argInfo.name] = args[index]
		index++
	}
	return keywords, nil
}

func execute(ctx context.Context, acct *account.Account, args []string, w io.Writer) error {
	if len(args) == 0 {
		return errors.New("missing COMMAND")
	}
	info, ok := commands[args[0]]
	if !ok {
		return ErrUnknownCommand
	}

	keywords, err := bindArguments(info, args[1:])
	if err != nil {
		info.Usage(w, args[0])
		return err
	}
	if acct == nil {
		return protocol.NewError(protocol.KindAuthentication, "no account configured")
	}
	result, err := info.handler(ctx, acct, keywords)
	if err != nil || result == nil {
		return err
	}
	return printJSON(w, result)
}

func printJSON(w io.Writer, value interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func (c *Command) Usage(w io.Writer, name string) {
	fmt.Fprintf(w, "Usage: %s", name)
	maxLength := 0
	for _, arg := range c.args {
		fmt.Fprintf(w, " %s", arg.name)
		if len(arg.name) > maxLength {
			maxLength = len(arg.name)
		}
	}
	if len(c.optional) > 0 {
		fmt.Fprintf(w, " [")
	}
	for _, arg := range c.optional {
		fmt.Fprintf(w, " %s", arg.name)
		if len(arg.name) > maxLength {
			maxLength = len(arg.name)
		}
	}
	if len(c.optional) > 0 {
		fmt.Fprintf(w, " ]")
	}
	fmt.Fprintf(w, "\n%s\n", c.help)
	maxLength++
	for _, arg := range append(c.args, c.optional...) {
		fmt.Fprintf(w, "    %s:%s%s\n", arg.name, strings.Repeat(" ", maxLength-len(arg.name)), arg.help)
	}
}
