package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/goconnect-io/goconnect/internal/log"
	"github.com/goconnect-io/goconnect/pkg/account"
	"github.com/goconnect-io/goconnect/pkg/cli"
	"github.com/goconnect-io/goconnect/pkg/protocol"
)

func writeErr(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintf(os.Stderr, "\n")
}

const usage = `
 * Commands require an email and password, or a device token.
 * Run without a COMMAND to start an interactive shell.`

func Usage() {
	fmt.Printf("Usage: %s [OPTION...] COMMAND [ARG...]\n", os.Args[0])
	fmt.Printf("\nRun %s help COMMAND for more information. Valid COMMANDs are listed below.", os.Args[0])
	fmt.Println("")
	fmt.Println(usage)
	fmt.Println("")

	fmt.Printf("Available OPTIONs:\n")
	flag.PrintDefaults()
	fmt.Println("")
	fmt.Printf("Available COMMANDs:\n")
	maxLength := 0
	var labels []string
	for command := range commands {
		labels = append(labels, command)
		if len(command) > maxLength {
			maxLength = len(command)
		}
	}
	sort.Strings(labels)
	for _, command := range labels {
		info := commands[command]
		fmt.Printf("  %s%s %s\n", command, strings.Repeat(" ", maxLength-len(command)), info.help)
	}
}

func runCommand(acct *account.Account, args []string, timeout time.Duration) int {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := execute(ctx, acct, args, os.Stdout); err != nil {
		switch {
		case protocol.IsAuthentication(err):
			writeErr("Authentication failed: %s", err)
		case errors.Is(err, ErrCommandLineArgs):
			writeErr("%s", err)
		default:
			writeErr("Failed to execute command: %s", err)
		}
		return 1
	}
	return 0
}

func runInteractiveShell(acct *account.Account, timeout time.Duration) int {
	scanner := bufio.NewScanner(os.Stdin)
	for fmt.Printf("> "); scanner.Scan(); fmt.Printf("> ") {
		args, err := shlex.Split(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			return 0
		}
		if err != nil {
			writeErr("Invalid command: %s", err)
			continue
		}
		runCommand(acct, args, timeout)
	}
	if err := scanner.Err(); err != nil {
		writeErr("Error reading command: %s", err)
		return 1
	}
	return 0
}

func main() {
	status := 1
	defer func() {
		log.Sync()
		os.Exit(status)
	}()

	var commandTimeout time.Duration
	config, err := cli.NewConfig(cli.FlagCredentials | cli.FlagKeyring)
	if err != nil {
		writeErr("Failed to load credential configuration: %s", err)
		return
	}
	flag.Usage = Usage
	flag.DurationVar(&commandTimeout, "command-timeout", time.Minute, "Set timeout for each command, including retries.")

	config.RegisterCommandLineFlags()
	flag.Parse()
	if err := config.ReadFromEnvironment(); err != nil {
		writeErr("Invalid configuration: %s", err)
		return
	}
	if config.Verbose {
		log.SetLevel(log.LevelDebug)
	}

	args := flag.Args()
	if len(args) > 0 {
		if args[0] == "help" {
			if len(args) == 1 {
				Usage()
				status = 0
				return
			}
			info, ok := commands[args[1]]
			if !ok {
				writeErr("Unrecognized command: %s", args[1])
				return
			}
			info.Usage(os.Stdout, args[1])
			status = 0
			return
		}
		if _, ok := commands[args[0]]; !ok {
			writeErr("Unrecognized command: %s", args[0])
			return
		}
	}

	acct, err := config.Account(http.DefaultClient)
	if err != nil {
		writeErr("Error loading credentials: %s", err)
		return
	}

	if len(args) > 0 {
		status = runCommand(acct, args, commandTimeout)
	} else {
		status = runInteractiveShell(acct, commandTimeout)
	}
}
