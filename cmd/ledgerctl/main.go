/*
main.go - Command-line client for the shop ledger

PURPOSE:
  Everything the counter menu offers, as subcommands over the same
  ledger file the server uses.

USAGE:
  ledgerctl [-config f] [-data path] [-backend json|sqlite] <command> [args]

COMMANDS:
  add [-date D] [-note N] [-return] QTY PRICE [QTY PRICE ...]
  return [-date D] [-note N] SALE_ID QTY PRICE [QTY PRICE ...]
  show ID                    transaction, linked returns, returnable
  list [-sort date_desc]     every transaction
  today                      today's summary and transactions
  range FROM TO              range summary and daily breakdown
  month YYYY-MM              month summary and daily breakdown
  delete ID                  delete and renumber
  edit ID [-note N] [QTY PRICE ...]
  export [-format csv|xlsx|pdf] [-o FILE] [-from D -to D]
  import [-date-col N] [-qty-col N] [-price-col N] [-note-col N] FILE
  receipt [-style compact|standard|html] ID
  check                      report broken return links (exit 1 if any)

SEE ALSO:
  - app/app.go: Dependency wiring
  - cmd/server/main.go: HTTP server
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/warp/textile-ledger/app"
	"github.com/warp/textile-ledger/config"
	"github.com/warp/textile-ledger/logging"
)

// errUsage marks a command-line mistake; run prints usage and exits 2.
var errUsage = errors.New("usage")

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, c *cli, args []string) error
}

// cli is the state shared by every command.
type cli struct {
	app *app.App
	out io.Writer
	err io.Writer
}

var commands = []command{
	{"add", "add [-date D] [-note N] [-return] QTY PRICE [QTY PRICE ...]", cmdAdd},
	{"return", "return [-date D] [-note N] SALE_ID QTY PRICE [QTY PRICE ...]", cmdReturn},
	{"show", "show ID", cmdShow},
	{"list", "list [-sort id|date_desc]", cmdList},
	{"today", "today", cmdToday},
	{"range", "range FROM TO", cmdRange},
	{"month", "month YYYY-MM", cmdMonth},
	{"delete", "delete ID", cmdDelete},
	{"edit", "edit ID [-note N] [QTY PRICE ...]", cmdEdit},
	{"export", "export [-format csv|xlsx|pdf] [-o FILE] [-from D -to D]", cmdExport},
	{"import", "import [-date-col N] [-qty-col N] [-price-col N] [-note-col N] FILE", cmdImport},
	{"receipt", "receipt [-style compact|standard|html] ID", cmdReceipt},
	{"check", "check", cmdCheck},
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: ledgerctl [-config FILE] [-data PATH] [-backend json|sqlite|memory] <command> [args]")
	fmt.Fprintln(w)
	for _, c := range commands {
		fmt.Fprintf(w, "  %s\n", c.usage)
	}
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("ledgerctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { usage(stderr) }
	configPath := global.String("config", "", "configuration file")
	dataPath := global.String("data", "", "ledger path")
	backend := global.String("backend", "", "ledger backend")
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		usage(stderr)
		return 2
	}

	name := global.Arg(0)
	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		fmt.Fprintf(stderr, "unknown command %q\n\n", name)
		usage(stderr)
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if *dataPath != "" {
		cfg.Ledger.Path = config.ExpandHome(*dataPath)
	}
	if *backend != "" {
		cfg.UseBackend(*backend)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	// Only warnings reach the terminal; stdout is for results.
	level := cfg.Log.Level
	if level == "info" {
		level = "warn"
	}
	logger, err := logging.New(level, cfg.Log.Format, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer a.Close()

	err = cmd.run(ctx, &cli{app: a, out: stdout, err: stderr}, global.Args()[1:])
	switch {
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "%v\nusage: ledgerctl %s\n", err, cmd.usage)
		return 2
	case errors.Is(err, errCheckFailed):
		return 1
	case err != nil:
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return 1
	}
	return 0
}
