// Package cli implements the tripsplit command line: one subcommand per ledger operation plus an
// interactive menu.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/mmynk/tripsplit/internal/config"
	"github.com/mmynk/tripsplit/internal/currency"
	"github.com/mmynk/tripsplit/internal/ledger"
	"github.com/mmynk/tripsplit/internal/render"
	"github.com/mmynk/tripsplit/internal/storage"
	"github.com/mmynk/tripsplit/internal/validate"
	"github.com/mmynk/tripsplit/pkg/logging"
)

// App carries what every subcommand shares: configuration and the terminal.
// It holds no trip: commands open the ledger they work on.
type App struct {
	Config config.Config

	in      *bufio.Scanner
	out     io.Writer
	errOut  io.Writer
	plain   bool
	verbose bool
}

// New returns an App reading answers from in and writing to out and errOut.
func New(cfg config.Config, in io.Reader, out, errOut io.Writer) *App {
	return &App{Config: cfg, in: bufio.NewScanner(in), out: out, errOut: errOut}
}

// SetFlags registers the global flags. They override the environment.
func (a *App) SetFlags(f *flag.FlagSet) {
	f.StringVar(&a.Config.Driver, "driver", a.Config.Driver, "Storage driver: sqlite or postgres.")
	f.StringVar(&a.Config.DBPath, "db", a.Config.DBPath, "Path to the SQLite database file.")
	f.StringVar(&a.Config.DatabaseURL, "dsn", a.Config.DatabaseURL, "PostgreSQL connection string.")
	f.BoolVar(&a.plain, "plain", false, "Print raw markdown instead of styled output.")
	f.BoolVar(&a.verbose, "v", false, "Verbose logging.")
}

// SetupLogging installs the logger: warnings only, unless -v or LOG_LEVEL ask for more.
func (a *App) SetupLogging() {
	level := slog.LevelWarn
	if os.Getenv("LOG_LEVEL") != "" {
		level = a.Config.LogLevel
	}
	if a.verbose {
		level = slog.LevelDebug
	}
	logging.SetupWithLevel(level)
}

// Register the subcommands.
func Register(c *subcommands.Commander, a *App) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&menuCmd{app: a}, "")

	c.Register(&tripsCmd{app: a}, "trips")
	c.Register(&newCmd{app: a}, "trips")
	c.Register(&dropCmd{app: a}, "trips")

	c.Register(&showCmd{app: a}, "entries")
	c.Register(&addCmd{app: a}, "entries")
	c.Register(&editCmd{app: a}, "entries")
	c.Register(&rmCmd{app: a}, "entries")

	c.Register(&settleCmd{app: a}, "reports")
	c.Register(&ratesCmd{app: a}, "reports")
}

// open opens the configured store and loads the exchange rates from it.
func (a *App) open(ctx context.Context) (storage.Store, *currency.Converter, error) {
	store, err := a.Config.OpenStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	table, err := currency.Load(ctx, store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, currency.NewConverter(table), nil
}

// print renders markdown to the terminal.
func (a *App) print(md string) {
	if err := render.Print(a.out, md, !a.plain); err != nil {
		slog.Warn("Styled output failed, printing raw markdown", "error", err)
		fmt.Fprint(a.out, md)
	}
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// fail reports err and returns the matching exit status.
func (a *App) fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(a.errOut, "Error: %s\n", describe(err))
	return subcommands.ExitFailure
}

// describe turns the errors users can cause into plain sentences.
func describe(err error) string {
	switch {
	case errors.Is(err, ledger.ErrTripNotFound):
		return "no such trip (see 'trips')"
	case errors.Is(err, ledger.ErrTripExists):
		return "a trip with that name already exists"
	case errors.Is(err, ledger.ErrPositionNotFound):
		return "no entry with that number (see 'show')"
	case errors.Is(err, currency.ErrRateNotFound):
		return fmt.Sprintf("exchange rate table is incomplete, nothing was written: %v", err)
	}
	return err.Error()
}

// readLine returns the next input line, and false at the end of input.
func (a *App) readLine() (string, bool) {
	if !a.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(a.in.Text()), true
}

// prompt asks for one answer. The end of input is answered with the cancel token.
func (a *App) prompt(question string) string {
	a.printf("%s: ", question)
	line, ok := a.readLine()
	if !ok {
		a.printf("\n")
		return validate.CancelToken
	}
	return line
}

// confirm asks a yes/no question; anything but y or yes is no.
func (a *App) confirm(question string) bool {
	answer := strings.ToLower(a.prompt(question + " [y/N]"))
	return answer == "y" || answer == "yes"
}

// usageError prints the command usage for a bad invocation.
func usageError(c subcommands.Command, errOut io.Writer, msg string) subcommands.ExitStatus {
	fmt.Fprintf(errOut, "%s\n\nUsage: %s", msg, c.Usage())
	return subcommands.ExitUsageError
}
