package cli

import (
	"context"
	"errors"
	"flag"
	"strings"

	"github.com/google/subcommands"

	"github.com/mmynk/tripsplit/internal/currency"
	"github.com/mmynk/tripsplit/internal/ledger"
	"github.com/mmynk/tripsplit/internal/render"
	"github.com/mmynk/tripsplit/internal/storage"
	"github.com/mmynk/tripsplit/internal/validate"
)

var (
	welcomeOptions = []string{"Create new trip", "See existing trips"}
	tripOptions    = []string{"Add expense", "Edit expense", "Delete expense", "Show entries", "Settle", "Delete trip"}
)

// menuCmd runs the interactive menu.
type menuCmd struct{ app *App }

func (*menuCmd) Name() string     { return "menu" }
func (*menuCmd) Synopsis() string { return "interactive menu" }
func (*menuCmd) Usage() string {
	return `tripsplit menu

  Starts the interactive menu: create or pick a trip, then add, edit, delete and settle its entries.
  C goes back one menu; it quits from the welcome menu.
`
}
func (*menuCmd) SetFlags(*flag.FlagSet) {}

func (c *menuCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	store, conv, err := c.app.open(ctx)
	if err != nil {
		return c.app.fail(err)
	}
	defer store.Close()

	if err := c.app.welcome(ctx, store, conv); err != nil {
		return c.app.fail(err)
	}
	return subcommands.ExitSuccess
}

// choose prints a menu and returns the chosen 0-based option, or false on cancel.
func (a *App) choose(title string, options []string) (int, bool) {
	for {
		var b strings.Builder
		render.Menu(&b, title, options)
		a.print(b.String())
		n, err := validate.ParseEnum("choice", a.prompt("Choice (C to go back)"), indexes(len(options)))
		if errors.Is(err, validate.ErrCancelled) {
			return 0, false
		}
		if err != nil {
			a.printf("%s\n", err)
			continue
		}
		return n, true
	}
}

func indexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func (a *App) welcome(ctx context.Context, store storage.Store, conv *currency.Converter) error {
	for {
		choice, ok := a.choose("Welcome to tripsplit", welcomeOptions)
		if !ok {
			return nil
		}

		var l *ledger.Ledger
		var err error
		switch choice {
		case 0:
			l, err = a.createTrip(ctx, store, conv)
		case 1:
			l, err = a.pickTrip(ctx, store, conv)
		}
		// A missing rate ends trip creation, not the menu.
		if errors.Is(err, currency.ErrRateNotFound) {
			a.printf("%s\n", describe(err))
			continue
		}
		if err != nil {
			return err
		}
		if l == nil {
			continue
		}
		if err := a.tripMenu(ctx, store, l); err != nil {
			return err
		}
	}
}

// createTrip asks for a unique name and a base currency. It returns nil when the user cancels.
func (a *App) createTrip(ctx context.Context, store storage.Store, conv *currency.Converter) (*ledger.Ledger, error) {
	for {
		name := a.prompt("Trip name (C to cancel)")
		if validate.IsCancel(name) {
			return nil, nil
		}
		if name == "" {
			a.printf("The trip name cannot be empty.\n")
			continue
		}
		base, ok := a.askCurrency()
		if !ok {
			return nil, nil
		}
		l, err := ledger.CreateTrip(ctx, store, conv, name, base)
		if errors.Is(err, ledger.ErrTripExists) {
			a.printf("A trip named %q already exists, choose another name.\n", name)
			continue
		}
		if err != nil {
			return nil, err
		}
		a.printf("Created trip %q in %s.\n", name, base)
		return l, nil
	}
}

// pickTrip lists trips and opens the chosen one. It returns nil when there is none or the user cancels.
func (a *App) pickTrip(ctx context.Context, store storage.Store, conv *currency.Converter) (*ledger.Ledger, error) {
	trips, err := ledger.ListTrips(ctx, store)
	if err != nil {
		return nil, err
	}
	if len(trips) == 0 {
		a.printf("No trips yet.\n")
		return nil, nil
	}
	names := make([]string, len(trips))
	for i, t := range trips {
		names[i] = t.Name + " (" + t.BaseCurrency.String() + ")"
	}
	choice, ok := a.choose("Trips", names)
	if !ok {
		return nil, nil
	}
	return ledger.Open(ctx, store, conv, trips[choice].Name)
}

func (a *App) tripMenu(ctx context.Context, store storage.Store, l *ledger.Ledger) error {
	for {
		choice, ok := a.choose(l.Trip().Name, tripOptions)
		if !ok {
			return nil
		}
		// The store is the source of truth: re-read before every action.
		if err := l.Reload(ctx); err != nil {
			return err
		}

		var err error
		switch choice {
		case 0:
			err = a.addEntry(ctx, l)
		case 1:
			if position, ok := a.pickEntry(l); ok {
				err = a.editEntry(ctx, l, position)
			}
		case 2:
			if position, ok := a.pickEntry(l); ok {
				err = a.deleteEntry(ctx, l, position, false)
			}
		case 3:
			a.showEntries(l)
		case 4:
			a.showSettlement(l)
		case 5:
			if a.confirm("Delete trip " + l.Trip().Name + " and all its entries?") {
				if err := ledger.DeleteTrip(ctx, store, l.Trip().Name); err != nil {
					return err
				}
				a.printf("Deleted trip %q.\n", l.Trip().Name)
				return nil
			}
		}
		// Bad positions and missing rates end the action, not the menu.
		if errors.Is(err, ledger.ErrPositionNotFound) || errors.Is(err, currency.ErrRateNotFound) {
			a.printf("%s\n", describe(err))
			continue
		}
		if err != nil {
			return err
		}
	}
}

// pickEntry shows the entries and asks for a 1-based entry number.
func (a *App) pickEntry(l *ledger.Ledger) (int, bool) {
	if l.Len() == 0 {
		a.printf("No entries.\n")
		return 0, false
	}
	a.showEntries(l)
	for {
		position, err := validate.ParseEnum("entry number", a.prompt("Entry number (C to go back)"), indexes(l.Len()))
		if errors.Is(err, validate.ErrCancelled) {
			return 0, false
		}
		if err != nil {
			a.printf("%s\n", err)
			continue
		}
		return position, true
	}
}
