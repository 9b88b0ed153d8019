package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"

	"github.com/mmynk/tripsplit/internal/calculator"
	"github.com/mmynk/tripsplit/internal/ledger"
	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/render"
	"github.com/mmynk/tripsplit/internal/session"
	"github.com/mmynk/tripsplit/internal/validate"
)

// tripsCmd lists trips.
type tripsCmd struct{ app *App }

func (*tripsCmd) Name() string     { return "trips" }
func (*tripsCmd) Synopsis() string { return "list existing trips" }
func (*tripsCmd) Usage() string {
	return `tripsplit trips

  Lists every trip with its base currency, in creation order.
`
}
func (*tripsCmd) SetFlags(*flag.FlagSet) {}

func (c *tripsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	store, _, err := c.app.open(ctx)
	if err != nil {
		return c.app.fail(err)
	}
	defer store.Close()

	trips, err := ledger.ListTrips(ctx, store)
	if err != nil {
		return c.app.fail(err)
	}
	var b strings.Builder
	render.Trips(&b, trips)
	c.app.print(b.String())
	return subcommands.ExitSuccess
}

// newCmd creates a trip.
type newCmd struct {
	app      *App
	currency string
}

func (*newCmd) Name() string     { return "new" }
func (*newCmd) Synopsis() string { return "create a trip" }
func (*newCmd) Usage() string {
	return `tripsplit new [-currency <code>] <name>

  Creates an empty trip. The base currency cannot be changed later; without -currency it is asked for.
`
}

func (c *newCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "currency", "", "Base currency of the trip (EUR, GBP or USD).")
}

func (c *newCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	name := strings.Join(f.Args(), " ")
	if strings.TrimSpace(name) == "" {
		return usageError(c, c.app.errOut, "missing trip name")
	}

	var base models.Currency
	if c.currency != "" {
		var err error
		if base, err = models.ParseCurrency(strings.ToUpper(c.currency)); err != nil {
			return usageError(c, c.app.errOut, err.Error())
		}
	} else {
		var ok bool
		if base, ok = c.app.askCurrency(); !ok {
			c.app.printf("Cancelled.\n")
			return subcommands.ExitSuccess
		}
	}

	store, conv, err := c.app.open(ctx)
	if err != nil {
		return c.app.fail(err)
	}
	defer store.Close()

	l, err := ledger.CreateTrip(ctx, store, conv, name, base)
	if err != nil {
		return c.app.fail(err)
	}
	c.app.printf("Created trip %q in %s.\n", l.Trip().Name, l.Trip().BaseCurrency)
	return subcommands.ExitSuccess
}

// askCurrency prompts for a base currency until it validates, or the user cancels.
func (a *App) askCurrency() (models.Currency, bool) {
	for {
		a.print(menu("Base currency", models.Currencies))
		cur, err := validate.ParseCurrency(a.prompt("Currency number (C to cancel)"))
		if errors.Is(err, validate.ErrCancelled) {
			return "", false
		}
		if err != nil {
			a.printf("%s\n", err)
			continue
		}
		return cur, true
	}
}

// dropCmd deletes a trip.
type dropCmd struct {
	app *App
	yes bool
}

func (*dropCmd) Name() string     { return "drop" }
func (*dropCmd) Synopsis() string { return "delete a trip and all its entries" }
func (*dropCmd) Usage() string {
	return `tripsplit drop [-y] <trip>

  Deletes the trip and discards all of its entries, after confirmation.
`
}

func (c *dropCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "y", false, "Do not ask for confirmation.")
}

func (c *dropCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError(c, c.app.errOut, "expected exactly one trip name")
	}
	name := f.Arg(0)

	store, _, err := c.app.open(ctx)
	if err != nil {
		return c.app.fail(err)
	}
	defer store.Close()

	if !c.yes && !c.app.confirm(fmt.Sprintf("Delete trip %q and all its entries?", name)) {
		c.app.printf("Kept %q.\n", name)
		return subcommands.ExitSuccess
	}
	if err := ledger.DeleteTrip(ctx, store, name); err != nil {
		return c.app.fail(err)
	}
	c.app.printf("Deleted trip %q.\n", name)
	return subcommands.ExitSuccess
}

// showCmd prints the entries of a trip.
type showCmd struct{ app *App }

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "list the entries of a trip" }
func (*showCmd) Usage() string {
	return `tripsplit show <trip>

  Lists the entries of a trip, numbered from 1. The numbers address entries for 'edit' and 'rm'.
`
}
func (*showCmd) SetFlags(*flag.FlagSet) {}

func (c *showCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError(c, c.app.errOut, "expected exactly one trip name")
	}
	return c.app.withLedger(ctx, f.Arg(0), func(l *ledger.Ledger) error {
		c.app.showEntries(l)
		return nil
	})
}

func (a *App) showEntries(l *ledger.Ledger) {
	var b strings.Builder
	render.Entries(&b, l.Trip(), l.Entries())
	a.print(b.String())
}

// settleCmd prints the settlement of a trip.
type settleCmd struct{ app *App }

func (*settleCmd) Name() string     { return "settle" }
func (*settleCmd) Synopsis() string { return "compute who owes what" }
func (*settleCmd) Usage() string {
	return `tripsplit settle <trip>

  Prints what each contributor spent, the fair share, and their balance against an equal split.
  A positive balance is owed by the group; a negative balance is owed to the group.
`
}
func (*settleCmd) SetFlags(*flag.FlagSet) {}

func (c *settleCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError(c, c.app.errOut, "expected exactly one trip name")
	}
	return c.app.withLedger(ctx, f.Arg(0), func(l *ledger.Ledger) error {
		c.app.showSettlement(l)
		return nil
	})
}

func (a *App) showSettlement(l *ledger.Ledger) {
	report := calculator.Settle(l)
	var b strings.Builder
	render.Settlement(&b, l.Trip(), report, calculator.SuggestTransfers(report.Balances))
	a.print(b.String())
}

// ratesCmd prints the exchange rate table.
type ratesCmd struct{ app *App }

func (*ratesCmd) Name() string     { return "rates" }
func (*ratesCmd) Synopsis() string { return "show the exchange rate table" }
func (*ratesCmd) Usage() string {
	return `tripsplit rates

  Prints the static exchange rates used to convert costs to a trip's base currency.
`
}
func (*ratesCmd) SetFlags(*flag.FlagSet) {}

func (c *ratesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	store, conv, err := c.app.open(ctx)
	if err != nil {
		return c.app.fail(err)
	}
	defer store.Close()

	var b strings.Builder
	render.Rates(&b, conv)
	c.app.print(b.String())
	return subcommands.ExitSuccess
}

// addCmd appends an entry.
type addCmd struct{ app *App }

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "add an entry to a trip" }
func (*addCmd) Usage() string {
	return `tripsplit add <trip>

  Asks for the date, payer, concept, cost and currency of a new entry, then lets you review it.
  Enter C at any prompt to cancel without saving anything.
`
}
func (*addCmd) SetFlags(*flag.FlagSet) {}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError(c, c.app.errOut, "expected exactly one trip name")
	}
	return c.app.withLedger(ctx, f.Arg(0), func(l *ledger.Ledger) error {
		return c.app.addEntry(ctx, l)
	})
}

// editCmd changes an entry.
type editCmd struct{ app *App }

func (*editCmd) Name() string     { return "edit" }
func (*editCmd) Synopsis() string { return "change an entry of a trip" }
func (*editCmd) Usage() string {
	return `tripsplit edit <trip> <number>

  Shows the entry with that number (see 'show') and lets you change any field before saving.
  Enter C at any prompt to cancel without saving anything.
`
}
func (*editCmd) SetFlags(*flag.FlagSet) {}

func (c *editCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usageError(c, c.app.errOut, "expected a trip name and an entry number")
	}
	position, err := parsePosition(f.Arg(1))
	if err != nil {
		return usageError(c, c.app.errOut, err.Error())
	}
	return c.app.withLedger(ctx, f.Arg(0), func(l *ledger.Ledger) error {
		return c.app.editEntry(ctx, l, position)
	})
}

// rmCmd deletes an entry.
type rmCmd struct {
	app *App
	yes bool
}

func (*rmCmd) Name() string     { return "rm" }
func (*rmCmd) Synopsis() string { return "delete an entry of a trip" }
func (*rmCmd) Usage() string {
	return `tripsplit rm [-y] <trip> <number>

  Deletes the entry with that number (see 'show'). Later entries are renumbered.
`
}

func (c *rmCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "y", false, "Do not ask for confirmation.")
}

func (c *rmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usageError(c, c.app.errOut, "expected a trip name and an entry number")
	}
	position, err := parsePosition(f.Arg(1))
	if err != nil {
		return usageError(c, c.app.errOut, err.Error())
	}
	return c.app.withLedger(ctx, f.Arg(0), func(l *ledger.Ledger) error {
		return c.app.deleteEntry(ctx, l, position, c.yes)
	})
}

// parsePosition converts a 1-based entry number to a ledger position.
func parsePosition(arg string) (int, error) {
	n, err := validate.ParseInteger("entry number", arg)
	if err != nil {
		return 0, err
	}
	return n - 1, nil
}

// withLedger opens the store and the named trip, then runs fn.
func (a *App) withLedger(ctx context.Context, trip string, fn func(*ledger.Ledger) error) subcommands.ExitStatus {
	store, conv, err := a.open(ctx)
	if err != nil {
		return a.fail(err)
	}
	defer store.Close()

	l, err := ledger.Open(ctx, store, conv, trip)
	if err != nil {
		return a.fail(err)
	}
	if err := fn(l); err != nil {
		return a.fail(err)
	}
	return subcommands.ExitSuccess
}

func (a *App) addEntry(ctx context.Context, l *ledger.Ledger) error {
	position, err := a.runSession(ctx, session.New(l))
	if errors.Is(err, session.ErrAbandoned) {
		a.printf("Cancelled, nothing was saved.\n")
		return nil
	}
	if err != nil {
		return err
	}
	a.printf("Saved entry #%d.\n", position+1)
	return nil
}

func (a *App) editEntry(ctx context.Context, l *ledger.Ledger, position int) error {
	existing, err := l.At(position)
	if err != nil {
		return err
	}
	_, err = a.runSession(ctx, session.Edit(l, position, existing))
	if errors.Is(err, session.ErrAbandoned) {
		a.printf("Cancelled, entry #%d is unchanged.\n", position+1)
		return nil
	}
	if err != nil {
		return err
	}
	a.printf("Saved entry #%d.\n", position+1)
	return nil
}

func (a *App) deleteEntry(ctx context.Context, l *ledger.Ledger, position int, yes bool) error {
	e, err := l.At(position)
	if err != nil {
		return err
	}
	question := fmt.Sprintf("Delete entry #%d (%s, %s)?", position+1, e.Name, render.Amount(e.Cost, e.Currency))
	if !yes && !a.confirm(question) {
		a.printf("Kept entry #%d.\n", position+1)
		return nil
	}
	if err := l.Delete(ctx, position); err != nil {
		return err
	}
	a.printf("Deleted entry #%d. Later entries were renumbered.\n", position+1)
	return nil
}
