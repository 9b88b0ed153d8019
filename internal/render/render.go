// Package render turns trips, entries and settlements into markdown.
//
// Every function writes plain markdown; Print decides whether it goes to the terminal styled or raw.
package render

import (
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"

	"github.com/mmynk/tripsplit/internal/calculator"
	"github.com/mmynk/tripsplit/internal/currency"
	"github.com/mmynk/tripsplit/internal/models"
)

// WordWrap is the terminal width used when printing styled markdown.
const WordWrap = 100

// Amount formats d in cur, rounded to the currency minor unit (e.g. "$1,234.50").
func Amount(d decimal.Decimal, cur models.Currency) string {
	c := money.GetCurrency(cur.String())
	if c == nil {
		return d.StringFixed(calculator.DisplayPlaces) + " " + cur.String()
	}
	minor := d.Round(int32(c.Fraction)).Shift(int32(c.Fraction))
	return c.Formatter().Format(minor.IntPart())
}

// Trips writes the numbered list of trips.
func Trips(w io.Writer, trips []models.Trip) {
	fmt.Fprintln(w, "# Trips")
	fmt.Fprintln(w)
	if len(trips) == 0 {
		fmt.Fprintln(w, "No trips yet.")
		return
	}
	for i, t := range trips {
		fmt.Fprintf(w, "%d. **%s** (%s)\n", i+1, escape(t.Name), t.BaseCurrency)
	}
}

// Entries writes the entry table of a trip. Positions are shown 1-based.
func Entries(w io.Writer, trip models.Trip, entries iter.Seq2[int, models.Expense]) {
	fmt.Fprintf(w, "# %s\n\n", escape(trip.Name))

	n := 0
	for pos, e := range entries {
		if n == 0 {
			fmt.Fprintf(w, "| # | Date | Name | Concept | Cost | Cost in %s |\n", trip.BaseCurrency)
			fmt.Fprintln(w, "|--:|------|------|---------|-----:|-----:|")
		}
		n++
		fmt.Fprintf(w, "| %d | %s | %s | %s | %s | %s |\n",
			pos+1, e.Date, escape(e.Name), e.Concept, Amount(e.Cost, e.Currency), Amount(e.CostInBase, e.BaseCurrency))
	}
	if n == 0 {
		fmt.Fprintln(w, "No entries.")
	}
}

// Expense writes the fields of one expense as a numbered list, in prompt order.
// Fields for which isSet returns false show as "-".
func Expense(w io.Writer, e models.Expense, isSet func(label string) bool) {
	fields := []struct{ label, value string }{
		{"Date", e.Date.String()},
		{"Name", escape(e.Name)},
		{"Concept", e.Concept.String()},
		{"Cost", e.Cost.String()},
		{"Currency", e.Currency.String()},
	}
	for i, f := range fields {
		value := f.value
		if !isSet(f.label) {
			value = "-"
		}
		fmt.Fprintf(w, "%d. %s: %s\n", i+1, f.label, value)
	}
}

// Settlement writes the balance report of a trip and the suggested transfers.
func Settlement(w io.Writer, trip models.Trip, report calculator.Report, transfers []models.Transfer) {
	fmt.Fprintf(w, "# Settlement of %s\n\n", escape(trip.Name))
	if report.Empty() {
		fmt.Fprintln(w, "No entries.")
		return
	}
	cur := trip.BaseCurrency
	fmt.Fprintf(w, "Total spent: **%s**, fair share: **%s**\n\n", Amount(report.Total, cur), Amount(report.FairShare, cur))

	fmt.Fprintln(w, "| Name | Spent | Fair share | Balance |")
	fmt.Fprintln(w, "|------|------:|-----------:|--------:|")
	for _, b := range report.Balances {
		fmt.Fprintf(w, "| %s | %s | %s | %s |\n",
			escape(b.Name), Amount(b.Spent, cur), Amount(b.FairShare, cur), signed(b.Balance, cur))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "A positive balance is owed by the group; a negative balance is owed to the group.")

	if len(transfers) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "## Transfers")
	fmt.Fprintln(w)
	for _, t := range transfers {
		fmt.Fprintf(w, "- %s pays %s to %s\n", escape(t.From), Amount(t.Amount, cur), escape(t.To))
	}
}

// Rates writes the exchange-rate reference table.
func Rates(w io.Writer, conv *currency.Converter) {
	fmt.Fprintln(w, "# Exchange rates")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| From | To | Rate |")
	fmt.Fprintln(w, "|------|----|-----:|")
	for _, p := range conv.Pairs() {
		rate, _ := conv.Rate(p.From, p.To)
		fmt.Fprintf(w, "| %s | %s | %s |\n", p.From, p.To, rate)
	}
}

// Menu writes a numbered list of options under title.
func Menu(w io.Writer, title string, options []string) {
	fmt.Fprintf(w, "## %s\n\n", title)
	for i, o := range options {
		fmt.Fprintf(w, "%d. %s\n", i+1, o)
	}
}

// Print writes md to w, styled by glamour when styled is true.
func Print(w io.Writer, md string, styled bool) error {
	if !styled {
		_, err := io.WriteString(w, md)
		return err
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(WordWrap))
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

func signed(d decimal.Decimal, cur models.Currency) string {
	s := Amount(d, cur)
	if d.Round(int32(cur.Fraction())).IsPositive() {
		return "+" + s
	}
	return s
}

var escaper = strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`)

func escape(s string) string { return escaper.Replace(s) }
