// Package calculator computes how far each contributor of a trip is from an equal split.
package calculator

import (
	"iter"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tripsplit/internal/models"
)

// DivisionPrecision is the number of fractional digits kept when dividing the total.
const DivisionPrecision = 16

// DisplayPlaces is the rounding applied when a report is presented.
const DisplayPlaces = 2

// Source is anything that yields the entries of a trip, such as a *ledger.Ledger.
type Source interface {
	Entries() iter.Seq2[int, models.Expense]
}

// MemberBalance is the settlement line of one contributor.
type MemberBalance struct {
	Name      string
	Spent     decimal.Decimal // sum of CostInBase paid by Name
	FairShare decimal.Decimal
	Balance   decimal.Decimal // Positive = owed money, Negative = owes money
}

// Rounded returns a copy with every amount rounded to places.
func (b MemberBalance) Rounded(places int32) MemberBalance {
	return MemberBalance{
		Name:      b.Name,
		Spent:     b.Spent.Round(places),
		FairShare: b.FairShare.Round(places),
		Balance:   b.Balance.Round(places),
	}
}

// Report is the outcome of Settle. Amounts are kept at full precision.
type Report struct {
	Total     decimal.Decimal
	FairShare decimal.Decimal
	// Balances are in order of first appearance of each name in the ledger.
	Balances []MemberBalance
}

// Empty reports whether the ledger had no entries.
func (r Report) Empty() bool { return len(r.Balances) == 0 }

// Rounded returns a copy with every amount rounded to places, for display.
func (r Report) Rounded(places int32) Report {
	out := Report{
		Total:     r.Total.Round(places),
		FairShare: r.FairShare.Round(places),
		Balances:  make([]MemberBalance, len(r.Balances)),
	}
	for i, b := range r.Balances {
		out.Balances[i] = b.Rounded(places)
	}
	return out
}

// Settle computes per-contributor totals and balances against an equal split.
//
// Algorithm:
// - Group entries by Name (case-sensitive) and sum CostInBase into spent[name]
// - fair_share = total / distinct names
// - balance = spent - fair_share
//
// Nothing is rounded here; see Report.Rounded.
func Settle(src Source) Report {
	spent := make(map[string]decimal.Decimal)
	var order []string
	for _, e := range src.Entries() {
		sum, seen := spent[e.Name]
		if !seen {
			order = append(order, e.Name)
		}
		spent[e.Name] = sum.Add(e.CostInBase)
	}
	if len(order) == 0 {
		return Report{}
	}

	total := decimal.Zero
	for _, name := range order {
		total = total.Add(spent[name])
	}
	fairShare := total.DivRound(decimal.NewFromInt(int64(len(order))), DivisionPrecision)

	report := Report{Total: total, FairShare: fairShare}
	for _, name := range order {
		report.Balances = append(report.Balances, MemberBalance{
			Name:      name,
			Spent:     spent[name],
			FairShare: fairShare,
			Balance:   spent[name].Sub(fairShare),
		})
	}
	return report
}
