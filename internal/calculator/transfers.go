package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/tripsplit/internal/models"
)

// transferThreshold drops transfers smaller than half a cent (division noise).
var transferThreshold = decimal.New(5, -3)

// SuggestTransfers returns payments that clear the balances.
// Debtors and creditors are matched greedily, in the order of balances.
func SuggestTransfers(balances []MemberBalance) []models.Transfer {
	type party struct {
		name   string
		amount decimal.Decimal // always positive
	}

	// Create lists of creditors (owed money) and debtors (owe money)
	var creditors, debtors []party
	for _, b := range balances {
		switch {
		case b.Balance.IsPositive():
			creditors = append(creditors, party{b.Name, b.Balance})
		case b.Balance.IsNegative():
			debtors = append(debtors, party{b.Name, b.Balance.Neg()})
		}
	}

	var transfers []models.Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor, creditor := &debtors[i], &creditors[j]

		// Amount to settle is minimum of what debtor owes and creditor is owed
		amount := decimal.Min(debtor.amount, creditor.amount)
		if amount.GreaterThanOrEqual(transferThreshold) {
			transfers = append(transfers, models.Transfer{From: debtor.name, To: creditor.name, Amount: amount})
		}

		debtor.amount = debtor.amount.Sub(amount)
		creditor.amount = creditor.amount.Sub(amount)

		// Move to next debtor/creditor if fully settled
		if debtor.amount.LessThan(transferThreshold) {
			i++
		}
		if creditor.amount.LessThan(transferThreshold) {
			j++
		}
	}
	return transfers
}
