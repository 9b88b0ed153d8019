package models

import "github.com/shopspring/decimal"

// Transfer represents a payment between contributors that clears (part of) their balances.
type Transfer struct {
	// From is the contributor who pays (negative balance).
	From string

	// To is the contributor who receives (positive balance).
	To string

	// Amount is in the trip's base currency.
	Amount decimal.Decimal
}
