package models

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Concept classifies what an expense was for.
type Concept string

const (
	Travel        Concept = "Travel"
	Meals         Concept = "Meals"
	Accommodation Concept = "Accommodation"
	Supermarket   Concept = "Supermarket"
	Shopping      Concept = "Shopping"
	Other         Concept = "Other"
)

// Concepts is the ordered universe of concepts, as offered to users.
var Concepts = []Concept{Travel, Meals, Accommodation, Supermarket, Shopping, Other}

func (c Concept) String() string { return string(c) }

// ParseConcept returns the Concept named s.
func ParseConcept(s string) (Concept, error) {
	for _, c := range Concepts {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown concept %q", s)
}

// Currency is an ISO 4217 code from the supported set.
type Currency string

const (
	EUR Currency = money.EUR
	GBP Currency = money.GBP
	USD Currency = money.USD
)

// Currencies is the ordered universe of supported currencies. Base currencies and expense
// currencies share it.
var Currencies = []Currency{EUR, GBP, USD}

func (c Currency) String() string { return string(c) }

// Fraction returns the number of minor-unit digits of the currency (2 for EUR).
func (c Currency) Fraction() int32 {
	if cur := money.GetCurrency(string(c)); cur != nil {
		return int32(cur.Fraction)
	}
	return 2
}

// ParseCurrency returns the supported Currency with code s.
func ParseCurrency(s string) (Currency, error) {
	for _, c := range Currencies {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unsupported currency %q", s)
}

// Expense is one ledger line of a Trip.
//
// CostInBase and BaseCurrency are derived: the ledger fills them in every time the expense is
// written, so that CostInBase = Cost * rate(Currency -> BaseCurrency).
type Expense struct {
	// Date is the day the expense was incurred.
	Date Date

	// Name is the contributor who paid, title-cased.
	Name string

	// Concept classifies the expense.
	Concept Concept

	// Cost is the non-negative amount paid, in Currency.
	Cost     decimal.Decimal
	Currency Currency

	// CostInBase is Cost converted to BaseCurrency, at full precision.
	CostInBase   decimal.Decimal
	BaseCurrency Currency
}

// Equal reports whether both expenses hold the same values.
func (e Expense) Equal(o Expense) bool {
	return e.Date == o.Date &&
		e.Name == o.Name &&
		e.Concept == o.Concept &&
		e.Cost.Equal(o.Cost) &&
		e.Currency == o.Currency &&
		e.CostInBase.Equal(o.CostInBase) &&
		e.BaseCurrency == o.BaseCurrency
}
