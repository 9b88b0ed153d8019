package models

// Trip is a named set of shared expenses.
//
// The name is case-sensitive and unique among trips. BaseCurrency is chosen once, when the trip is
// created, and never changes: every expense of the trip is reported in it.
type Trip struct {
	Name         string
	BaseCurrency Currency
}
