// Package models defines the core domain models for tripsplit.
//
// # Models
//
//   - Trip: a named ledger of shared expenses reported in one base currency
//   - Expense: a single ledger line paid by one contributor
//   - Date: a calendar day with no time component
//   - Transfer: a suggested payment that clears part of a settlement
//
// Contributors are identified by their (title-cased) name; there are no user accounts.
//
// # Design Principles
//
//  1. Amounts are decimal.Decimal, never floats. Rounding only happens when a value is displayed.
//  2. Enumerations (Concept, Currency) are ordered: the order is the one shown to users and the
//     1-based index they pick from.
//  3. Models carry no storage or presentation logic.
package models
