package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		want    Date
		wantErr bool
	}{
		{"25/12/2024", NewDate(2024, time.December, 25), false},
		{"01/01/2000", NewDate(2000, time.January, 1), false},
		{"29/02/2024", NewDate(2024, time.February, 29), false},
		{"29/02/2023", Date{}, true},
		{"2024-12-25", Date{}, true},
		{"1/1/2024", Date{}, true},
		{"32/01/2024", Date{}, true},
		{"", Date{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDateString(t *testing.T) {
	d := NewDate(2024, time.March, 5)
	if got := d.String(); got != "05/03/2024" {
		t.Errorf("String() = %q, want %q", got, "05/03/2024")
	}
	if got := (Date{}).String(); got != "" {
		t.Errorf("zero Date String() = %q, want empty", got)
	}
	if !d.Before(NewDate(2024, time.March, 6)) {
		t.Error("expected 05/03 before 06/03")
	}
}

func TestParseEnums(t *testing.T) {
	for _, c := range Concepts {
		got, err := ParseConcept(c.String())
		if err != nil || got != c {
			t.Errorf("ParseConcept(%q) = %q, %v", c, got, err)
		}
	}
	if _, err := ParseConcept("travel"); err == nil {
		t.Error("expected concepts to be case-sensitive")
	}

	for _, c := range Currencies {
		got, err := ParseCurrency(c.String())
		if err != nil || got != c {
			t.Errorf("ParseCurrency(%q) = %q, %v", c, got, err)
		}
		if c.Fraction() != 2 {
			t.Errorf("%s fraction = %d, want 2", c, c.Fraction())
		}
	}
	if _, err := ParseCurrency("JPY"); err == nil {
		t.Error("expected JPY to be unsupported")
	}
}

func TestExpenseEqual(t *testing.T) {
	a := Expense{
		Date:         NewDate(2024, time.May, 1),
		Name:         "Alice",
		Concept:      Meals,
		Cost:         decimal.RequireFromString("10.50"),
		Currency:     EUR,
		CostInBase:   decimal.RequireFromString("10.5"),
		BaseCurrency: EUR,
	}
	b := a
	b.Cost = decimal.RequireFromString("10.500")
	if !a.Equal(b) {
		t.Error("expected expenses with numerically equal costs to be equal")
	}
	b.Name = "Bob"
	if a.Equal(b) {
		t.Error("expected expenses with different names to differ")
	}
}
