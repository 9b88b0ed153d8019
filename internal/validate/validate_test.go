package validate

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tripsplit/internal/models"
)

// reasonOf returns the failure reason of err, or "" if err is not a *Failure.
func reasonOf(err error) Reason {
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason
	}
	return ""
}

func TestCancelToken(t *testing.T) {
	parsers := map[string]func(string) error{
		"date":     func(s string) error { _, err := ParseDate(s); return err },
		"integer":  func(s string) error { _, err := ParseInteger("n", s); return err },
		"concept":  func(s string) error { _, err := ParseConcept(s); return err },
		"currency": func(s string) error { _, err := ParseCurrency(s); return err },
		"cost":     func(s string) error { _, err := ParseCost(s); return err },
		"name":     func(s string) error { _, err := ParseName(s); return err },
	}

	for name, parse := range parsers {
		for _, token := range []string{"c", "C", " c "} {
			err := parse(token)
			if !errors.Is(err, ErrCancelled) {
				t.Errorf("%s(%q) error = %v, want ErrCancelled", name, token, err)
			}
			var f *Failure
			if errors.As(err, &f) {
				t.Errorf("%s(%q) returned a Failure for the cancel token", name, token)
			}
		}
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate(" 14/07/2024 ")
	if err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}
	if got != models.NewDate(2024, time.July, 14) {
		t.Errorf("ParseDate = %v, want 14/07/2024", got)
	}

	for _, input := range []string{"2024-07-14", "14/7/2024", "31/04/2024", "today", ""} {
		_, err := ParseDate(input)
		if reasonOf(err) != InvalidFormat {
			t.Errorf("ParseDate(%q) error = %v, want InvalidFormat", input, err)
		}
	}
}

func TestParseEnum(t *testing.T) {
	universe := []string{"a", "b", "c"}

	tests := []struct {
		input      string
		want       string
		wantReason Reason
	}{
		{"1", "a", ""},
		{"3", "c", ""},
		{" 2 ", "b", ""},
		{"0", "", OutOfRange},
		{"4", "", OutOfRange},
		{"-1", "", OutOfRange},
		{"two", "", NotANumber},
		{"1.5", "", NotANumber},
		{"", "", NotANumber},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseEnum("letter", tt.input, universe)
			if tt.wantReason == "" {
				if err != nil {
					t.Fatalf("ParseEnum(%q) unexpected error: %v", tt.input, err)
				}
				if got != tt.want {
					t.Errorf("ParseEnum(%q) = %q, want %q", tt.input, got, tt.want)
				}
				return
			}
			if r := reasonOf(err); r != tt.wantReason {
				t.Errorf("ParseEnum(%q) reason = %q, want %q (err %v)", tt.input, r, tt.wantReason, err)
			}
		})
	}
}

func TestParseConceptAndCurrency(t *testing.T) {
	c, err := ParseConcept("2")
	if err != nil || c != models.Meals {
		t.Errorf("ParseConcept(2) = %q, %v; want Meals", c, err)
	}
	if _, err := ParseConcept("7"); reasonOf(err) != OutOfRange {
		t.Errorf("ParseConcept(7) error = %v, want OutOfRange", err)
	}

	cur, err := ParseCurrency("3")
	if err != nil || cur != models.USD {
		t.Errorf("ParseCurrency(3) = %q, %v; want USD", cur, err)
	}
	var f *Failure
	if _, err := ParseCurrency("EUR"); !errors.As(err, &f) || f.Field != "currency" || f.Reason != NotANumber {
		t.Errorf("ParseCurrency(EUR) error = %v, want currency NotANumber failure", err)
	}
}

func TestParseCost(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"100", "100", false},
		{"12.50", "12.5", false},
		{"12,50", "12.5", false},
		{"0", "0", false},
		{"0,01", "0.01", false},
		{"7.", "7", false},
		{",5", "0.5", false},
		{"-3", "", true},
		{"1.2.3", "", true},
		{"1,2.3", "", true},
		{"1e3", "", true},
		{"abc", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCost(tt.input)
			if tt.wantErr {
				if reasonOf(err) != NotANumber {
					t.Errorf("ParseCost(%q) error = %v, want NotANumber", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCost(%q) unexpected error: %v", tt.input, err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ParseCost(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseName(t *testing.T) {
	tests := map[string]string{
		"alice":          "Alice",
		"  bob   smith ": "Bob Smith",
		"CHARLIE":        "Charlie",
		"cc":             "Cc",
	}
	for input, want := range tests {
		got, err := ParseName(input)
		if err != nil {
			t.Errorf("ParseName(%q) unexpected error: %v", input, err)
			continue
		}
		if got != want {
			t.Errorf("ParseName(%q) = %q, want %q", input, got, want)
		}
	}

	if _, err := ParseName("   "); reasonOf(err) != Empty {
		t.Errorf("ParseName(blank) error = %v, want Empty", err)
	}
}

func TestFailureError(t *testing.T) {
	err := error(&Failure{Field: "cost", Reason: NotANumber, Input: "x", Detail: "hint"})
	if got, want := err.Error(), `invalid cost "x": not a number (hint)`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
