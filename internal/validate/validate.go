// Package validate parses raw field input into typed values.
//
// Every parser returns either a value, a *Failure describing why the input was rejected, or
// ErrCancelled when the input is the cancel token. A Failure is recoverable: the caller asks for
// the same field again. ErrCancelled means the user wants to abandon the whole input request.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mmynk/tripsplit/internal/models"
)

// CancelToken is the input that abandons the current request (case-insensitive).
const CancelToken = "C"

// ErrCancelled is returned when the input is the cancel token. It is never a *Failure.
var ErrCancelled = errors.New("input cancelled")

// Reason tells why an input was rejected.
type Reason string

const (
	InvalidFormat Reason = "invalid format"
	OutOfRange    Reason = "out of range"
	NotANumber    Reason = "not a number"
	Empty         Reason = "empty"
)

// Failure is a field-level validation error.
type Failure struct {
	Field  string
	Reason Reason
	Input  string
	Detail string // optional, human readable hint
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("invalid %s %q: %s", f.Field, f.Input, f.Reason)
	if f.Detail != "" {
		msg += " (" + f.Detail + ")"
	}
	return msg
}

func fail(field string, reason Reason, input, detail string) *Failure {
	return &Failure{Field: field, Reason: reason, Input: input, Detail: detail}
}

// IsCancel reports whether text is the cancel token.
func IsCancel(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), CancelToken)
}

// ParseDate parses a dd/mm/yyyy calendar date.
func ParseDate(text string) (models.Date, error) {
	if IsCancel(text) {
		return models.Date{}, ErrCancelled
	}
	text = strings.TrimSpace(text)
	d, err := models.ParseDate(text)
	if err != nil {
		return models.Date{}, fail("date", InvalidFormat, text, "use dd/mm/yyyy")
	}
	return d, nil
}

// ParseInteger parses a base-10 integer.
func ParseInteger(field, text string) (int, error) {
	if IsCancel(text) {
		return 0, ErrCancelled
	}
	text = strings.TrimSpace(text)
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, fail(field, NotANumber, text, "")
	}
	return n, nil
}

// ParseEnum picks a value of universe by its 1-based index.
func ParseEnum[T any](field, text string, universe []T) (T, error) {
	var zero T
	n, err := ParseInteger(field, text)
	if err != nil {
		return zero, err
	}
	if n < 1 || n > len(universe) {
		return zero, fail(field, OutOfRange, strings.TrimSpace(text), fmt.Sprintf("choose 1 to %d", len(universe)))
	}
	return universe[n-1], nil
}

// ParseConcept picks a models.Concepts entry by its 1-based index.
func ParseConcept(text string) (models.Concept, error) {
	return ParseEnum("concept", text, models.Concepts)
}

// ParseCurrency picks a models.Currencies entry by its 1-based index.
func ParseCurrency(text string) (models.Currency, error) {
	return ParseEnum("currency", text, models.Currencies)
}

// costPattern accepts digits with at most one decimal separator, either '.' or ','.
var costPattern = regexp.MustCompile(`^(\d+([.,]\d*)?|[.,]\d+)$`)

// ParseCost parses a non-negative decimal amount.
func ParseCost(text string) (decimal.Decimal, error) {
	if IsCancel(text) {
		return decimal.Decimal{}, ErrCancelled
	}
	text = strings.TrimSpace(text)
	if !costPattern.MatchString(text) {
		return decimal.Decimal{}, fail("cost", NotANumber, text, "use a non-negative amount like 12.50")
	}
	normalized := strings.Replace(text, ",", ".", 1)
	if strings.HasSuffix(normalized, ".") {
		normalized += "0"
	}
	if strings.HasPrefix(normalized, ".") {
		normalized = "0" + normalized
	}
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Decimal{}, fail("cost", NotANumber, text, "")
	}
	return d, nil
}

// ParseName accepts any non-empty text and title-cases it.
func ParseName(text string) (string, error) {
	if IsCancel(text) {
		return "", ErrCancelled
	}
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "", fail("name", Empty, text, "")
	}
	return cases.Title(language.Und).String(text), nil
}
