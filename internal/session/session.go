// Package session stages the fields of a new or existing expense and commits them to a ledger
// exactly once, or not at all.
//
// A session starts Collecting. Each Set validates one raw field value and, on success, writes it
// into a staging copy that the ledger never sees. Confirm hands the staging copy to the ledger
// (one Append or one Overwrite) and ends in Committed. The cancel token on any field, or Cancel,
// ends in Abandoned without touching the ledger.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/validate"
)

var (
	// ErrAbandoned is returned when the user cancels the session.
	ErrAbandoned = errors.New("session abandoned")

	// ErrClosed is returned for any call after the session ended.
	ErrClosed = errors.New("session closed")

	// ErrIncomplete is returned by Confirm while fields are missing.
	ErrIncomplete = errors.New("session incomplete")
)

// State of an EditSession.
type State int

const (
	Collecting State = iota
	Committed
	Abandoned
)

func (s State) String() string {
	switch s {
	case Collecting:
		return "collecting"
	case Committed:
		return "committed"
	case Abandoned:
		return "abandoned"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Field is one user-editable field of an expense.
type Field int

const (
	Date Field = iota
	Name
	Concept
	Cost
	Currency
)

// Fields is the prompt order. It is also the 1-based numbering offered when reviewing.
var Fields = []Field{Date, Name, Concept, Cost, Currency}

func (f Field) String() string {
	switch f {
	case Date:
		return "Date"
	case Name:
		return "Name"
	case Concept:
		return "Concept"
	case Cost:
		return "Cost"
	case Currency:
		return "Currency"
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

// Committer is the part of a ledger a session writes to.
type Committer interface {
	Append(ctx context.Context, rec models.Expense) (int, error)
	Overwrite(ctx context.Context, position int, rec models.Expense) error
}

// EditSession is the state machine for one expense.
type EditSession struct {
	ledger   Committer
	isNew    bool
	position int // -1 for a new expense
	staged   models.Expense
	set      map[Field]bool
	state    State
}

// New starts a session for an expense appended on Confirm.
func New(ledger Committer) *EditSession {
	return &EditSession{ledger: ledger, isNew: true, position: -1, set: make(map[Field]bool), state: Collecting}
}

// Edit starts a session that overwrites position on Confirm. Every field starts from existing.
// An out-of-range position is reported by Confirm as ledger.ErrPositionNotFound.
func Edit(ledger Committer, position int, existing models.Expense) *EditSession {
	s := &EditSession{ledger: ledger, position: position, staged: existing, set: make(map[Field]bool), state: Collecting}
	for _, f := range Fields {
		s.set[f] = true
	}
	return s
}

// State returns the current state.
func (s *EditSession) State() State { return s.state }

// IsNew reports whether Confirm appends rather than overwrites.
func (s *EditSession) IsNew() bool { return s.isNew }

// Position returns the position being edited, or -1 for a new expense.
func (s *EditSession) Position() int { return s.position }

// Staged returns a copy of the staging record and whether each field holds a value.
func (s *EditSession) Staged() (models.Expense, map[Field]bool) {
	set := make(map[Field]bool, len(s.set))
	for f, ok := range s.set {
		set[f] = ok
	}
	return s.staged, set
}

// Missing returns the fields without a value, in prompt order.
func (s *EditSession) Missing() []Field {
	var missing []Field
	for _, f := range Fields {
		if !s.set[f] {
			missing = append(missing, f)
		}
	}
	return missing
}

// Set validates raw and stores it into field.
// A *validate.Failure leaves the session Collecting; the cancel token abandons it.
func (s *EditSession) Set(field Field, raw string) error {
	if s.state != Collecting {
		return fmt.Errorf("%w: %s", ErrClosed, s.state)
	}

	var err error
	switch field {
	case Date:
		var v models.Date
		if v, err = validate.ParseDate(raw); err == nil {
			s.staged.Date = v
		}
	case Name:
		var v string
		if v, err = validate.ParseName(raw); err == nil {
			s.staged.Name = v
		}
	case Concept:
		var v models.Concept
		if v, err = validate.ParseConcept(raw); err == nil {
			s.staged.Concept = v
		}
	case Cost:
		var v decimal.Decimal
		if v, err = validate.ParseCost(raw); err == nil {
			s.staged.Cost = v
		}
	case Currency:
		var v models.Currency
		if v, err = validate.ParseCurrency(raw); err == nil {
			s.staged.Currency = v
		}
	default:
		return fmt.Errorf("unknown field %s", field)
	}

	if errors.Is(err, validate.ErrCancelled) {
		s.abandon()
		return ErrAbandoned
	}
	if err != nil {
		return err
	}
	s.set[field] = true
	return nil
}

// Cancel abandons the session. The ledger is not touched.
func (s *EditSession) Cancel() error {
	if s.state != Collecting {
		return fmt.Errorf("%w: %s", ErrClosed, s.state)
	}
	s.abandon()
	return nil
}

// Confirm writes the staged expense to the ledger and returns its position.
// A ledger error abandons the session; nothing is retried.
func (s *EditSession) Confirm(ctx context.Context) (int, error) {
	if s.state != Collecting {
		return 0, fmt.Errorf("%w: %s", ErrClosed, s.state)
	}
	if missing := s.Missing(); len(missing) > 0 {
		return 0, fmt.Errorf("%w: missing %v", ErrIncomplete, missing)
	}

	position := s.position
	var err error
	if s.IsNew() {
		position, err = s.ledger.Append(ctx, s.staged)
	} else {
		err = s.ledger.Overwrite(ctx, position, s.staged)
	}
	if err != nil {
		s.abandon()
		return 0, err
	}
	s.state = Committed
	return position, nil
}

func (s *EditSession) abandon() {
	s.state = Abandoned
	slog.Debug("Edit session abandoned", "position", s.position)
}
