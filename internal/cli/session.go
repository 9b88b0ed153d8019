package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/render"
	"github.com/mmynk/tripsplit/internal/session"
	"github.com/mmynk/tripsplit/internal/validate"
)

const saveToken = "S"

// runSession drives an edit session on the terminal: it asks for every missing field in order,
// then lets the user review, change any field, save or cancel.
// It returns session.ErrAbandoned when the user cancels; the ledger is then untouched.
func (a *App) runSession(ctx context.Context, s *session.EditSession) (int, error) {
	for _, f := range s.Missing() {
		if err := a.askField(s, f); err != nil {
			return 0, err
		}
	}

	for {
		a.review(s)
		answer := a.prompt("Field number to change, S to save, C to cancel")
		switch {
		case validate.IsCancel(answer):
			if err := s.Cancel(); err != nil {
				return 0, err
			}
			return 0, session.ErrAbandoned
		case strings.EqualFold(answer, saveToken):
			return s.Confirm(ctx)
		}

		f, err := validate.ParseEnum("field", answer, session.Fields)
		if err != nil {
			a.printf("%s\n", err)
			continue
		}
		if err := a.askField(s, f); err != nil {
			return 0, err
		}
	}
}

// askField prompts for one field until it validates. Only the cancel token ends the loop early.
func (a *App) askField(s *session.EditSession, f session.Field) error {
	for {
		switch f {
		case session.Concept:
			a.print(menu("Concept", models.Concepts))
		case session.Currency:
			a.print(menu("Currency", models.Currencies))
		}
		err := s.Set(f, a.prompt(question(f)))
		var failure *validate.Failure
		if errors.As(err, &failure) {
			a.printf("%s\n", failure)
			continue
		}
		return err
	}
}

func (a *App) review(s *session.EditSession) {
	staged, set := s.Staged()
	var b strings.Builder
	if s.IsNew() {
		b.WriteString("## New entry\n\n")
	} else {
		fmt.Fprintf(&b, "## Entry #%d\n\n", s.Position()+1)
	}
	render.Expense(&b, staged, func(label string) bool {
		for _, f := range session.Fields {
			if f.String() == label {
				return set[f]
			}
		}
		return false
	})
	a.print(b.String())
}

func question(f session.Field) string {
	switch f {
	case session.Date:
		return "Date (dd/mm/yyyy, C to cancel)"
	case session.Name:
		return "Who paid? (C to cancel)"
	case session.Concept:
		return "Concept number (C to cancel)"
	case session.Cost:
		return "Cost (C to cancel)"
	case session.Currency:
		return "Currency number (C to cancel)"
	}
	return f.String()
}

// menu renders a numbered choice list for an enumeration.
func menu[T interface{ String() string }](title string, universe []T) string {
	options := make([]string, len(universe))
	for i, v := range universe {
		options[i] = v.String()
	}
	var b strings.Builder
	render.Menu(&b, title, options)
	return b.String()
}
