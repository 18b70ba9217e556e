package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fonpesca/alertbot/internal/domain"
)

func (e *Engine) start(t *turn) error {
	t.s.Draft.Reset()
	t.s.History = nil
	t.s.clearEdit()
	t.s.State = StateCedula
	return e.send(t, msgWelcome)
}

func (e *Engine) retryCedula(t *turn) error {
	t.s.Draft.Reset()
	t.s.History = nil
	t.s.clearEdit()
	return e.enter(t, StateCedula)
}

func (e *Engine) verifyCedula(t *turn) error {
	raw := strings.TrimSpace(t.ev.Text)
	id, err := e.ids.Verify(t.ctx, raw)
	switch {
	case errors.Is(err, ErrInvalidCedula):
		return &InputValidationError{State: t.s.State, Reason: msgInvalidCedula}
	case errors.Is(err, ErrUnknownCedula):
		return &AuthorizationError{Cedula: raw}
	case err != nil:
		return &PersistenceError{Op: opLookupIdentity, Err: err}
	}

	t.s.Draft.Reset()
	t.s.Draft.Identity = id
	t.s.History = nil
	t.s.State = StateSeverity
	e.logger.Info("Reporter authenticated", "conversation_id", t.s.ID)
	return e.sendButtons(t, fmt.Sprintf(msgGreeting, escape(id.DisplayName)), severityKeyboard())
}

func (e *Engine) chooseSeverity(t *turn) error {
	sev, ok := domain.ParseSeverity(t.ev.Code)
	if !ok {
		return &InputValidationError{State: t.s.State, Reason: msgNotValidHere}
	}
	if t.s.Draft.Severity != "" && t.s.Draft.Severity != sev {
		t.s.Draft.ClearAnswers()
	}
	t.s.Draft.Severity = sev
	return e.advance(t, StateCategory)
}

func (e *Engine) chooseCategory(t *turn) error {
	cat, ok := domain.ParseCategory(t.ev.Code)
	if !ok {
		return &InputValidationError{State: t.s.State, Reason: msgNotValidHere}
	}
	if t.s.Draft.Category != "" && t.s.Draft.Category != cat {
		t.s.Draft.ClearAnswers()
	}
	t.s.Draft.Category = cat

	first, err := FirstQuestion(t.s.Draft.Severity, cat)
	if err != nil {
		return err
	}
	st, _ := first.State()
	return e.advance(t, st)
}

// textAnswer stores a free-text reply for f.
func textAnswer(f Field) handlerFunc {
	return func(e *Engine, t *turn) error {
		v := strings.TrimSpace(t.ev.Text)
		if v == "" {
			return &InputValidationError{State: t.s.State, Reason: msgEmptyAnswer}
		}
		if f == FieldEventType && t.s.Draft.Severity == domain.SeverityRoja && e.emergencyContact != "" && !t.s.editing() {
			if err := e.send(t, fmt.Sprintf(msgEmergencyContact, escape(e.emergencyContact))); err != nil {
				return err
			}
		}
		return e.answer(t, f, func(d *domain.ReportDraft) { *textField(d, f) = v })
	}
}

// flagAnswer stores a yes/no reply for f. Roja reports always record
// violence and life threat as true.
func flagAnswer(f Field) handlerFunc {
	return func(e *Engine, t *turn) error {
		v := strings.EqualFold(t.ev.Code, CodeYes)
		if t.s.Draft.Severity == domain.SeverityRoja && (f == FieldViolence || f == FieldThreat) {
			v = true
		}
		return e.answer(t, f, func(d *domain.ReportDraft) { *flagField(d, f) = domain.Bool(v) })
	}
}

func (e *Engine) chooseMediaType(t *turn) error {
	code := strings.ToLower(t.ev.Code)
	if _, ok := domain.MediaTypes[code]; !ok {
		return &InputValidationError{State: t.s.State, Reason: msgNotValidHere}
	}
	return e.answer(t, FieldMediaType, func(d *domain.ReportDraft) { d.MediaType = code })
}

func (e *Engine) noObservations(t *turn) error {
	return e.answer(t, FieldObservations, func(d *domain.ReportDraft) { d.Observations = noObservationsText })
}

func mediaTypeCodes() []string {
	return append([]string(nil), domain.MediaTypeCodes...)
}
