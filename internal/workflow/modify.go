package workflow

import (
	"slices"
	"strings"

	"github.com/fonpesca/alertbot/internal/domain"
	"github.com/fonpesca/alertbot/internal/transport"
)

// requestModify opens the edit menu. It is only meaningful once the
// summary has been shown.
func (e *Engine) requestModify(t *turn) error {
	switch t.s.State {
	case StateSummary, StateModifyConfirm, StateModifyMenu:
		t.s.clearEdit()
		return e.enter(t, StateModifyMenu)
	}
	return &InvalidTransitionError{State: t.s.State, Event: t.ev.Summary()}
}

// selectModification re-asks one field with the edit flag set.
func (e *Engine) selectModification(t *turn) error {
	f := Field(strings.TrimPrefix(t.ev.Code, CodeModifyPrefix))
	fields, err := EditableFields(t.s.Draft.Severity, t.s.Draft.Category)
	if err != nil {
		return err
	}
	if !slices.Contains(fields, f) {
		return &InvalidTransitionError{State: t.s.State, Event: t.ev.Summary()}
	}
	st, ok := f.State()
	if !ok {
		return &InvalidTransitionError{State: t.s.State, Event: t.ev.Summary()}
	}

	t.s.EditTarget = f
	t.s.stagedMedia = nil
	if f == FieldMultimedia {
		t.s.stagedMedia = &domain.ReportDraft{}
	}
	return e.enter(t, st)
}

func (e *Engine) cancelModification(t *turn) error {
	t.s.clearEdit()
	return e.enterSummary(t)
}

func (e *Engine) keepModifying(t *turn) error {
	return e.enter(t, StateModifyMenu)
}

func (e *Engine) continueToSummary(t *turn) error {
	return e.enterSummary(t)
}

func (e *Engine) enterModifyConfirm(t *turn) error {
	t.s.State = StateModifyConfirm
	return e.sendButtons(t, msgModified, [][]transport.Button{
		{{Label: "✏️ Seguir modificando", Code: CodeKeepModifying}},
		{{Label: "➡️ Continuar al resumen", Code: CodeContinueToView}},
	})
}

func (e *Engine) modifyMenu(t *turn) error {
	fields, err := EditableFields(t.s.Draft.Severity, t.s.Draft.Category)
	if err != nil {
		return err
	}
	rows := make([][]transport.Button, 0, len(fields)+1)
	for _, f := range fields {
		rows = append(rows, []transport.Button{{Label: f.Label(), Code: CodeModifyPrefix + string(f)}})
	}
	rows = append(rows, []transport.Button{{Label: "❌ Cancelar modificación", Code: CodeModifyCancel}})
	return e.sendButtons(t, msgModifyMenu, rows)
}
