package workflow

import (
	"strings"

	"github.com/fonpesca/alertbot/internal/transport"
)

// Button codes understood by the engine.
const (
	CodeRetryCedula    = "reintentar_cedula"
	CodeYes            = "si"
	CodeNo             = "no"
	CodeNoObservations = "no_observaciones"
	CodeContinueMedia  = "continuar_multimedia"

	CodeConfirm = "enviar_reporte"
	CodeModify  = "modificar_reporte"
	CodeCancel  = "cancelar_reporte"
	CodeRestart = "inicio"
	CodeFinish  = "finalizar"
	CodeBack    = "anterior"

	CodeModifyPrefix   = "mod_"
	CodeModifyCancel   = "cancelar_modificacion"
	CodeKeepModifying  = "seguir_modificando"
	CodeContinueToView = "continuar_a_resumen"

	CodeAnotherYes = "si_otro_reporte"
	CodeAnotherNo  = "no_otro_reporte"

	CommandStart  = "start"
	CommandCancel = "cancelar"
)

type handlerFunc func(e *Engine, t *turn) error

// route matches one class of event. An empty codes list matches any code.
type route struct {
	kind   transport.Kind
	codes  []string
	prefix string
	handle handlerFunc
}

func (r route) matches(ev transport.Event) bool {
	if ev.Kind != r.kind {
		return false
	}
	if r.prefix != "" {
		return strings.HasPrefix(ev.Code, r.prefix)
	}
	if len(r.codes) == 0 {
		return true
	}
	code := ev.Code
	if r.kind == transport.KindButton || r.kind == transport.KindCommand {
		code = strings.ToLower(code)
	}
	for _, c := range r.codes {
		if strings.ToLower(c) == code {
			return true
		}
	}
	return false
}

// table maps (state, event) to a handler. Commands apply in every state,
// navigation in every non-terminal state, then the state's own routes.
type table struct {
	commands   []route
	navigation []route
	states     map[State][]route
}

func on(kind transport.Kind, h handlerFunc, codes ...string) route {
	return route{kind: kind, codes: codes, handle: h}
}

func onPrefix(prefix string, h handlerFunc) route {
	return route{kind: transport.KindButton, prefix: prefix, handle: h}
}

func newTable() *table {
	text := transport.KindText
	button := transport.KindButton
	yesNo := []string{CodeYes, CodeNo}

	return &table{
		commands: []route{
			on(transport.KindCommand, (*Engine).start, CommandStart),
			on(transport.KindCommand, (*Engine).cancel, CommandCancel),
		},
		navigation: []route{
			on(button, (*Engine).restart, CodeRestart),
			on(button, (*Engine).finish, CodeFinish),
			on(button, (*Engine).stepBack, CodeBack),
			on(button, (*Engine).confirm, CodeConfirm),
			on(button, (*Engine).requestModify, CodeModify),
			on(button, (*Engine).cancel, CodeCancel),
		},
		states: map[State][]route{
			StateIdle: {
				on(text, (*Engine).start),
				on(transport.KindCommand, (*Engine).start),
				on(button, (*Engine).retryCedula, CodeRetryCedula),
			},
			StateCedula: {
				on(text, (*Engine).verifyCedula),
				on(button, (*Engine).retryCedula, CodeRetryCedula),
			},
			StateSeverity: {
				on(button, (*Engine).chooseSeverity, "verde", "amarilla", "naranja", "roja"),
			},
			StateCategory: {
				on(button, (*Engine).chooseCategory, "operacional", "comunicacional"),
			},
			StateEventType:      {on(text, textAnswer(FieldEventType))},
			StateDescription:    {on(text, textAnswer(FieldDescription))},
			StateResources:      {on(text, textAnswer(FieldResources))},
			StateActions:        {on(text, textAnswer(FieldActions))},
			StateMediaType:      {on(button, (*Engine).chooseMediaType, mediaTypeCodes()...)},
			StateSpecificMedium: {on(text, textAnswer(FieldSpecificMedium))},
			StateContent:        {on(text, textAnswer(FieldContent))},
			StateAudience:       {on(text, textAnswer(FieldAudience))},
			StateViolence:       {on(button, flagAnswer(FieldViolence), yesNo...)},
			StateThreat:         {on(button, flagAnswer(FieldThreat), yesNo...)},
			StateVerified:       {on(button, flagAnswer(FieldVerified), yesNo...)},
			StateObservations: {
				on(text, textAnswer(FieldObservations)),
				on(button, (*Engine).noObservations, CodeNoObservations),
			},
			StateMultimedia: {
				on(transport.KindAttachment, (*Engine).collectAttachment),
				on(text, (*Engine).rejectMedia),
				on(button, (*Engine).continueMedia, CodeContinueMedia),
			},
			StateSummary: {},
			StateModifyMenu: {
				onPrefix(CodeModifyPrefix, (*Engine).selectModification),
				on(button, (*Engine).cancelModification, CodeModifyCancel),
			},
			StateModifyConfirm: {
				on(button, (*Engine).keepModifying, CodeKeepModifying),
				on(button, (*Engine).continueToSummary, CodeContinueToView),
			},
			StateAnother: {
				on(button, (*Engine).fileAnother, CodeAnotherYes),
				on(button, (*Engine).endConversation, CodeAnotherNo),
			},
		},
	}
}

// resolve returns the handler for ev in st, or the invalid-event fallback.
func (tb *table) resolve(st State, ev transport.Event) (handlerFunc, bool) {
	for _, r := range tb.commands {
		if r.matches(ev) {
			return r.handle, true
		}
	}
	if !st.Terminal() {
		for _, r := range tb.navigation {
			if r.matches(ev) {
				return r.handle, true
			}
		}
	}
	for _, r := range tb.states[st] {
		if r.matches(ev) {
			return r.handle, true
		}
	}
	return (*Engine).invalid, false
}
