// Package workflow implements the report conversation: a closed state
// machine that walks an authorized reporter from cédula verification
// through the branch-specific questions to a confirmed, persisted report.
package workflow

import "fmt"

// State is the point in the conversation awaiting the next event.
type State int

const (
	StateIdle State = iota
	StateCedula
	StateSeverity
	StateCategory
	StateEventType
	StateDescription
	StateResources
	StateActions
	StateMediaType
	StateSpecificMedium
	StateContent
	StateAudience
	StateViolence
	StateThreat
	StateVerified
	StateObservations
	StateMultimedia
	StateSummary
	StateModifyMenu
	StateModifyConfirm
	StateAnother

	stateCount
)

var stateNames = [stateCount]string{
	StateIdle:           "idle",
	StateCedula:         "cedula",
	StateSeverity:       "severity",
	StateCategory:       "category",
	StateEventType:      "event_type",
	StateDescription:    "description",
	StateResources:      "resources",
	StateActions:        "actions",
	StateMediaType:      "media_type",
	StateSpecificMedium: "specific_medium",
	StateContent:        "content",
	StateAudience:       "audience",
	StateViolence:       "violence",
	StateThreat:         "threat",
	StateVerified:       "verified",
	StateObservations:   "observations",
	StateMultimedia:     "multimedia",
	StateSummary:        "summary",
	StateModifyMenu:     "modify_menu",
	StateModifyConfirm:  "modify_confirm",
	StateAnother:        "another",
}

// States returns every state in declaration order.
func States() []State {
	out := make([]State, 0, stateCount)
	for s := State(0); s < stateCount; s++ {
		out = append(out, s)
	}
	return out
}

func (s State) String() string {
	if s >= 0 && s < stateCount {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether the conversation is over and only a new start is
// meaningful.
func (s State) Terminal() bool {
	return s == StateIdle
}

// Field names a question of the report. The value doubles as the suffix of
// the modification menu's button codes.
type Field string

const (
	FieldEventType      Field = "tipo_evento"
	FieldDescription    Field = "descripcion"
	FieldResources      Field = "recursos"
	FieldActions        Field = "acciones"
	FieldMediaType      Field = "tipo_medio"
	FieldSpecificMedium Field = "medio_especifico"
	FieldContent        Field = "contenido"
	FieldAudience       Field = "audiencia"
	FieldViolence       Field = "violencia"
	FieldThreat         Field = "amenaza"
	FieldVerified       Field = "verificado"
	FieldObservations   Field = "observaciones"
	FieldMultimedia     Field = "multimedia"

	// FieldSummary is the pseudo-question every branch ends on.
	FieldSummary Field = "resumen"
)

var fieldStates = map[Field]State{
	FieldEventType:      StateEventType,
	FieldDescription:    StateDescription,
	FieldResources:      StateResources,
	FieldActions:        StateActions,
	FieldMediaType:      StateMediaType,
	FieldSpecificMedium: StateSpecificMedium,
	FieldContent:        StateContent,
	FieldAudience:       StateAudience,
	FieldViolence:       StateViolence,
	FieldThreat:         StateThreat,
	FieldVerified:       StateVerified,
	FieldObservations:   StateObservations,
	FieldMultimedia:     StateMultimedia,
	FieldSummary:        StateSummary,
}

// State returns the state that asks the field.
func (f Field) State() (State, bool) {
	s, ok := fieldStates[f]
	return s, ok
}

// FieldOf returns the field asked by a question state.
func FieldOf(s State) (Field, bool) {
	for f, st := range fieldStates {
		if st == s && f != FieldSummary {
			return f, true
		}
	}
	return "", false
}

// Label is the display name used in the summary and the edit menu.
func (f Field) Label() string {
	switch f {
	case FieldEventType:
		return "Tipo de evento"
	case FieldDescription:
		return "Descripción del evento"
	case FieldResources:
		return "Recursos comprometidos"
	case FieldActions:
		return "Acciones tomadas"
	case FieldMediaType:
		return "Tipo de medio"
	case FieldSpecificMedium:
		return "Nombre del medio"
	case FieldContent:
		return "Contenido difundido"
	case FieldAudience:
		return "Audiencia afectada"
	case FieldViolence:
		return "Hubo violencia"
	case FieldThreat:
		return "Amenaza a la vida"
	case FieldVerified:
		return "Evento verificado"
	case FieldObservations:
		return "Observaciones"
	case FieldMultimedia:
		return "Contenido multimedia"
	default:
		return string(f)
	}
}
