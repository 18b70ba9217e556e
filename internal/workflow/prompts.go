package workflow

import (
	"fmt"

	"github.com/fonpesca/alertbot/internal/domain"
	"github.com/fonpesca/alertbot/internal/transport"
)

const (
	msgWelcome = "Bienvenido al sistema automatizado de Reportes de alertas tempranas de FONPESCA. " +
		"Este canal es exclusivo para personal autorizado.\n\n" +
		"Por favor, ingresa tu número de cédula para continuar."
	msgAskCedula     = "Por favor, ingresa tu número de cédula para continuar."
	msgInvalidCedula = "❌ Cédula inválida. Por favor, ingresa solo números."
	msgAccessDenied  = "❌ Acceso denegado. La cédula ingresada no está autorizada."
	msgGreeting      = "¡Hola, %s! Autenticación exitosa. ¿Qué nivel tiene el reporte?"
	msgAskSeverity   = "¿Qué nivel tiene el reporte?"
	msgAskCategory   = "Selecciona el <b>tipo de reporte</b>:"

	msgAskEventType      = "🚨 <b>Alerta Roja</b>. Describe brevemente el <b>tipo de evento</b>:"
	msgEmergencyContact  = "📞 Contacto de emergencia: %s"
	msgAskDescription    = "Por favor, ingresa la descripción del evento:"
	msgAskResources      = "Por favor, ingresa los recursos comprometidos:"
	msgAskActions        = "Por favor, ingresa las acciones tomadas:"
	msgAskMediaType      = "Selecciona el tipo de medio:"
	msgAskSpecificMedium = "Por favor, ingresa el nombre del medio específico:"
	msgAskContent        = "Por favor, ingresa el contenido difundido:"
	msgAskAudience       = "Por favor, ingresa la audiencia afectada:"
	msgAskViolence       = "¿Hubo violencia?"
	msgAskThreat         = "¿Hubo amenaza a la vida?"
	msgAskVerified       = "¿El evento está verificado?"
	msgAskObservations   = "Por favor, ingresa tus observaciones:"
	msgAskMultimedia     = "Por favor, adjunta hasta un máximo de 5 archivos de imágenes, videos, documentos o audios. " +
		"Si no tienes archivos, selecciona 'Continuar'."
	msgReplaceMedia = "Los archivos que envíes reemplazarán los %d adjuntos actuales."

	msgUnsupportedMedia = "Por favor, envía solo imágenes, videos, documentos o audios."
	msgMediaLimit       = "⚠️ Has alcanzado el límite de %d archivos. Presiona 'Continuar' para seguir."
	msgMediaReceived    = "✅ Archivo recibido. Puedes adjuntar %d más o presionar 'Continuar'."
	msgMediaFull        = "✅ Archivo recibido. Alcanzaste el máximo de %d archivos. Presiona 'Continuar'."

	msgEditing    = "✏️ <b>Modificando:</b> %s\n\n"
	msgModifyMenu = "¿Qué campo deseas modificar?"
	msgModified   = "✅ Se ha modificado su respuesta. ¿Desea seguir modificando o continuar al resumen?"

	msgSubmitted = "✅ ¡Reporte enviado exitosamente!\n<b>Código de reporte:</b> %s\n<b>Número de Reporte:</b> %s"
	msgAnother   = "¿Desea realizar otro reporte?"
	msgGoodbye   = "Gracias por usar el sistema de alertas. ¡Hasta la próxima!"
	msgCancelled = "❌ El reporte ha sido cancelado. Envía cualquier mensaje para comenzar de nuevo."

	msgNotValidHere   = "⚠️ Esa opción no es válida en este momento."
	msgEmptyAnswer    = "⚠️ La respuesta no puede estar vacía."
	msgIncomplete     = "⚠️ Aún faltan preguntas por responder antes de ver el resumen."
	msgNoPrevious     = "⚠️ No hay una pregunta anterior."
	msgIdleHint       = "Envía cualquier mensaje o /start para iniciar un reporte."
	msgGenericFailure = "❌ Ocurrió un error inesperado. Por favor, intenta de nuevo."
	msgFatalBranch    = "❌ No fue posible continuar con este reporte por un error interno. " +
		"Por favor, comunícate con %s. La conversación ha finalizado."
	msgLookupFailed = "❌ No se pudo verificar la cédula en este momento. Intenta de nuevo en unos minutos."
	msgSaveFailed   = "❌ No se pudo enviar el reporte. Tus respuestas se conservaron; presiona 'Enviar Reporte' para reintentar."

	noObservationsText = "Sin observaciones."

	opLookupIdentity = "lookup identity"
	opSaveReport     = "save report"
)

var questionPrompts = map[State]string{
	StateEventType:      msgAskEventType,
	StateDescription:    msgAskDescription,
	StateResources:      msgAskResources,
	StateActions:        msgAskActions,
	StateMediaType:      msgAskMediaType,
	StateSpecificMedium: msgAskSpecificMedium,
	StateContent:        msgAskContent,
	StateAudience:       msgAskAudience,
	StateViolence:       msgAskViolence,
	StateThreat:         msgAskThreat,
	StateVerified:       msgAskVerified,
	StateObservations:   msgAskObservations,
	StateMultimedia:     msgAskMultimedia,
}

// prompt sends the question that belongs to st.
func (e *Engine) prompt(t *turn, st State) error {
	switch st {
	case StateIdle:
		return nil
	case StateCedula:
		return e.send(t, msgAskCedula)
	case StateSeverity:
		return e.sendButtons(t, msgAskSeverity, severityKeyboard())
	case StateCategory:
		return e.sendButtons(t, msgAskCategory, withNav(categoryKeyboard()))
	case StateSummary:
		text, err := RenderSummary(&t.s.Draft)
		if err != nil {
			return err
		}
		return e.sendButtons(t, text, summaryKeyboard())
	case StateModifyMenu:
		return e.modifyMenu(t)
	case StateModifyConfirm:
		return e.enterModifyConfirm(t)
	case StateAnother:
		return e.sendButtons(t, msgAnother, [][]transport.Button{
			{{Label: "✅ Sí", Code: CodeAnotherYes}, {Label: "❌ No", Code: CodeAnotherNo}},
		})
	}

	text, ok := questionPrompts[st]
	if !ok {
		return fmt.Errorf("no prompt for state %s", st)
	}
	if t.s.editing() {
		text = fmt.Sprintf(msgEditing, t.s.EditTarget.Label()) + text
		if st == StateMultimedia && len(t.s.Draft.Attachments) > 0 {
			text += "\n" + fmt.Sprintf(msgReplaceMedia, len(t.s.Draft.Attachments))
		}
	}

	var rows [][]transport.Button
	switch st {
	case StateMediaType:
		for _, code := range domain.MediaTypeCodes {
			rows = append(rows, []transport.Button{{Label: domain.MediaTypes[code], Code: code}})
		}
	case StateViolence, StateThreat, StateVerified:
		rows = yesNoKeyboard()
	case StateObservations:
		rows = [][]transport.Button{{{Label: "No tengo observaciones", Code: CodeNoObservations}}}
	case StateMultimedia:
		rows = continueKeyboard()
	}
	return e.sendButtons(t, text, withNav(rows))
}

func persistenceMessage(op string) string {
	if op == opLookupIdentity {
		return msgLookupFailed
	}
	return msgSaveFailed
}

func retryCedulaKeyboard() [][]transport.Button {
	return [][]transport.Button{{{Label: "🔄 Intentar de nuevo", Code: CodeRetryCedula}}}
}

func severityKeyboard() [][]transport.Button {
	return [][]transport.Button{
		{{Label: "🟢 Verde", Code: "Verde"}, {Label: "🟡 Amarilla", Code: "Amarilla"}},
		{{Label: "🟠 Naranja", Code: "Naranja"}, {Label: "🔴 Roja", Code: "Roja"}},
		{{Label: "❌ Cancelar", Code: CodeCancel}},
	}
}

func categoryKeyboard() [][]transport.Button {
	return [][]transport.Button{
		{{Label: "1. Operacional", Code: string(domain.CategoryOperacional)}},
		{{Label: "2. Comunicacional", Code: string(domain.CategoryComunicacional)}},
	}
}

func yesNoKeyboard() [][]transport.Button {
	return [][]transport.Button{{{Label: "✅ Sí", Code: CodeYes}, {Label: "❌ No", Code: CodeNo}}}
}

func continueKeyboard() [][]transport.Button {
	return [][]transport.Button{{{Label: "➡️ Continuar", Code: CodeContinueMedia}}}
}

func summaryKeyboard() [][]transport.Button {
	return [][]transport.Button{
		{{Label: "📤 Enviar Reporte", Code: CodeConfirm}},
		{{Label: "✏️ Modificar Reporte", Code: CodeModify}},
		{{Label: "❌ Cancelar Reporte", Code: CodeCancel}},
	}
}

// withNav appends the step-back/finish/restart row shown under questions.
func withNav(rows [][]transport.Button) [][]transport.Button {
	return append(rows, []transport.Button{
		{Label: "⬅️ Anterior", Code: CodeBack},
		{Label: "⏭️ Finalizar", Code: CodeFinish},
		{Label: "🏠 Inicio", Code: CodeRestart},
	})
}
