package workflow

import (
	"html"
	"strings"

	"github.com/fonpesca/alertbot/internal/domain"
)

// RenderSummary formats the draft for review. Only the questions of the
// branch taken are listed, after the reporter and report header.
func RenderSummary(d *domain.ReportDraft) (string, error) {
	fields, err := SummaryFields(d.Severity, d.Category)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("<b>📋 Resumen del Reporte</b>\n\n")
	b.WriteString("<b>Datos del Usuario</b>\n")
	line(&b, "Nombre", d.Identity.DisplayName)
	line(&b, "Cédula", d.Identity.Cedula)
	b.WriteString("\n<b>Datos del Reporte</b>\n")
	line(&b, "Código de reporte", d.ReportCode)
	line(&b, "Nivel de alerta", d.Severity.Label())
	line(&b, "Tipo de reporte", d.Category.Label())
	for _, f := range fields {
		line(&b, f.Label(), displayValue(d, f))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func line(b *strings.Builder, label, value string) {
	b.WriteString("<b>")
	b.WriteString(label)
	b.WriteString(":</b> ")
	b.WriteString(escape(value))
	b.WriteByte('\n')
}

func escape(s string) string {
	return html.EscapeString(s)
}
