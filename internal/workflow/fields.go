package workflow

import (
	"strconv"

	"github.com/fonpesca/alertbot/internal/domain"
)

func textField(d *domain.ReportDraft, f Field) *string {
	switch f {
	case FieldEventType:
		return &d.EventType
	case FieldDescription:
		return &d.Description
	case FieldResources:
		return &d.Resources
	case FieldActions:
		return &d.Actions
	case FieldMediaType:
		return &d.MediaType
	case FieldSpecificMedium:
		return &d.SpecificMedium
	case FieldContent:
		return &d.Content
	case FieldAudience:
		return &d.Audience
	case FieldObservations:
		return &d.Observations
	}
	return nil
}

func flagField(d *domain.ReportDraft, f Field) **bool {
	switch f {
	case FieldViolence:
		return &d.Violence
	case FieldThreat:
		return &d.LifeThreat
	case FieldVerified:
		return &d.Verified
	}
	return nil
}

// answered reports whether f holds a value. Multimedia is optional and
// always counts as answered.
func answered(d *domain.ReportDraft, f Field) bool {
	if f == FieldMultimedia {
		return true
	}
	if p := textField(d, f); p != nil {
		return *p != ""
	}
	if p := flagField(d, f); p != nil {
		return *p != nil
	}
	return false
}

// displayValue renders f for the summary.
func displayValue(d *domain.ReportDraft, f Field) string {
	switch f {
	case FieldMediaType:
		if label, ok := domain.MediaTypes[d.MediaType]; ok {
			return label
		}
		return d.MediaType
	case FieldMultimedia:
		return strconv.Itoa(len(d.Attachments)) + " archivo(s)"
	}
	if p := textField(d, f); p != nil {
		if *p == "" {
			return "N/A"
		}
		return *p
	}
	if p := flagField(d, f); p != nil {
		return yesNo(*p)
	}
	return ""
}

func yesNo(b *bool) string {
	switch {
	case b == nil:
		return "N/A"
	case *b:
		return "Sí"
	default:
		return "No"
	}
}

// applyDefault stores an auto-filled answer.
func applyDefault(d *domain.ReportDraft, a Default) {
	if p := flagField(d, a.Field); p != nil {
		*p = domain.Bool(a.Flag)
		return
	}
	if p := textField(d, a.Field); p != nil {
		*p = a.Text
	}
}
