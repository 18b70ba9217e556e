package workflow

import "github.com/fonpesca/alertbot/internal/domain"

const (
	notApplicableVerde = "No aplica (Alerta Verde)"
	notApplicableRoja  = "No aplica (Alerta Roja)"
	rojaDescription    = "Alerta de máxima alerta"
)

// Default is an answer filled in without asking.
type Default struct {
	Field Field
	Text  string
	Flag  bool
}

// branch is the ordered question sequence for one severity/category pair.
// defaults[f] is applied once f has been answered in normal flow.
type branch struct {
	questions []Field
	defaults  map[Field][]Default
}

var universalTail = []Field{FieldVerified, FieldObservations, FieldMultimedia}

func seq(fields ...Field) []Field {
	return append(fields, universalTail...)
}

var branches = map[domain.Category]map[domain.Severity]branch{
	domain.CategoryOperacional: {
		domain.SeverityVerde: {
			questions: seq(FieldDescription, FieldActions),
			defaults: map[Field][]Default{
				FieldDescription: {{Field: FieldResources, Text: notApplicableVerde}},
				FieldActions:     {{Field: FieldViolence, Flag: false}, {Field: FieldThreat, Flag: false}},
			},
		},
		domain.SeverityAmarilla: {
			questions: seq(FieldDescription, FieldResources, FieldActions, FieldViolence, FieldThreat),
		},
		domain.SeverityNaranja: {
			questions: seq(FieldDescription, FieldResources, FieldActions, FieldViolence, FieldThreat),
		},
		domain.SeverityRoja: {
			questions: seq(FieldEventType, FieldViolence, FieldThreat),
			defaults: map[Field][]Default{
				FieldEventType: {
					{Field: FieldDescription, Text: rojaDescription},
					{Field: FieldResources, Text: notApplicableRoja},
					{Field: FieldActions, Text: notApplicableRoja},
				},
			},
		},
	},
	domain.CategoryComunicacional: {
		domain.SeverityVerde: {
			questions: seq(FieldDescription, FieldMediaType, FieldSpecificMedium, FieldContent),
			defaults: map[Field][]Default{
				FieldContent: {
					{Field: FieldAudience, Text: notApplicableVerde},
					{Field: FieldViolence, Flag: false},
					{Field: FieldThreat, Flag: false},
				},
			},
		},
		domain.SeverityAmarilla: {
			questions: seq(FieldDescription, FieldMediaType, FieldSpecificMedium, FieldContent, FieldAudience, FieldViolence, FieldThreat),
		},
		domain.SeverityNaranja: {
			questions: seq(FieldDescription, FieldMediaType, FieldSpecificMedium, FieldContent, FieldAudience, FieldViolence, FieldThreat),
		},
		domain.SeverityRoja: {
			questions: seq(FieldEventType, FieldViolence, FieldThreat),
			defaults: map[Field][]Default{
				FieldEventType: {
					{Field: FieldDescription, Text: rojaDescription},
					{Field: FieldMediaType, Text: notApplicableRoja},
					{Field: FieldSpecificMedium, Text: notApplicableRoja},
					{Field: FieldContent, Text: notApplicableRoja},
					{Field: FieldAudience, Text: notApplicableRoja},
				},
			},
		},
	},
}

func lookupBranch(sev domain.Severity, cat domain.Category) (branch, error) {
	b, ok := branches[cat][sev]
	if !ok {
		return branch{}, &UnknownBranchError{Severity: sev, Category: cat}
	}
	return b, nil
}

// Questions returns the ordered questions asked for a severity/category pair.
func Questions(sev domain.Severity, cat domain.Category) ([]Field, error) {
	b, err := lookupBranch(sev, cat)
	if err != nil {
		return nil, err
	}
	return append([]Field(nil), b.questions...), nil
}

// FirstQuestion returns the question asked right after the category.
func FirstQuestion(sev domain.Severity, cat domain.Category) (Field, error) {
	b, err := lookupBranch(sev, cat)
	if err != nil {
		return "", err
	}
	return b.questions[0], nil
}

// NextQuestion returns the question that follows current on the branch and
// the defaults to apply now that current has been answered. The question
// after multimedia is FieldSummary.
func NextQuestion(sev domain.Severity, cat domain.Category, current Field) (Field, []Default, error) {
	b, err := lookupBranch(sev, cat)
	if err != nil {
		return "", nil, err
	}
	for i, f := range b.questions {
		if f != current {
			continue
		}
		next := FieldSummary
		if i+1 < len(b.questions) {
			next = b.questions[i+1]
		}
		return next, append([]Default(nil), b.defaults[current]...), nil
	}
	return "", nil, &UnknownBranchError{Severity: sev, Category: cat, Field: current}
}

// EditableFields lists what the modification menu offers: the branch's own
// questions followed by the universal ones.
func EditableFields(sev domain.Severity, cat domain.Category) ([]Field, error) {
	return Questions(sev, cat)
}

// SummaryFields lists the answers rendered in the summary.
func SummaryFields(sev domain.Severity, cat domain.Category) ([]Field, error) {
	return Questions(sev, cat)
}

// Complete reports whether every question of the draft's branch has an answer.
func Complete(d *domain.ReportDraft) (bool, error) {
	qs, err := Questions(d.Severity, d.Category)
	if err != nil {
		return false, err
	}
	for _, f := range qs {
		if !answered(d, f) {
			return false, nil
		}
	}
	return true, nil
}
