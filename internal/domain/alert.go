package domain

import "strings"

// Severity is the alert level chosen by the reporter.
type Severity string

const (
	SeverityUnknown  Severity = ""
	SeverityVerde    Severity = "verde"
	SeverityAmarilla Severity = "amarilla"
	SeverityNaranja  Severity = "naranja"
	SeverityRoja     Severity = "roja"
)

// Severities lists every alert level in presentation order.
var Severities = []Severity{SeverityVerde, SeverityAmarilla, SeverityNaranja, SeverityRoja}

// ParseSeverity maps a button code or typed value to a Severity.
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	return sev, sev.Valid()
}

// Valid reports whether s is one of the four alert levels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityVerde, SeverityAmarilla, SeverityNaranja, SeverityRoja:
		return true
	}
	return false
}

// Label returns the capitalized display name.
func (s Severity) Label() string {
	if !s.Valid() {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// Initial returns the single uppercase letter used in report codes.
func (s Severity) Initial() string {
	if !s.Valid() {
		return ""
	}
	return strings.ToUpper(string(s[:1]))
}

// Category is the report type.
type Category string

const (
	CategoryUnknown        Category = ""
	CategoryOperacional    Category = "operacional"
	CategoryComunicacional Category = "comunicacional"
)

// ParseCategory maps a button code to a Category.
func ParseCategory(s string) (Category, bool) {
	cat := Category(strings.ToLower(strings.TrimSpace(s)))
	return cat, cat.Valid()
}

// Valid reports whether c is a known report type.
func (c Category) Valid() bool {
	return c == CategoryOperacional || c == CategoryComunicacional
}

// Label returns the capitalized display name.
func (c Category) Label() string {
	if !c.Valid() {
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

// Initial returns the single uppercase letter used in report codes.
func (c Category) Initial() string {
	if !c.Valid() {
		return ""
	}
	return strings.ToUpper(string(c[:1]))
}

// MediaTypes maps media-type button codes to their display labels.
var MediaTypes = map[string]string{
	"red_social": "Red social",
	"prensa":     "Prensa",
	"radio":      "Radio",
	"television": "Televisión",
}

// MediaTypeCodes lists media-type codes in presentation order.
var MediaTypeCodes = []string{"red_social", "prensa", "radio", "television"}
