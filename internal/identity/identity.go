// Package identity verifies reporters against the authorized cédula registry.
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/fonpesca/alertbot/internal/domain"
	"github.com/fonpesca/alertbot/internal/workflow"
)

var cedulaPattern = regexp.MustCompile(`^[0-9]{1,12}$`)

// Source looks up reporters by normalized cédula.
type Source interface {
	LookupIdentity(ctx context.Context, cedula string) (domain.Identity, bool, error)
}

// Directory implements workflow.IdentityVerifier over a Source.
type Directory struct {
	src    Source
	logger *slog.Logger
}

// NewDirectory creates a directory backed by src.
func NewDirectory(src Source, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{src: src, logger: logger}
}

// Normalize trims surrounding whitespace and the thousands separators users
// often type ("12.345.678"). It reports false when the rest is not all digits.
func Normalize(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ".", "")
	if !cedulaPattern.MatchString(s) {
		return "", false
	}
	return s, true
}

// Verify resolves raw to an authorized reporter.
func (d *Directory) Verify(ctx context.Context, raw string) (domain.Identity, error) {
	cedula, ok := Normalize(raw)
	if !ok {
		return domain.Identity{}, workflow.ErrInvalidCedula
	}

	id, found, err := d.src.LookupIdentity(ctx, cedula)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("lookup cedula: %w", err)
	}
	if !found {
		d.logger.Info("Unauthorized cedula", "cedula", mask(cedula))
		return domain.Identity{}, workflow.ErrUnknownCedula
	}
	if id.Cedula == "" {
		id.Cedula = cedula
	}
	return id, nil
}

// mask keeps the last three digits for logs.
func mask(cedula string) string {
	if len(cedula) <= 3 {
		return "***"
	}
	return strings.Repeat("*", len(cedula)-3) + cedula[len(cedula)-3:]
}
