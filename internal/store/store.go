// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/fonpesca/alertbot/internal/domain"
)

// Repository defines the interface for persisting reporters and reports.
type Repository interface {
	// LookupIdentity retrieves an authorized reporter by cédula.
	// found is false when no such reporter exists.
	LookupIdentity(ctx context.Context, cedula string) (identity domain.Identity, found bool, err error)

	// UpsertIdentity creates or renames an authorized reporter.
	UpsertIdentity(ctx context.Context, identity domain.Identity) error

	// SaveReport stores a confirmed report in the table of its category.
	SaveReport(ctx context.Context, report *domain.Report) error

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
