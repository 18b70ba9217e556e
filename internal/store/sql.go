package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fonpesca/alertbot/internal/domain"
	"github.com/fonpesca/alertbot/internal/shared"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver
)

// Dialect selects the SQL flavour of the backing database.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// SQLStore implements Repository over database/sql for Postgres and SQLite.
type SQLStore struct {
	db         *sql.DB
	dialect    Dialect
	maxElapsed time.Duration
}

// Open connects to the database named by dsn. For SQLite dsn is a file path.
func Open(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	var (
		db  *sql.DB
		err error
	)
	switch dialect {
	case DialectPostgres:
		db, err = sql.Open("pgx", dsn)
	case DialectSQLite:
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		// WAL mode for concurrent readers while a report is written.
		db, err = sql.Open("sqlite", dsn+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	default:
		return nil, fmt.Errorf("unsupported database driver %q", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	}

	s := &SQLStore{db: db, dialect: dialect, maxElapsed: 5 * time.Second}
	if err := s.withRetry(ctx, "ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return s, nil
}

// DB exposes the underlying handle for migrations.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Dialect returns the SQL flavour in use.
func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

// Ping verifies database connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// LookupIdentity retrieves an authorized reporter by cédula.
func (s *SQLStore) LookupIdentity(ctx context.Context, cedula string) (domain.Identity, bool, error) {
	query := s.rebind(`SELECT cedula, nombre FROM usuarios WHERE cedula = ?`)

	var id domain.Identity
	err := s.withRetry(ctx, "lookup identity", func() error {
		return s.db.QueryRowContext(ctx, query, cedula).Scan(&id.Cedula, &id.DisplayName)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Identity{}, false, nil
	}
	if err != nil {
		return domain.Identity{}, false, fmt.Errorf("query identity: %w", err)
	}
	return id, true, nil
}

// UpsertIdentity creates or renames an authorized reporter.
func (s *SQLStore) UpsertIdentity(ctx context.Context, id domain.Identity) error {
	if id.Cedula == "" || id.DisplayName == "" {
		return errors.New("cedula and display name are required")
	}
	query := s.rebind(`
	INSERT INTO usuarios (cedula, nombre, creado_en)
	VALUES (?, ?, ?)
	ON CONFLICT (cedula) DO UPDATE SET nombre = excluded.nombre`)

	created := id.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return s.withRetry(ctx, "upsert identity", func() error {
		if _, err := s.db.ExecContext(ctx, query, id.Cedula, id.DisplayName, s.timestamp(created)); err != nil {
			return fmt.Errorf("upsert identity: %w", err)
		}
		return nil
	})
}

// SaveReport stores a confirmed report in the table of its category.
func (s *SQLStore) SaveReport(ctx context.Context, r *domain.Report) error {
	d := &r.Draft
	attachments := d.Attachments
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	media, err := json.Marshal(attachments)
	if err != nil {
		return fmt.Errorf("encode attachments: %w", err)
	}

	var (
		query string
		args  []any
	)
	switch d.Category {
	case domain.CategoryOperacional:
		query = `
		INSERT INTO reportes_operacionales (
			id_envio, cedula_usuario, nivel_alerta, tipo_evento, descripcion_tecnica,
			recursos_comprometidos, acciones_ejecutadas, incluye_violencia, amenaza_a_la_vida,
			confirmacion_veracidad, observaciones, recursos_multimedia, fecha_hora,
			codigo_reporte, numero_reporte
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		args = []any{
			r.SubmissionID, d.Identity.Cedula, string(d.Severity), r.EventTypeForStorage(), d.Description,
			d.Resources, d.Actions, flag(d.Violence), flag(d.LifeThreat),
			flag(d.Verified), d.Observations, string(media), s.timestamp(r.SubmittedAt),
			d.ReportCode, d.ReportNumber,
		}
	case domain.CategoryComunicacional:
		query = `
		INSERT INTO reportes_comunicacionales (
			id_envio, cedula_usuario, nivel_alerta, tipo_evento, descripcion_tecnica,
			tipo_medio, medio_especifico, contenido_difundido, audiencia_afectada,
			incluye_violencia, amenaza_a_la_vida, confirmacion_veracidad, observaciones,
			recursos_multimedia, fecha_hora, codigo_reporte, numero_reporte
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		args = []any{
			r.SubmissionID, d.Identity.Cedula, string(d.Severity), r.EventTypeForStorage(), d.Description,
			mediaLabel(d.MediaType), d.SpecificMedium, d.Content, d.Audience,
			flag(d.Violence), flag(d.LifeThreat), flag(d.Verified), d.Observations,
			string(media), s.timestamp(r.SubmittedAt), d.ReportCode, d.ReportNumber,
		}
	default:
		return fmt.Errorf("unknown report category %q", d.Category)
	}

	query = s.rebind(query)
	err = s.withRetry(ctx, "save report", func() error {
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert %s report: %w", d.Category, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("Report stored",
		"submission_id", r.SubmissionID,
		"category", string(d.Category),
		"report_number", d.ReportNumber,
		"attachments", len(d.Attachments))
	return nil
}

// withRetry retries op with exponential backoff while it fails with a
// transient database error.
func (s *SQLStore) withRetry(ctx context.Context, name string, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxInterval = time.Second
	bo.MaxElapsedTime = s.maxElapsed

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if !shared.IsTransientDBError(err) {
			return backoff.Permanent(err)
		}
		slog.Debug("Transient database error, retrying",
			"op", name,
			"attempt", attempt,
			"error", err)
		return err
	}, backoff.WithContext(bo, ctx))
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// timestamp converts t to the column representation of the dialect.
func (s *SQLStore) timestamp(t time.Time) any {
	if s.dialect == DialectSQLite {
		return t.Unix()
	}
	return t.UTC()
}

func flag(b *bool) bool {
	return b != nil && *b
}

func mediaLabel(code string) string {
	if label, ok := domain.MediaTypes[code]; ok {
		return label
	}
	return code
}
