package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/fonpesca/alertbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, DialectSQLite, filepath.Join(t.TempDir(), "alertas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))
	return s
}

func TestMigrateIsIdempotent(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))

	v, err := s.MigrationVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestIdentityLookup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	_, found, err := s.LookupIdentity(ctx, "12345678")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.UpsertIdentity(ctx, domain.Identity{Cedula: "12345678", DisplayName: "María"}))
	require.NoError(t, s.UpsertIdentity(ctx, domain.Identity{Cedula: "12345678", DisplayName: "María González"}))

	id, found, err := s.LookupIdentity(ctx, "12345678")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "María González", id.DisplayName)

	assert.Error(t, s.UpsertIdentity(ctx, domain.Identity{Cedula: "1"}))
}

func TestSaveOperationalReport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.UpsertIdentity(ctx, domain.Identity{Cedula: "12345678", DisplayName: "María"}))

	at := time.Date(2024, time.March, 5, 14, 7, 0, 0, time.UTC)
	r := &domain.Report{
		SubmissionID: "6f1c1a8e-3b7a-4f7e-9a5d-1f2e3d4c5b6a",
		SubmittedAt:  at,
		Draft: domain.ReportDraft{
			Identity:     domain.Identity{Cedula: "12345678"},
			Severity:     domain.SeverityRoja,
			Category:     domain.CategoryOperacional,
			EventType:    "Derrame",
			Description:  "Alerta de máxima alerta",
			Resources:    "No aplica (Alerta Roja)",
			Actions:      "No aplica (Alerta Roja)",
			Violence:     domain.Bool(true),
			LifeThreat:   domain.Bool(true),
			Verified:     domain.Bool(false),
			Observations: "Sin observaciones.",
			Attachments:  []domain.Attachment{{Kind: domain.AttachmentPhoto, Ref: "AgAC"}},
			ReportCode:   "RO-2403051407",
			ReportNumber: "VO-050320241407",
		},
	}
	require.NoError(t, s.SaveReport(ctx, r))

	var (
		nivel, tipo, media, code, number string
		violence, verified               bool
		ts                               int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT nivel_alerta, tipo_evento, recursos_multimedia, codigo_reporte, numero_reporte,
		       incluye_violencia, confirmacion_veracidad, fecha_hora
		FROM reportes_operacionales WHERE id_envio = ?`, r.SubmissionID).
		Scan(&nivel, &tipo, &media, &code, &number, &violence, &verified, &ts)
	require.NoError(t, err)

	assert.Equal(t, "roja", nivel)
	assert.Equal(t, "Derrame", tipo)
	assert.Equal(t, "RO-2403051407", code)
	assert.Equal(t, "VO-050320241407", number)
	assert.True(t, violence)
	assert.False(t, verified)
	assert.Equal(t, at.Unix(), ts)

	var got []domain.Attachment
	require.NoError(t, json.Unmarshal([]byte(media), &got))
	assert.Equal(t, r.Draft.Attachments, got)
}

func TestSaveCommunicationalReportFallsBackToMediaLabel(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.UpsertIdentity(ctx, domain.Identity{Cedula: "87654321", DisplayName: "Luis"}))

	r := &domain.Report{
		SubmissionID: "b2d6a4f0-8a8e-4b8e-8f0a-0c5d1e2f3a4b",
		SubmittedAt:  time.Now(),
		Draft: domain.ReportDraft{
			Identity:       domain.Identity{Cedula: "87654321"},
			Severity:       domain.SeverityVerde,
			Category:       domain.CategoryComunicacional,
			Description:    "Publicación viral",
			MediaType:      "red_social",
			SpecificMedium: "Instagram",
			Content:        "Video",
			Audience:       "No aplica (Alerta Verde)",
			Violence:       domain.Bool(false),
			LifeThreat:     domain.Bool(false),
			Verified:       domain.Bool(true),
			Observations:   "ninguna",
			ReportCode:     "VC-2403051407",
			ReportNumber:   "VO-050320241407",
		},
	}
	require.NoError(t, s.SaveReport(ctx, r))

	var tipoEvento, tipoMedio, media string
	err := s.db.QueryRowContext(ctx,
		`SELECT tipo_evento, tipo_medio, recursos_multimedia FROM reportes_comunicacionales WHERE id_envio = ?`,
		r.SubmissionID).Scan(&tipoEvento, &tipoMedio, &media)
	require.NoError(t, err)
	assert.Equal(t, "Red social", tipoEvento)
	assert.Equal(t, "Red social", tipoMedio)
	assert.Equal(t, "[]", media)
	assert.Empty(t, r.Draft.EventType, "the draft must not be modified")
}

func TestSaveReportUnknownCategory(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	err := s.SaveReport(context.Background(), &domain.Report{Draft: domain.ReportDraft{Category: "otro"}})
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	t.Parallel()

	pg := &SQLStore{dialect: DialectPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE b = $1 AND c = $2", pg.rebind("SELECT a FROM t WHERE b = ? AND c = ?"))

	lite := &SQLStore{dialect: DialectSQLite}
	assert.Equal(t, "x = ?", lite.rebind("x = ?"))
}

func TestOpenUnsupportedDialect(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "oracle", "x")
	assert.Error(t, err)
}
