package repository

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/scoring"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func openSQLite(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "runs.db")}, quiet)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleRun(sha string) *ScoreRun {
	return &ScoreRun{
		DocumentSHA256:   sha,
		SourcePath:       "/in/balance.pdf",
		TotalModels:      2,
		SuccessfulModels: 1,
		BestEngine:       "pdftext",
		MeanScore:        8.2,
		Factors:          scoring.DefaultFactors(),
		Entries: []scoring.Result{
			{Engine: "pdftext", Score: 8.2, Confidence: 0.8, Success: true, ProcessingTime: 0.12},
			{Engine: "ocr", Score: 1, Success: false, Error: "pdftoppm missing"},
		},
	}
}

func TestScoreRuns_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewScoreRunRepository(openSQLite(t), quiet)

	run := sampleRun("abc")
	require.NoError(t, repo.Save(ctx, run))
	require.NotEqual(t, uuid.Nil, run.ID)

	got, err := repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Entries, got.Entries)
	assert.Equal(t, run.Factors, got.Factors)
	assert.Equal(t, "pdftext", got.BestEngine)
	assert.WithinDuration(t, run.CreatedAt, got.CreatedAt, time.Second)
}

func TestScoreRuns_GetMissing(t *testing.T) {
	repo := NewScoreRunRepository(openSQLite(t), quiet)
	_, err := repo.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestScoreRuns_ListByDocument(t *testing.T) {
	ctx := context.Background()
	repo := NewScoreRunRepository(openSQLite(t), quiet)

	older := sampleRun("abc")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer := sampleRun("abc")
	other := sampleRun("def")
	for _, r := range []*ScoreRun{older, newer, other} {
		require.NoError(t, repo.Save(ctx, r))
	}

	runs, err := repo.ListByDocument(ctx, "abc", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Equal(t, older.ID, runs[1].ID)
	assert.Len(t, runs[0].Entries, 2)

	limited, err := repo.ListByDocument(ctx, "abc", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"}, quiet)
	assert.ErrorContains(t, err, "unsupported driver")
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: DriverPostgres}
	lite := &DB{driver: DriverSQLite}
	q := "SELECT * FROM t WHERE a = ? AND b = ?"
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.rebind(q))
	assert.Equal(t, q, lite.rebind(q))
}
