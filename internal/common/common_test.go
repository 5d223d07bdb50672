package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/finextract/constants"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(viper.New())
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "auto", cfg.Extraction.Strategy)
	assert.Equal(t, 300, cfg.OCR.DPI)
	assert.True(t, cfg.Lattice.Enabled)
	assert.InDelta(t, 0.3, cfg.Scoring.TextLength, 1e-9)
	assert.Equal(t, 2000, cfg.Scoring.TargetChars)
	assert.Equal(t, "", cfg.Store.Driver)
	assert.Equal(t, 2, cfg.Watch.Workers)
	assert.Equal(t, 1, cfg.Extraction.EngineConcurrency)
	assert.Equal(t, 2, cfg.Extraction.DetectPages)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("FINEXTRACT_OCR_DPI", "150")
	t.Setenv("TESSDATA_PREFIX", "/usr/share/tessdata")
	t.Setenv("DB_URL", "postgres://u:p@localhost/finextract")

	cfg, err := LoadConfig(viper.New())
	require.NoError(t, err)
	assert.Equal(t, 150, cfg.OCR.DPI)
	assert.Equal(t, "/usr/share/tessdata", cfg.OCR.TessdataDir)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestLoadConfig_File(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
layout_models:
  - name: docmodel
    endpoint: http://localhost:8081/extract
    timeout: 30s
store:
  dsn: /tmp/runs.db
`)))
	cfg, err := LoadConfig(v)
	require.NoError(t, err)
	require.Len(t, cfg.LayoutModels, 1)
	assert.Equal(t, "docmodel", cfg.LayoutModels[0].Name)
	assert.Equal(t, "30s", cfg.LayoutModels[0].Timeout.String())
	assert.Equal(t, "sqlite", cfg.Store.Driver)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"dpi", func(c *Config) { c.OCR.DPI = 0 }, "ocr.dpi"},
		{"max pages", func(c *Config) { c.Extraction.MaxPages = -1 }, "max_pages"},
		{"model without name", func(c *Config) { c.LayoutModels = []LayoutModelConfig{{Endpoint: "x"}} }, "name is required"},
		{"duplicate model", func(c *Config) {
			c.LayoutModels = []LayoutModelConfig{{Name: "m", Endpoint: "x"}, {Name: "m", Endpoint: "y"}}
		}, "configured twice"},
		{"model without endpoint", func(c *Config) { c.LayoutModels = []LayoutModelConfig{{Name: "m"}} }, "no endpoint"},
		{"negative weight", func(c *Config) { c.Scoring.Speed = -1 }, "must not be negative"},
		{"zero weights", func(c *Config) { c.Scoring = ScoringConfig{} }, "at least one"},
		{"store without dsn", func(c *Config) { c.Store.Driver = "sqlite"; c.Store.DSN = "" }, "store.dsn"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mysql" }, "unsupported store.driver"},
		{"engine concurrency", func(c *Config) { c.Extraction.EngineConcurrency = 0 }, "engine_concurrency"},
		{"detect pages", func(c *Config) { c.Extraction.DetectPages = 0 }, "detect_pages"},
		{"workers", func(c *Config) { c.Watch.Workers = 0 }, "watch.workers"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(viper.New())
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrInvalidInput)

			var app *AppError
			require.True(t, errors.As(err, &app))
			assert.Equal(t, "CONFIG_ERROR", app.Code)
		})
	}
}

func TestStatusFromOutcome(t *testing.T) {
	tests := []struct {
		name    string
		success bool
		engine  string
		message string
		want    codes.Code
	}{
		{"success", true, constants.EngineTextLayer, "", codes.OK},
		{"no engine succeeded", false, constants.EngineNone, "no engine succeeded: pdftext: eof", codes.Unavailable},
		{"empty document", false, constants.EngineTextLayer, "empty document", codes.InvalidArgument},
		{"not a pdf", false, constants.EngineNone, "input is not a PDF", codes.InvalidArgument},
		{"engine failure", false, constants.EngineOCR, "tesseract crashed", codes.FailedPrecondition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := StatusFromOutcome(tt.success, tt.engine, tt.message)
			assert.Equal(t, tt.want, status.Code(err))
		})
	}
	assert.Contains(t, StatusFromOutcome(false, "x", " ").Error(), "extraction failed")
}

func TestStatusFromError(t *testing.T) {
	assert.NoError(t, StatusFromError(nil))
	assert.Equal(t, codes.NotFound, status.Code(StatusFromError(fmt.Errorf("%w: run 1", ErrNotFound))))
	assert.Equal(t, codes.InvalidArgument, status.Code(StatusFromError(fmt.Errorf("%w: bad", ErrValidation))))
	assert.Equal(t, codes.FailedPrecondition, status.Code(StatusFromError(NewAppError("CONFIG_ERROR", "x", nil))))
	assert.Equal(t, codes.Internal, status.Code(StatusFromError(fmt.Errorf("%w: conn refused", ErrDatabase))))
	assert.Equal(t, codes.NotFound, status.Code(NotFoundError("no score runs")))
}

func TestValidator(t *testing.T) {
	v := NewValidator().
		Field("code", "", Required).
		Field("name", "Harbor Point", Required, MaxLength(5)).
		Add("code", "HPA", "duplicates properties[0]")
	require.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 3)
	assert.ErrorIs(t, v.Error(), ErrValidation)
	assert.Contains(t, v.ErrorMessage(), "must be at most 5 characters")
	assert.Equal(t, codes.InvalidArgument, status.Code(ValidateAndReturnError(v)))

	ok := NewValidator().Field("code", "HPA", Required, MaxLength(64))
	assert.NoError(t, ok.Error())
	assert.NoError(t, ValidateAndReturnError(ok))
	assert.Empty(t, ok.ErrorMessage())
}

func TestContextIDs(t *testing.T) {
	ctx := WithDocumentID(WithRequestID(context.Background(), "req-1"), "abc")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "abc", DocumentIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	log.Info("hidden")
	log.Warn("shown", "engine", "pdftext")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"engine":"pdftext"`)

	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}
