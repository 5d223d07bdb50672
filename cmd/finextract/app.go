package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"github.com/spf13/viper"

	"github.com/joseph-ayodele/finextract/internal/classify"
	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/engine"
	"github.com/joseph-ayodele/finextract/internal/engine/loader"
	"github.com/joseph-ayodele/finextract/internal/engine/ocr"
	"github.com/joseph-ayodele/finextract/internal/engine/ocr/tess"
	"github.com/joseph-ayodele/finextract/internal/engine/textlayer"
	"github.com/joseph-ayodele/finextract/internal/orchestrator"
	"github.com/joseph-ayodele/finextract/internal/repository"
	"github.com/joseph-ayodele/finextract/internal/scoring"
	"github.com/joseph-ayodele/finextract/internal/source"
)

// app is the process-scoped runtime shared by every subcommand.
type app struct {
	cfg       *common.Config
	logger    *slog.Logger
	registry  *engine.Registry
	extractor *orchestrator.Extractor
	loader    source.Loader
	db        *repository.DB
}

var rt *app

func setup() error {
	cfg, err := common.LoadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := common.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	reg, err := loader.Build(cfg, loader.Deps{
		LookPath:   exec.LookPath,
		Recognizer: func(dir string) ocr.Recognizer { return tess.New(dir) },
		Runner:     ocr.ExecRunner{},
	}, logger)
	if err != nil {
		return err
	}

	scorer := scoring.NewService(scoring.Factors{
		TextLength:    cfg.Scoring.TextLength,
		Structure:     cfg.Scoring.Structure,
		Readability:   cfg.Scoring.Readability,
		Speed:         cfg.Scoring.Speed,
		Completeness:  cfg.Scoring.Completeness,
		TargetChars:   cfg.Scoring.TargetChars,
		TargetSeconds: cfg.Scoring.TargetSeconds,
	}, logger)
	classifier := classify.New(classify.PDFCPUInspector{}, textlayer.New(logger), logger)

	mux := source.Mux{Local: source.Local{}}
	if cfg.Storage.Endpoint != "" {
		s3, err := source.NewS3(cfg.Storage, logger)
		if err != nil {
			_ = reg.Close()
			return err
		}
		mux.S3 = s3
	}

	rt = &app{
		cfg:       cfg,
		logger:    logger,
		registry:  reg,
		extractor: orchestrator.New(reg, classifier, scorer, logger,
			orchestrator.WithConcurrency(cfg.Extraction.EngineConcurrency),
			orchestrator.WithDetectPages(cfg.Extraction.DetectPages),
		),
		loader:    mux,
	}
	logger.Debug("runtime ready", "engines", reg.Names(), "capabilities", reg.Capabilities().List())
	return nil
}

// store opens the score history database on first use.
func (a *app) store(ctx context.Context) (*repository.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	if a.cfg.Store.Driver == "" {
		return nil, common.NewAppError("CONFIG_ERROR", "score history needs store.driver and store.dsn", common.ErrInvalidInput)
	}
	db, err := repository.Open(ctx, repository.Config{
		Driver:   a.cfg.Store.Driver,
		DSN:      a.cfg.Store.DSN,
		MaxConns: a.cfg.Store.MaxConns,
	}, a.logger)
	if err != nil {
		return nil, err
	}
	a.db = db
	return db, nil
}

func teardown() {
	if rt == nil {
		return
	}
	if rt.db != nil {
		_ = rt.db.Close()
	}
	if err := rt.registry.Close(); err != nil {
		rt.logger.Warn("registry close failed", "error", err)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
