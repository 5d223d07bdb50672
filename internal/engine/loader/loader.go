// Package loader builds the engine registry once at process start.
package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"

	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/engine"
	"github.com/joseph-ayodele/finextract/internal/engine/lattice"
	"github.com/joseph-ayodele/finextract/internal/engine/layoutml"
	"github.com/joseph-ayodele/finextract/internal/engine/ocr"
	"github.com/joseph-ayodele/finextract/internal/engine/tablelayer"
	"github.com/joseph-ayodele/finextract/internal/engine/textlayer"
)

// Deps are the environment hooks the loader probes. Recognizer is nil when
// the binary was built without OCR support.
type Deps struct {
	LookPath   func(file string) (string, error)
	Recognizer func(tessdataDir string) ocr.Recognizer
	Runner     ocr.Runner
	HTTPClient *http.Client
}

func (d Deps) withDefaults() Deps {
	if d.LookPath == nil {
		d.LookPath = exec.LookPath
	}
	if d.Runner == nil {
		d.Runner = ocr.ExecRunner{}
	}
	return d
}

// Build registers the baseline engines plus every optional engine whose
// prerequisites are present right now. Missing prerequisites disable the
// capability and are logged; a broken layout model config is an error.
func Build(cfg *common.Config, deps Deps, logger *slog.Logger) (*engine.Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		return nil, errors.New("loader: nil config")
	}
	deps = deps.withDefaults()

	regs := []engine.Registration{
		{Engine: textlayer.New(logger)},
		{Engine: tablelayer.New(logger)},
	}

	if cfg.Lattice.Enabled {
		regs = append(regs, engine.Registration{Engine: lattice.New(logger), Capability: engine.CapabilityLattice})
	}

	if reg, ok := ocrRegistration(cfg.OCR, deps, logger); ok {
		regs = append(regs, reg)
	}

	for _, m := range cfg.LayoutModels {
		e, err := layoutml.New(layoutml.ModelConfig{
			Name:       m.Name,
			Endpoint:   m.Endpoint,
			APIKey:     m.APIKey,
			Timeout:    m.Timeout,
			MaxRetries: m.MaxRetries,
		}, deps.HTTPClient, logger)
		if err != nil {
			return nil, fmt.Errorf("loader: %w", err)
		}
		regs = append(regs, engine.Registration{Engine: e, Capability: engine.CapabilityLayoutML, Closer: e})
	}

	return engine.NewRegistry(logger, regs...)
}

func ocrRegistration(cfg common.OCRConfig, deps Deps, logger *slog.Logger) (engine.Registration, bool) {
	if !cfg.Enabled {
		logger.Info("ocr capability disabled by config")
		return engine.Registration{}, false
	}
	if deps.Recognizer == nil {
		logger.Info("ocr capability unavailable", "reason", "no recognizer in this build")
		return engine.Registration{}, false
	}
	bin, err := deps.LookPath(cfg.Pdftoppm)
	if err != nil {
		logger.Info("ocr capability unavailable", "reason", "pdftoppm not found", "pdftoppm", cfg.Pdftoppm, "error", err)
		return engine.Registration{}, false
	}
	e := ocr.New(ocr.Config{
		Pdftoppm:      bin,
		Lang:          cfg.Lang,
		DPI:           cfg.DPI,
		MaxPages:      cfg.MaxPages,
		MaxImageWidth: cfg.MaxImageWidth,
		WorkDir:       cfg.WorkDir,
	}, deps.Runner, deps.Recognizer(cfg.TessdataDir), logger)
	return engine.Registration{Engine: e, Capability: engine.CapabilityOCR}, true
}
