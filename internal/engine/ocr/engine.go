// Package ocr is the optional OCR engine: pages are rasterised with pdftoppm
// and recognised by a Recognizer (tesseract via gosseract in production).
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/extract"
)

// Recognizer turns one page image into text. Confidence is the engine's own
// mean word confidence on a 0..100 scale, or a negative value if unknown.
type Recognizer interface {
	Recognize(ctx context.Context, img []byte, lang string) (text string, confidence float64, err error)
}

type Config struct {
	Pdftoppm      string // binary name or absolute path; if empty -> "pdftoppm"
	Lang          string // default "eng"
	DPI           int    // default 300
	MaxPages      int    // 0 = no limit; per-call Options.MaxPages wins when lower
	MaxImageWidth int    // pages wider than this are downscaled; 0 = never
	WorkDir       string // parent for temp raster dirs; "" = os.TempDir
}

type Engine struct {
	cfg    Config
	runner Runner
	rec    Recognizer
	logger *slog.Logger
}

func New(cfg Config, runner Runner, rec Recognizer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Engine{cfg: cfg, runner: runner, rec: rec, logger: logger}
}

func (e *Engine) Name() string { return constants.EngineOCR }

func (e *Engine) Extract(ctx context.Context, doc []byte, opts extract.Options) extract.Result {
	var selfConf float64
	var warnings []string
	res := extract.Guard(ctx, e.Name(), e.logger, func(ctx context.Context) (*extract.Payload, error) {
		if len(doc) == 0 {
			return nil, extract.ErrEmptyDocument
		}
		if e.rec == nil {
			return nil, fmt.Errorf("ocr recognizer not configured")
		}
		lang := opts.Lang
		if lang == "" {
			lang = e.cfg.Lang
		}

		images, cleanup, err := e.rasterize(ctx, doc, e.maxPages(opts.MaxPages))
		if err != nil {
			return nil, err
		}
		defer cleanup()

		pages := make([]extract.Page, 0, len(images))
		var confSum float64
		var confN int
		for i, path := range images {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			img, err := loadPage(path, e.cfg.MaxImageWidth)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("page %d: %v", i+1, err))
				pages = append(pages, extract.Page{PageNumber: i + 1})
				continue
			}
			text, conf, err := e.rec.Recognize(ctx, img, lang)
			if err != nil {
				e.logger.Warn("processor.ocr.page_failed", "page", i+1, "error", err)
				warnings = append(warnings, fmt.Sprintf("page %d: %v", i+1, err))
				pages = append(pages, extract.Page{PageNumber: i + 1})
				continue
			}
			if conf >= 0 {
				confSum += conf
				confN++
			}
			pages = append(pages, extract.Page{PageNumber: i + 1, Text: text})
		}
		if len(warnings) == len(images) {
			return nil, fmt.Errorf("ocr failed on every page: %s", strings.Join(warnings, "; "))
		}
		if confN > 0 {
			selfConf = confSum / float64(confN) / 100
		}
		return extract.NewPayload(pages, nil, len(images)), nil
	})
	if res.Success {
		res.SelfConfidence = selfConf
		res.Warnings = warnings
	}
	return res
}

func (e *Engine) maxPages(perCall int) int {
	switch {
	case perCall > 0 && (e.cfg.MaxPages <= 0 || perCall < e.cfg.MaxPages):
		return perCall
	default:
		return e.cfg.MaxPages
	}
}
