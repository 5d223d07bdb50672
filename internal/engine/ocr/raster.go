package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"golang.org/x/image/draw"
)

var errNoPagesRendered = errors.New("pdftoppm produced no images")

// rasterize renders the first maxPages pages of doc to PNG files in a fresh
// temp dir and returns their paths in page order plus a cleanup func.
func (e *Engine) rasterize(ctx context.Context, doc []byte, maxPages int) ([]string, func(), error) {
	tmpDir, err := os.MkdirTemp(e.cfg.WorkDir, "finextract-ocr-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create raster dir: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("failed to remove raster dir", "dir", tmpDir, "error", err)
		}
	}

	in := filepath.Join(tmpDir, "in.pdf")
	if err := os.WriteFile(in, doc, 0o600); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("write raster input: %w", err)
	}

	prefix := filepath.Join(tmpDir, "page")
	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if maxPages > 0 {
		args = append(args, "-f", "1", "-l", strconv.Itoa(maxPages))
	}
	args = append(args, in, prefix)

	// pdftoppm -r 300 -png [-f 1 -l N] in.pdf tmp/page
	if _, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, e.logger, args...); err != nil {
		cleanup()
		return nil, nil, rasterFailure(err, errb)
	}

	// page numbers are zero padded to a common width, so lexical order is page order
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if maxPages > 0 && len(matches) > maxPages {
		matches = matches[:maxPages]
	}
	if len(matches) == 0 {
		cleanup()
		return nil, nil, errNoPagesRendered
	}
	return matches, cleanup, nil
}

// rasterFailure prefixes a pdftoppm failure, attaching stderr when the runner
// did not already classify it.
func rasterFailure(err error, stderr []byte) error {
	var te *ToolError
	if !errors.As(err, &te) {
		if line := firstLine(stderr, 512); line != "" {
			return fmt.Errorf("pdftoppm: %w: %s", err, line)
		}
	}
	return fmt.Errorf("pdftoppm: %w", err)
}

// loadPage reads a rendered page and downscales it when wider than maxWidth.
func loadPage(path string, maxWidth int) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if maxWidth <= 0 {
		return raw, nil
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode page header: %w", err)
	}
	if cfg.Width <= maxWidth {
		return raw, nil
	}
	src, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	return downscale(src, maxWidth)
}

func downscale(src image.Image, maxWidth int) ([]byte, error) {
	b := src.Bounds()
	h := b.Dy() * maxWidth / b.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode page: %w", err)
	}
	return buf.Bytes(), nil
}
