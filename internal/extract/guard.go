package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrEmptyDocument is returned by engines handed a zero-length buffer.
var ErrEmptyDocument = errors.New("empty document")

// Guard runs fn on behalf of engine and converts every outcome into a Result:
// returned errors and recovered panics both become Success=false.
func Guard(ctx context.Context, engine string, logger *slog.Logger, fn func(ctx context.Context) (*Payload, error)) (res Result) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Warn("engine panicked", "engine", engine, "panic", fmt.Sprint(r))
			res = Failure(engine, fmt.Errorf("engine panic: %v", r), time.Since(start))
			res.Panicked = true
		}
	}()

	if err := ctx.Err(); err != nil {
		return Failure(engine, err, time.Since(start))
	}

	payload, err := fn(ctx)
	elapsed := time.Since(start)
	if err != nil {
		logger.Warn("engine failed", "engine", engine, "error", err, "elapsed_ms", elapsed.Milliseconds())
		return Failure(engine, err, elapsed)
	}
	if payload == nil {
		return Failure(engine, errors.New("engine returned no payload"), elapsed)
	}

	logger.Debug("engine ok",
		"engine", engine,
		"pages", len(payload.Pages),
		"tables", len(payload.Tables),
		"chars", len([]rune(payload.Text)),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return Result{
		Engine:         engine,
		Success:        true,
		Payload:        payload,
		ProcessingTime: elapsed.Seconds(),
	}
}

// NewPayload assembles a Payload from per-page text, filling the full text and
// the metadata counters. Page texts are normalised.
func NewPayload(pages []Page, tables []Table, pageCount int) *Payload {
	out := make([]Page, 0, len(pages))
	texts := make([]string, 0, len(pages))
	for _, p := range pages {
		t := Normalize(p.Text)
		out = append(out, Page{PageNumber: p.PageNumber, Text: t})
		if t != "" {
			texts = append(texts, t)
		}
	}
	full := joinPages(texts)
	if pageCount < len(out) {
		pageCount = len(out)
	}
	return &Payload{
		Text:   full,
		Pages:  out,
		Tables: tables,
		Metadata: &Metadata{
			PageCount: pageCount,
			WordCount: WordCount(full),
			CharCount: len([]rune(full)),
		},
	}
}

func joinPages(texts []string) string {
	n := 0
	for _, t := range texts {
		n += len(t) + 2
	}
	b := make([]byte, 0, n)
	for i, t := range texts {
		if i > 0 {
			b = append(b, '\n', '\n')
		}
		b = append(b, t...)
	}
	return string(b)
}
