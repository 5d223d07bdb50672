package extract

import (
	"context"
	"time"
)

// Engine turns raw document bytes into a Result. Implementations must never
// panic past Extract and must be safe for concurrent use; wrap the body in Guard.
type Engine interface {
	Name() string
	Extract(ctx context.Context, doc []byte, opts Options) Result
}

// Options are per-call knobs shared by every engine.
type Options struct {
	Lang     string // tesseract style language code, default "eng"
	MaxPages int    // 0 = all pages
}

// Page is the text of one page, 1-indexed.
type Page struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

// Table is one detected table. Rows are cell texts in reading order.
type Table struct {
	PageNumber int        `json:"page_number"`
	Rows       [][]string `json:"rows"`
	Method     string     `json:"method,omitempty"` // "stream" | "lattice" | engine specific
	Accuracy   float64    `json:"accuracy,omitempty"`
}

// Metadata is the document level summary an engine could observe.
type Metadata struct {
	PageCount int    `json:"page_count"`
	WordCount int    `json:"word_count"`
	CharCount int    `json:"char_count"`
	Title     string `json:"title,omitempty"`
}

// Payload is the extracted content of a successful engine run.
type Payload struct {
	Text     string    `json:"text"`
	Pages    []Page    `json:"pages"`
	Tables   []Table   `json:"tables,omitempty"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// Result is produced by exactly one engine invocation and is never mutated
// after it is returned.
type Result struct {
	Engine         string   `json:"engine"`
	Success        bool     `json:"success"`
	Payload        *Payload `json:"payload,omitempty"`
	ProcessingTime float64  `json:"processing_time"` // seconds
	Error          string   `json:"error,omitempty"`

	// SelfConfidence is whatever the backend reports about itself (0..1).
	// Diagnostic only; ranking and scoring never read it.
	SelfConfidence float64  `json:"self_confidence,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`

	// Panicked marks a failure recovered from a panic inside the engine.
	Panicked bool `json:"panicked,omitempty"`
}

// Text returns the full text of a successful result, or "".
func (r Result) Text() string {
	if !r.Success || r.Payload == nil {
		return ""
	}
	return r.Payload.Text
}

// CharCount is the rune count of the extracted text.
func (r Result) CharCount() int {
	return len([]rune(r.Text()))
}

// Failure builds a failed Result.
func Failure(engine string, err error, elapsed time.Duration) Result {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Result{
		Engine:         engine,
		Success:        false,
		ProcessingTime: elapsed.Seconds(),
		Error:          msg,
	}
}
