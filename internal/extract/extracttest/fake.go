// Package extracttest provides scripted engines for tests.
package extracttest

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/joseph-ayodele/finextract/internal/extract"
)

// Fake is an extract.Engine that returns a canned payload or error. Calls counts
// Extract invocations.
type Fake struct {
	EngineName string
	Text       string
	Pages      []extract.Page
	Tables     []extract.Table
	Err        error
	Panic      any

	calls atomic.Int64
}

// Text builds a Fake that succeeds with the given full text as a single page.
func Text(name, text string) *Fake {
	return &Fake{EngineName: name, Text: text}
}

// Failing builds a Fake that always fails with msg.
func Failing(name, msg string) *Fake {
	return &Fake{EngineName: name, Err: errors.New(msg)}
}

func (f *Fake) Name() string { return f.EngineName }

func (f *Fake) Calls() int { return int(f.calls.Load()) }

func (f *Fake) Extract(ctx context.Context, _ []byte, opts extract.Options) extract.Result {
	f.calls.Add(1)
	return extract.Guard(ctx, f.EngineName, nil, func(context.Context) (*extract.Payload, error) {
		if f.Panic != nil {
			panic(f.Panic)
		}
		if f.Err != nil {
			return nil, f.Err
		}
		pages := f.Pages
		if len(pages) == 0 {
			pages = []extract.Page{{PageNumber: 1, Text: f.Text}}
		}
		if opts.MaxPages > 0 && len(pages) > opts.MaxPages {
			pages = pages[:opts.MaxPages]
		}
		return extract.NewPayload(pages, f.Tables, len(pages)), nil
	})
}
