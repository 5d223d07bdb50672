// Package engine holds the process-scoped set of extraction engines and the
// capabilities that were present when the process started.
package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/extract"
)

// Capability names an optional engine family.
type Capability string

const (
	CapabilityLattice  Capability = "lattice"
	CapabilityOCR      Capability = "ocr"
	CapabilityLayoutML Capability = "layout_ml"
)

// CapabilitySet is fixed at startup and never probed again.
type CapabilitySet struct {
	present map[Capability]bool
}

func NewCapabilitySet(caps ...Capability) CapabilitySet {
	m := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		m[c] = true
	}
	return CapabilitySet{present: m}
}

func (c CapabilitySet) Has(capability Capability) bool {
	return c.present[capability]
}

// List returns the present capabilities sorted by name.
func (c CapabilitySet) List() []Capability {
	out := make([]Capability, 0, len(c.present))
	for k, ok := range c.present {
		if ok {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Registration pairs an engine with the capability it provides. Baseline
// engines register with an empty capability.
type Registration struct {
	Engine     extract.Engine
	Capability Capability
	Closer     io.Closer // optional; released by Registry.Close
}

// Registry is built once, read concurrently, and released with Close.
type Registry struct {
	logger  *slog.Logger
	order   []string
	engines map[string]extract.Engine
	caps    CapabilitySet
	byCap   map[Capability][]string
	closers []io.Closer

	closeOnce sync.Once
	closeErr  error
}

// NewRegistry validates that both baseline engines are present and freezes
// the engine set.
func NewRegistry(logger *slog.Logger, regs ...Registration) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		logger:  logger,
		engines: make(map[string]extract.Engine, len(regs)),
		byCap:   make(map[Capability][]string),
	}
	var caps []Capability
	for _, reg := range regs {
		if reg.Engine == nil {
			return nil, errors.New("nil engine registration")
		}
		name := reg.Engine.Name()
		if _, dup := r.engines[name]; dup {
			return nil, fmt.Errorf("duplicate engine %q", name)
		}
		r.engines[name] = reg.Engine
		r.order = append(r.order, name)
		if reg.Capability != "" {
			r.byCap[reg.Capability] = append(r.byCap[reg.Capability], name)
			caps = append(caps, reg.Capability)
		}
		if reg.Closer != nil {
			r.closers = append(r.closers, reg.Closer)
		}
	}
	for _, name := range constants.BaselineEngines {
		if _, ok := r.engines[name]; !ok {
			return nil, fmt.Errorf("baseline engine %q is not registered", name)
		}
	}
	r.caps = NewCapabilitySet(caps...)

	logger.Info("engine registry ready",
		"engines", strings.Join(r.order, ","),
		"capabilities", fmt.Sprint(r.caps.List()),
	)
	return r, nil
}

func (r *Registry) Capabilities() CapabilitySet { return r.caps }

// Engine looks up an engine by name.
func (r *Registry) Engine(name string) (extract.Engine, bool) {
	e, ok := r.engines[name]
	return e, ok
}

// Names returns every registered engine name in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// All returns every registered engine in registration order.
func (r *Registry) All() []extract.Engine {
	out := make([]extract.Engine, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.engines[n])
	}
	return out
}

// ForCapability returns the engines behind a capability, in registration order.
func (r *Registry) ForCapability(c Capability) []extract.Engine {
	names := r.byCap[c]
	out := make([]extract.Engine, 0, len(names))
	for _, n := range names {
		out = append(out, r.engines[n])
	}
	return out
}

// Close releases model resources. Safe to call more than once.
func (r *Registry) Close() error {
	r.closeOnce.Do(func() {
		var errs []error
		for i := len(r.closers) - 1; i >= 0; i-- {
			if err := r.closers[i].Close(); err != nil {
				errs = append(errs, err)
			}
		}
		r.closeErr = errors.Join(errs...)
		r.logger.Info("engine registry closed", "closers", len(r.closers))
	})
	return r.closeErr
}
