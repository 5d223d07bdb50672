package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/extract/extracttest"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func baseline() []Registration {
	return []Registration{
		{Engine: extracttest.Text(constants.EngineTextLayer, "a")},
		{Engine: extracttest.Text(constants.EngineTableLayer, "b")},
	}
}

func TestNewRegistry(t *testing.T) {
	t.Run("baseline only", func(t *testing.T) {
		r, err := NewRegistry(nil, baseline()...)
		require.NoError(t, err)
		assert.Equal(t, []string{constants.EngineTextLayer, constants.EngineTableLayer}, r.Names())
		assert.Empty(t, r.Capabilities().List())
		assert.False(t, r.Capabilities().Has(CapabilityOCR))
		assert.Empty(t, r.ForCapability(CapabilityOCR))
	})

	t.Run("optional engines", func(t *testing.T) {
		regs := append(baseline(),
			Registration{Engine: extracttest.Text(constants.EngineOCR, "c"), Capability: CapabilityOCR},
			Registration{Engine: extracttest.Text("layoutml:b", "d"), Capability: CapabilityLayoutML},
			Registration{Engine: extracttest.Text("layoutml:a", "e"), Capability: CapabilityLayoutML},
		)
		r, err := NewRegistry(nil, regs...)
		require.NoError(t, err)
		assert.Equal(t, []Capability{CapabilityLayoutML, CapabilityOCR}, r.Capabilities().List())
		assert.Len(t, r.All(), 5)

		models := r.ForCapability(CapabilityLayoutML)
		require.Len(t, models, 2)
		assert.Equal(t, "layoutml:b", models[0].Name())

		e, ok := r.Engine(constants.EngineOCR)
		require.True(t, ok)
		assert.Equal(t, constants.EngineOCR, e.Name())
		_, ok = r.Engine("missing")
		assert.False(t, ok)
	})

	t.Run("missing baseline", func(t *testing.T) {
		_, err := NewRegistry(nil, Registration{Engine: extracttest.Text(constants.EngineTextLayer, "a")})
		assert.ErrorContains(t, err, constants.EngineTableLayer)
	})

	t.Run("duplicate", func(t *testing.T) {
		regs := append(baseline(), Registration{Engine: extracttest.Text(constants.EngineTextLayer, "x")})
		_, err := NewRegistry(nil, regs...)
		assert.ErrorContains(t, err, "duplicate")
	})

	t.Run("nil engine", func(t *testing.T) {
		_, err := NewRegistry(nil, append(baseline(), Registration{})...)
		assert.Error(t, err)
	})
}

func TestRegistry_CloseReverseOrderOnce(t *testing.T) {
	var order []string
	mk := func(name string, err error) closerFunc {
		return func() error {
			order = append(order, name)
			return err
		}
	}
	regs := append(baseline(),
		Registration{Engine: extracttest.Text("layoutml:a", ""), Capability: CapabilityLayoutML, Closer: mk("a", nil)},
		Registration{Engine: extracttest.Text("layoutml:b", ""), Capability: CapabilityLayoutML, Closer: mk("b", errors.New("b failed"))},
	)
	r, err := NewRegistry(nil, regs...)
	require.NoError(t, err)

	err = r.Close()
	assert.ErrorContains(t, err, "b failed")
	assert.Equal(t, []string{"b", "a"}, order)

	assert.Equal(t, err, r.Close())
	assert.Len(t, order, 2)
}
