package loader

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/engine"
	"github.com/joseph-ayodele/finextract/internal/engine/ocr"
)

type nopRecognizer struct{}

func (nopRecognizer) Recognize(context.Context, []byte, string) (string, float64, error) {
	return "", -1, nil
}

func found(string) (string, error) { return "/usr/bin/pdftoppm", nil }
func missing(string) (string, error) { return "", errors.New("not found") }

func recognizer(string) ocr.Recognizer { return nopRecognizer{} }

func baseConfig() *common.Config {
	return &common.Config{OCR: common.OCRConfig{Enabled: true, Pdftoppm: "pdftoppm", DPI: 300}}
}

func TestBuild_BaselineOnly(t *testing.T) {
	cfg := baseConfig()
	cfg.OCR.Enabled = false

	r, err := Build(cfg, Deps{LookPath: found, Recognizer: recognizer}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{constants.EngineTextLayer, constants.EngineTableLayer}, r.Names())
	assert.Empty(t, r.Capabilities().List())
}

func TestBuild_AllCapabilities(t *testing.T) {
	cfg := baseConfig()
	cfg.Lattice.Enabled = true
	cfg.LayoutModels = []common.LayoutModelConfig{
		{Name: "docmodel", Endpoint: "http://127.0.0.1:9/extract"},
		{Name: "tablemodel", Endpoint: "http://127.0.0.1:9/tables"},
	}

	r, err := Build(cfg, Deps{LookPath: found, Recognizer: recognizer}, nil)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{
		constants.EngineTextLayer,
		constants.EngineTableLayer,
		constants.EngineLattice,
		constants.EngineOCR,
		"layoutml:docmodel",
		"layoutml:tablemodel",
	}, r.Names())
	caps := r.Capabilities()
	assert.True(t, caps.Has(engine.CapabilityLattice))
	assert.True(t, caps.Has(engine.CapabilityOCR))
	assert.True(t, caps.Has(engine.CapabilityLayoutML))
	assert.NoError(t, r.Close())
}

func TestBuild_OCRPrerequisites(t *testing.T) {
	cases := []struct {
		name string
		deps Deps
	}{
		{"pdftoppm missing", Deps{LookPath: missing, Recognizer: recognizer}},
		{"no recognizer", Deps{LookPath: found}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := Build(baseConfig(), tc.deps, nil)
			require.NoError(t, err)
			assert.False(t, r.Capabilities().Has(engine.CapabilityOCR))
		})
	}
}

func TestBuild_BadLayoutModel(t *testing.T) {
	cfg := baseConfig()
	cfg.LayoutModels = []common.LayoutModelConfig{{Name: "x", Endpoint: "not-a-url"}}
	_, err := Build(cfg, Deps{LookPath: missing}, nil)
	assert.Error(t, err)

	_, err = Build(nil, Deps{}, nil)
	assert.Error(t, err)
}
