package classify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/extract/extracttest"
)

type fakeInspector struct {
	st  Structure
	err error
}

func (f fakeInspector) Inspect(context.Context, []byte, int) (Structure, error) {
	return f.st, f.err
}

func TestClassify(t *testing.T) {
	prose := strings.Repeat("The property performed in line with budget this quarter. ", 20)
	table := strings.Repeat("Cash and equivalents  1,000.00\nAccounts receivable  (250.00)\n", 6)
	short := strings.Repeat("Scanned page footer with some text ", 6)

	cases := []struct {
		name      string
		inspector Inspector
		text      string
		failing   bool
		want      constants.Category
		wantConf  float64
	}{
		{"digital prose", fakeInspector{st: Structure{PageCount: 1, Inspected: 1}}, prose, false, constants.CategoryDigital, 100},
		{"table heavy", nil, table, false, constants.CategoryTableHeavy, 100},
		{"scanned with images", fakeInspector{st: Structure{PageCount: 2, ImagePages: 2, Inspected: 2}}, "", false, constants.CategoryScanned, 90},
		{"scanned sample failed", nil, "", true, constants.CategoryScanned, 60},
		{"mixed", fakeInspector{st: Structure{PageCount: 1, ImagePages: 1, Inspected: 1}}, short, false, constants.CategoryMixed, 70},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sampler := extracttest.Text(constants.EngineTextLayer, tc.text)
			if tc.failing {
				sampler = extracttest.Failing(constants.EngineTextLayer, "broken xref")
			}
			res := New(tc.inspector, sampler, nil).Classify(context.Background(), []byte("%PDF"))
			assert.Equal(t, tc.want, res.Category)
			assert.InDelta(t, tc.wantConf, res.Confidence, 0.001)
		})
	}
}

func TestClassify_RecordsErrors(t *testing.T) {
	c := New(fakeInspector{err: errors.New("pdfcpu read: bad xref")},
		extracttest.Failing(constants.EngineTextLayer, "no text layer"), nil)
	res := c.Classify(context.Background(), []byte("junk"))
	assert.Equal(t, constants.CategoryScanned, res.Category)
	assert.Contains(t, res.Diagnostics.InspectError, "bad xref")
	assert.Equal(t, "no text layer", res.Diagnostics.SampleError)
}

func TestClassify_SamplesBoundedPages(t *testing.T) {
	sampler := extracttest.Text(constants.EngineTextLayer, "x")
	New(nil, sampler, nil, WithSamplePages(2)).Classify(context.Background(), []byte("%PDF"))
	assert.Equal(t, 1, sampler.Calls())
}

func TestColumnarRatio(t *testing.T) {
	assert.Zero(t, ColumnarRatio(""))
	assert.InDelta(t, 0.5, ColumnarRatio("Total Assets  1,250.00\nPrepared by management"), 0.001)
	assert.InDelta(t, 1, ColumnarRatio("Rent  $1,200\nVacancy  (5.5)%"), 0.001)
}

func TestPDFCPUInspector_Malformed(t *testing.T) {
	_, err := PDFCPUInspector{}.Inspect(context.Background(), []byte("not a pdf"), 3)
	assert.Error(t, err)
}
