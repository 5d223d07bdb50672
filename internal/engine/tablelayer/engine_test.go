package tablelayer

import (
	"context"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/engine/pdfx"
	"github.com/joseph-ayodele/finextract/internal/extract"
)

func TestExtract_MalformedInputNeverPanics(t *testing.T) {
	e := New(nil)
	inputs := map[string][]byte{
		"empty":        nil,
		"not a pdf":    []byte("hello world"),
		"truncated":    []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog"),
		"garbage xref": []byte("%PDF-1.7\nxref\n0 1\nzzzz\ntrailer\n<<>>\nstartxref\n9\n%%EOF"),
		"binary mash":  {0x25, 0x50, 0x44, 0x46, 0x00, 0xff, 0xfe, 0x01},
	}
	for name, doc := range inputs {
		t.Run(name, func(t *testing.T) {
			var res extract.Result
			assert.NotPanics(t, func() {
				res = e.Extract(context.Background(), doc, extract.Options{})
			})
			assert.False(t, res.Success)
			assert.Equal(t, constants.EngineTableLayer, res.Engine)
			assert.NotEmpty(t, res.Error)
			assert.Nil(t, res.Payload)
		})
	}
}

func TestExtract_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := New(nil).Extract(ctx, []byte("%PDF-1.4"), extract.Options{})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "canceled")
}

func TestPageTables(t *testing.T) {
	rows := []pdfx.Row{
		pdfx.BuildRow(760, []pdf.Text{{X: 50, S: "Rent Roll"}}),
		pdfx.BuildRow(740, []pdf.Text{{X: 50, S: "Unit"}, {X: 150, S: "Tenant"}, {X: 300, S: "Rent"}}),
		pdfx.BuildRow(720, []pdf.Text{{X: 50, S: "101"}, {X: 150, S: "Acme"}, {X: 300, S: "1,200.00"}}),
		pdfx.BuildRow(700, []pdf.Text{{X: 50, S: "102"}, {X: 150, S: "Vacant"}, {X: 300, S: "0.00"}}),
	}
	tables := PageTables(2, rows)
	require.Len(t, tables, 1)
	assert.Equal(t, 2, tables[0].PageNumber)
	assert.Equal(t, "stream", tables[0].Method)
	assert.Equal(t, [][]string{
		{"Unit", "Tenant", "Rent"},
		{"101", "Acme", "1,200.00"},
		{"102", "Vacant", "0.00"},
	}, tables[0].Rows)
}
