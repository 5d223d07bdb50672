package extract_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/finextract/internal/extract"
)

func TestGuard(t *testing.T) {
	tests := []struct {
		name    string
		fn      func(context.Context) (*extract.Payload, error)
		wantOK  bool
		wantErr string
	}{
		{
			name: "success",
			fn: func(context.Context) (*extract.Payload, error) {
				return extract.NewPayload([]extract.Page{{PageNumber: 1, Text: "Balance Sheet"}}, nil, 1), nil
			},
			wantOK: true,
		},
		{
			name:    "error becomes failure",
			fn:      func(context.Context) (*extract.Payload, error) { return nil, errors.New("corrupt xref") },
			wantErr: "corrupt xref",
		},
		{
			name:    "panic becomes failure",
			fn:      func(context.Context) (*extract.Payload, error) { panic("malformed stream") },
			wantErr: "engine panic: malformed stream",
		},
		{
			name:    "nil payload",
			fn:      func(context.Context) (*extract.Payload, error) { return nil, nil },
			wantErr: "engine returned no payload",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := extract.Guard(context.Background(), "pdftext", nil, tt.fn)
			assert.Equal(t, "pdftext", res.Engine)
			assert.Equal(t, tt.wantOK, res.Success)
			assert.Equal(t, tt.wantErr, res.Error)
			assert.GreaterOrEqual(t, res.ProcessingTime, 0.0)
			assert.Equal(t, tt.name == "panic becomes failure", res.Panicked)
			if !tt.wantOK {
				assert.Nil(t, res.Payload)
				assert.Empty(t, res.Text())
			}
		})
	}
}

func TestGuard_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	res := extract.Guard(ctx, "ocr", nil, func(context.Context) (*extract.Payload, error) {
		called = true
		return &extract.Payload{}, nil
	})
	assert.False(t, called)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "context canceled")
}

func TestNewPayload(t *testing.T) {
	p := extract.NewPayload([]extract.Page{
		{PageNumber: 1, Text: "ABC Properties\r\nBalance   Sheet\t\tDecember 2024"},
		{PageNumber: 2, Text: ""},
		{PageNumber: 3, Text: "Total Assets  1,000.00"},
	}, nil, 4)

	require.NotNil(t, p.Metadata)
	assert.Len(t, p.Pages, 3)
	assert.Equal(t, "ABC Properties\nBalance  Sheet  December 2024\n\nTotal Assets  1,000.00", p.Text)
	assert.Equal(t, 4, p.Metadata.PageCount)
	assert.Equal(t, 9, p.Metadata.WordCount)
	assert.Equal(t, len([]rune(p.Text)), p.Metadata.CharCount)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"  line one  \r\n\r\n\r\n\r\nline two", "line one\n\nline two"},
		{"header\n-------\nbody", "header\n\nbody"},
		{"ﬁnancial", "financial"}, // NFKC folds the ligature
		{"page one\fpage two", "page one\npage two"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extract.Normalize(tt.in), "input %q", tt.in)
	}
}

func TestResultHelpers(t *testing.T) {
	res := extract.Result{Engine: "x", Success: true, Payload: &extract.Payload{Text: "héllo"}}
	assert.Equal(t, "héllo", res.Text())
	assert.Equal(t, 5, res.CharCount())

	failed := extract.Failure("x", nil, 0)
	assert.False(t, failed.Success)
	assert.Equal(t, "unknown error", failed.Error)
}
