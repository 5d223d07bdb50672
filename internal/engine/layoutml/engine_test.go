package layoutml

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/finextract/internal/extract"
)

func init() {
	RetryBaseDelay = time.Millisecond
}

func newEngine(t *testing.T, handler http.HandlerFunc) (*Engine, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	e, err := New(ModelConfig{Name: "docmodel", Endpoint: ts.URL, APIKey: "secret", MaxRetries: 2}, ts.Client(), nil)
	require.NoError(t, err)
	return e, ts
}

func TestNew_Validation(t *testing.T) {
	_, err := New(ModelConfig{Endpoint: "http://x"}, nil, nil)
	assert.Error(t, err)
	_, err = New(ModelConfig{Name: "m", Endpoint: "ftp://x"}, nil, nil)
	assert.Error(t, err)

	e, err := New(ModelConfig{Name: " m ", Endpoint: "https://models.local/m"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "layoutml:m", e.Name())
	assert.NoError(t, e.Close())
}

func TestExtract_Success(t *testing.T) {
	var got request
	e, _ := newEngine(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{
			"pages": [{"page": "1", "content": "Balance Sheet"}, {"page_number": 2, "text": null}],
			"tables": [{"page_number": 1, "rows": [["Cash", 1000.5], [null, "x"]]}],
			"confidence": 93,
			"title": null
		}`))
	})

	res := e.Extract(context.Background(), []byte("%PDF-1.7"), extract.Options{Lang: "eng"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "layoutml:docmodel", res.Engine)
	assert.Equal(t, "Balance Sheet", res.Payload.Text)
	require.Len(t, res.Payload.Pages, 2)
	assert.Equal(t, 1, res.Payload.Pages[0].PageNumber)
	require.Len(t, res.Payload.Tables, 1)
	assert.Equal(t, [][]string{{"Cash", "1000.5"}, {"", "x"}}, res.Payload.Tables[0].Rows)
	assert.InDelta(t, 0.93, res.SelfConfidence, 0.0001)
	assert.NotEmpty(t, res.Warnings)

	assert.Equal(t, "docmodel", got.Model)
	assert.Equal(t, "eng", got.Lang)
	decoded, err := base64.StdEncoding.DecodeString(got.Document)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(decoded))
}

func TestExtract_RetriesOn429(t *testing.T) {
	var calls int32
	e, _ := newEngine(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"pages": [{"page_number": 1, "text": "ok"}]}`))
	})

	res := e.Extract(context.Background(), []byte("%PDF"), extract.Options{})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestExtract_Failures(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"oom"}`, "non-2xx status: 500"},
		{"rate limit exhausted", http.StatusTooManyRequests, ``, "non-2xx status: 429"},
		{"schema violation", http.StatusOK, `{"text": "no pages"}`, "does not match schema"},
		{"bad page number", http.StatusOK, `{"pages": [{"page_number": 0, "text": "x"}]}`, "does not match schema"},
		{"not json", http.StatusOK, `<html>`, "decode"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, _ := newEngine(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			res := e.Extract(context.Background(), []byte("%PDF"), extract.Options{})
			assert.False(t, res.Success)
			assert.Contains(t, res.Error, tc.wantErr)
			assert.Zero(t, res.SelfConfidence)
		})
	}
}

func TestExtract_EmptyDocumentSkipsNetwork(t *testing.T) {
	var calls int32
	e, _ := newEngine(t, func(http.ResponseWriter, *http.Request) { atomic.AddInt32(&calls, 1) })
	res := e.Extract(context.Background(), nil, extract.Options{})
	assert.False(t, res.Success)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestSanitize(t *testing.T) {
	out, notes, err := sanitize([]byte(`{"pages":[{"number":"3","content":"x"}],"tables":null,"confidence":0.5}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"pages":[{"page_number":3,"text":"x"}],"confidence":0.5}`, string(out))
	assert.Contains(t, notes, "tables(null)")

	_, _, err = sanitize([]byte(`[1,2]`))
	assert.Error(t, err)
}
