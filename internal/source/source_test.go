package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/finextract/internal/common"
)

func TestLocal_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7"), 0o600))

	b, err := Local{}.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(b))

	b, err = Local{}.Load(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.NotEmpty(t, b)

	_, err = Local{}.Load(context.Background(), filepath.Join(dir, "missing.pdf"))
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = Local{}.Load(context.Background(), " ")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Local{}.Load(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseS3Ref(t *testing.T) {
	tests := []struct {
		ref, bucket, key string
		wantErr          bool
	}{
		{ref: "s3://docs/2024/rent.pdf", bucket: "docs", key: "2024/rent.pdf"},
		{ref: "s3://docs/a.pdf", bucket: "docs", key: "a.pdf"},
		{ref: "s3://docs", wantErr: true},
		{ref: "s3://docs/", wantErr: true},
		{ref: "s3:///a.pdf", wantErr: true},
		{ref: "/local/a.pdf", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			bucket, key, err := ParseS3Ref(tt.ref)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestNewS3_Config(t *testing.T) {
	_, err := NewS3(common.StorageConfig{}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = NewS3(common.StorageConfig{Endpoint: "localhost:9000"}, nil)
	assert.ErrorContains(t, err, "credentials")

	s, err := NewS3(common.StorageConfig{Endpoint: "http://localhost:9000", AccessKey: "k", SecretKey: "s"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, s)
}

type stubLoader struct {
	got  *string
	body string
}

func (s stubLoader) Load(_ context.Context, ref string) ([]byte, error) {
	*s.got = ref
	return []byte(s.body), nil
}

func TestMux(t *testing.T) {
	var localRef, s3Ref string
	m := Mux{Local: stubLoader{got: &localRef, body: "local"}, S3: stubLoader{got: &s3Ref, body: "remote"}}

	b, err := m.Load(context.Background(), "s3://docs/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "remote", string(b))
	assert.Equal(t, "s3://docs/a.pdf", s3Ref)

	b, err = m.Load(context.Background(), "/tmp/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "local", string(b))
	assert.Equal(t, "/tmp/a.pdf", localRef)

	_, err = Mux{}.Load(context.Background(), "s3://docs/a.pdf")
	assert.ErrorContains(t, err, "storage is not configured")
}
