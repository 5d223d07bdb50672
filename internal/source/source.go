package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/joseph-ayodele/finextract/internal/common"
)

// Loader fetches the raw bytes of a document reference.
type Loader interface {
	Load(ctx context.Context, ref string) ([]byte, error)
}

// Local reads documents from the filesystem.
type Local struct{}

func (Local) Load(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := strings.TrimPrefix(ref, "file://")
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: empty path", common.ErrInvalidInput)
	}
	b, err := os.ReadFile(filepath.Clean(path))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", common.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", common.ErrStorage, path, err)
	}
	return b, nil
}

// objectGetter is the slice of the minio client S3 uses.
type objectGetter interface {
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (*minio.Object, error)
}

// S3 reads `s3://bucket/key` references from MinIO or any S3-compatible store.
type S3 struct {
	client objectGetter
	logger *slog.Logger
}

// NewS3 builds a client from storage config with static V4 credentials.
func NewS3(cfg common.StorageConfig, logger *slog.Logger) (*S3, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Endpoint == "" {
		return nil, common.NewAppError("CONFIG_ERROR", "storage.endpoint is required", common.ErrInvalidInput)
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, common.NewAppError("CONFIG_ERROR", "storage credentials are required", common.ErrInvalidInput)
	}

	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create minio client: %v", common.ErrStorage, err)
	}
	return &S3{client: client, logger: logger}, nil
}

func (s *S3) Load(ctx context.Context, ref string) ([]byte, error) {
	bucket, key, err := ParseS3Ref(ref)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classify(bucket, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, classify(bucket, key, err)
	}
	s.logger.Debug("source.s3.loaded", "bucket", bucket, "key", key, "bytes", len(data))
	return data, nil
}

func classify(bucket, key string, err error) error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: s3://%s/%s", common.ErrNotFound, bucket, key)
	}
	return fmt.Errorf("%w: get s3://%s/%s: %v", common.ErrStorage, bucket, key, err)
}

// ParseS3Ref splits `s3://bucket/key/parts` into bucket and key.
func ParseS3Ref(ref string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(ref, "s3://")
	if !ok {
		return "", "", fmt.Errorf("%w: not an s3 reference: %q", common.ErrInvalidInput, ref)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || strings.Trim(key, "/") == "" {
		return "", "", fmt.Errorf("%w: s3 reference needs bucket and key: %q", common.ErrInvalidInput, ref)
	}
	return bucket, key, nil
}

// Mux routes references by scheme. A nil S3 rejects s3:// references.
type Mux struct {
	Local Loader
	S3    Loader
}

func (m Mux) Load(ctx context.Context, ref string) ([]byte, error) {
	if strings.HasPrefix(ref, "s3://") {
		if m.S3 == nil {
			return nil, common.NewAppError("CONFIG_ERROR", "s3 source requested but storage is not configured", common.ErrInvalidInput)
		}
		return m.S3.Load(ctx, ref)
	}
	local := m.Local
	if local == nil {
		local = Local{}
	}
	return local.Load(ctx, ref)
}
