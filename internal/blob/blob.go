package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/clinicore/migration-engine/internal/config"
)

// Store durably retains uploaded source files for the duration of a
// migration run, keyed by job. Files are kept after the run so failed rows
// can be re-inspected against the original upload.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Type() string
}

// New builds the blob store selected by the configuration.
func New(cfg *config.Config) (Store, error) {
	switch cfg.Blob.Type {
	case "minio":
		return NewMinioStore(
			WithEndpoint(cfg.Blob.Endpoint),
			WithBucket(cfg.Blob.Bucket),
			WithAccessKey(cfg.Blob.AccessKey),
			WithSecretKey(cfg.Blob.SecretAccessKey),
			WithSSL(cfg.Blob.UseSSL),
		)
	case "fs":
		return NewFsStore(cfg.Blob.LocalFolder)
	default:
		return nil, fmt.Errorf("unknown blob store type %q", cfg.Blob.Type)
	}
}
