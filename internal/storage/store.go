package storage

import "context"

// ObjectStore persists generated assets under opaque keys. Implementations:
// FileStore for development, MinioStore for S3-compatible deployments.
type ObjectStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
}
