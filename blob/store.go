package blob

import (
	"context"

	"inviqa/request-basket/config"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("blob: not found")

// Store keeps opaque request bodies under generated identifiers. Delete is
// idempotent: removing a missing blob is not an error.
type Store interface {
	Put(ctx context.Context, body []byte) (string, error)
	Get(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
}

// Pinger is implemented by backends that can report their connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

func NewID() string {
	return uuid.New().String()
}

// NewStore opens the backend selected by BLOB_DRIVER. The returned func
// releases its connections.
func NewStore(cfg *config.Config) (Store, func(), error) {
	switch cfg.BlobDriver {
	case config.Redis:
		s := NewRedisStore(newRedisClient(cfg), cfg.RedisKeyPrefix)
		return s, s.close, nil
	case config.OSS:
		s, err := NewOSSStore(OSSConfig{
			Endpoint:        cfg.OSSEndpoint,
			Bucket:          cfg.OSSBucket,
			BasePrefix:      cfg.OSSBasePrefix,
			AccessKeyID:     cfg.OSSAccessKeyID,
			AccessKeySecret: cfg.OSSAccessKeySecret,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	}

	return nil, nil, errors.Errorf("blob: the driver configured (%s) is not supported", cfg.BlobDriver)
}
