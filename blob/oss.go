package blob

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/pkg/errors"
)

type OSSConfig struct {
	Endpoint        string
	Bucket          string
	BasePrefix      string
	AccessKeyID     string
	AccessKeySecret string
}

type OSSStore struct {
	bucket     *oss.Bucket
	basePrefix string
}

func NewOSSStore(cfg OSSConfig) (*OSSStore, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.AccessKeySecret == "" || cfg.Bucket == "" {
		return nil, errors.New("blob: missing OSS endpoint, bucket or credentials")
	}

	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, errors.Wrap(err, "blob: unable to create OSS client")
	}

	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, "blob: unable to open OSS bucket")
	}

	return &OSSStore{bucket: bucket, basePrefix: cfg.BasePrefix}, nil
}

func (s *OSSStore) Put(ctx context.Context, body []byte) (string, error) {
	id := NewID()
	err := s.bucket.PutObject(JoinKey(s.basePrefix, id), bytes.NewReader(body), oss.ContentType("application/octet-stream"), oss.WithContext(ctx))
	if err != nil {
		return "", errors.Wrap(err, "blob: failed to store body in OSS")
	}

	return id, nil
}

func (s *OSSStore) Get(ctx context.Context, id string) ([]byte, error) {
	rc, err := s.bucket.GetObject(JoinKey(s.basePrefix, id), oss.WithContext(ctx))
	if err != nil {
		if isOSSNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "blob: failed to fetch body from OSS")
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrap(err, "blob: failed to read body from OSS")
	}

	return body, nil
}

func (s *OSSStore) Delete(ctx context.Context, id string) error {
	if err := s.bucket.DeleteObject(JoinKey(s.basePrefix, id), oss.WithContext(ctx)); err != nil && !isOSSNotFound(err) {
		return errors.Wrap(err, "blob: failed to delete body from OSS")
	}

	return nil
}

// Ping checks the bucket is reachable with the configured credentials.
func (s *OSSStore) Ping(ctx context.Context) error {
	if _, err := s.bucket.IsObjectExist(JoinKey(s.basePrefix, ".healthz"), oss.WithContext(ctx)); err != nil {
		return errors.Wrap(err, "blob: OSS bucket is not reachable")
	}

	return nil
}

// JoinKey prefixes key with basePrefix, tolerating stray slashes on either.
func JoinKey(basePrefix, key string) string {
	basePrefix = strings.Trim(strings.TrimSpace(basePrefix), "/")
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if basePrefix == "" {
		return key
	}
	if key == "" {
		return basePrefix
	}
	return basePrefix + "/" + key
}

func isOSSNotFound(err error) bool {
	switch e := errors.Cause(err).(type) {
	case oss.ServiceError:
		return e.StatusCode == http.StatusNotFound || e.Code == "NoSuchKey"
	case *oss.ServiceError:
		return e.StatusCode == http.StatusNotFound || e.Code == "NoSuchKey"
	}
	return false
}
