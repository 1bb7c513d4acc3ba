package objstoresvc

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// ossStore stores files in an Alibaba OSS bucket. Objects are keyed by
// upload date and a random prefix so distinct uploads never collide.
type ossStore struct {
	bucket    *oss.Bucket
	urlPrefix string // "https://<bucket>.<endpoint>/"
}

var _ core.ObjectStore = (*ossStore)(nil)

func NewOSSStore(conf *core.Config) (*ossStore, error) {
	cfg := conf.ObjectStorage
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, errors.Wrap(err, "oss.New")
	}
	bkt, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, "oss.Bucket")
	}
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")
	return &ossStore{
		bucket:    bkt,
		urlPrefix: fmt.Sprintf("https://%s.%s/", cfg.Bucket, endpoint),
	}, nil
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return '-'
	}, name)
}

func (s *ossStore) key(filename string) string {
	return fmt.Sprintf("%s/%s-%s", time.Now().UTC().Format("2006/01/02"), uuid.New().String(), sanitizeFilename(filename))
}

func (s *ossStore) Put(_ context.Context, data []byte, filename, contentType string) (string, error) {
	key := s.key(filename)
	opts := make([]oss.Option, 0, 1)
	if contentType != "" {
		opts = append(opts, oss.ContentType(contentType))
	}
	if err := s.bucket.PutObject(key, bytes.NewReader(data), opts...); err != nil {
		return "", errors.Wrapf(err, "uploading %s", key)
	}
	return s.urlPrefix + key, nil
}

func (s *ossStore) Owns(url string) bool {
	return strings.HasPrefix(url, s.urlPrefix)
}

func (s *ossStore) Delete(_ context.Context, url string) error {
	if !s.Owns(url) {
		return core.ErrInvalidFileRef
	}
	key := strings.TrimPrefix(url, s.urlPrefix)
	if key == "" {
		return core.ErrInvalidFileRef
	}
	if err := s.bucket.DeleteObject(key); err != nil {
		return errors.Wrapf(err, "deleting %s", key)
	}
	return nil
}
