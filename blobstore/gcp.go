package blobstore

import (
	"context"
	"io"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

type gcpStore struct {
	logger zerolog.Logger

	once   sync.Once
	client *storage.Client
	err    error
}

func (s *gcpStore) open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	s.once.Do(func() {
		creds, err := google.FindDefaultCredentials(ctx, storage.ScopeReadOnly)
		if err != nil {
			s.err = err
			return
		}
		s.client, s.err = storage.NewClient(ctx, option.WithCredentials(creds))
	})
	if s.err != nil {
		return nil, s.err
	}
	r, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("bucket", bucket).Str("key", key).Int64("size", r.Attrs.Size).Msgf("gcs object opened")
	return r, nil
}
