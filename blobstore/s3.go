package blobstore

import (
	"context"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/rs/zerolog"
)

type s3Store struct {
	logger zerolog.Logger

	once   sync.Once
	client *s3.S3
	err    error
}

func (s *s3Store) open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	s.once.Do(func() {
		sess, err := session.NewSession()
		if err != nil {
			s.err = err
			return
		}
		s.client = s3.New(sess)
	})
	if s.err != nil {
		return nil, s.err
	}
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug().
		Str("bucket", bucket).
		Str("key", key).
		Int64("size", aws.Int64Value(out.ContentLength)).
		Msgf("s3 object opened")
	return out.Body, nil
}
