// Package blobstore reads geodiff reports out of cloud object storage.
package blobstore

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

const (
	SchemeS3  = "s3"
	SchemeGCS = "gs"
)

// Location is a single object in a bucket.
type Location struct {
	Scheme string
	Bucket string
	Key    string
}

func (l Location) String() string {
	return l.Scheme + "://" + l.Bucket + "/" + l.Key
}

// ParseURL parses an s3://bucket/key or gs://bucket/key URL.
func ParseURL(source string) (Location, error) {
	u, err := url.Parse(source)
	if err != nil {
		return Location{}, errors.Wrapf(err, "error parsing object url")
	}
	switch u.Scheme {
	case SchemeS3, SchemeGCS:
	default:
		return Location{}, errors.Newf("unsupported object storage scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return Location{}, errors.Newf("object url %s has no bucket", source)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return Location{}, errors.Newf("object url %s has no key", source)
	}
	return Location{Scheme: u.Scheme, Bucket: u.Host, Key: key}, nil
}

type store interface {
	open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// Opener opens report objects on S3 and GCS. Clients are created on first
// use, so an Opener that is never used needs no credentials.
type Opener struct {
	logger zerolog.Logger
	stores map[string]store
}

func NewOpener(logger zerolog.Logger) *Opener {
	return &Opener{
		logger: logger,
		stores: map[string]store{
			SchemeS3:  &s3Store{logger: logger},
			SchemeGCS: &gcpStore{logger: logger},
		},
	}
}

// Handles reports whether source is an object URL with a supported scheme.
func (o *Opener) Handles(source string) bool {
	loc, err := ParseURL(source)
	if err != nil {
		return false
	}
	_, ok := o.stores[loc.Scheme]
	return ok
}

func (o *Opener) Open(ctx context.Context, source string) (io.ReadCloser, error) {
	loc, err := ParseURL(source)
	if err != nil {
		return nil, err
	}
	s, ok := o.stores[loc.Scheme]
	if !ok {
		return nil, errors.AssertionFailedf("no store for scheme %s", loc.Scheme)
	}
	o.logger.Debug().Str("bucket", loc.Bucket).Str("key", loc.Key).Msgf("opening %s object", loc.Scheme)
	rc, err := s.open(ctx, loc.Bucket, loc.Key)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening %s", loc)
	}
	return rc, nil
}
