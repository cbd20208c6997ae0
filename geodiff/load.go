package geodiff

import (
	"context"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Opener reads reports that live outside the local filesystem.
type Opener interface {
	// Handles reports whether source is a location the Opener can read.
	Handles(source string) bool
	Open(ctx context.Context, source string) (io.ReadCloser, error)
}

type LoadOpt func(*loadOpts)

type loadOpts struct {
	opener Opener
	logger zerolog.Logger
}

func WithOpener(o Opener) LoadOpt {
	return func(opts *loadOpts) {
		opts.opener = o
	}
}

func WithLogger(l zerolog.Logger) LoadOpt {
	return func(opts *loadOpts) {
		opts.logger = l
	}
}

// Load reads a report from source, which is either a path to an existing
// file, a remote object understood by the configured Opener, or the report
// text itself. Read errors on an existing path are returned as is and never
// fall back to parsing source as text.
func Load(ctx context.Context, source string, inOpts ...LoadOpt) (Report, error) {
	opts := loadOpts{logger: zerolog.Nop()}
	for _, applyOpt := range inOpts {
		applyOpt(&opts)
	}

	if info, err := os.Stat(source); err == nil {
		opts.logger.Info().Str("path", source).Msgf("found geodiff report file")
		if info.IsDir() {
			return Report{}, errors.Newf("geodiff report path %s is a directory", source)
		}
		text, err := os.ReadFile(source)
		if err != nil {
			return Report{}, errors.Wrapf(err, "error reading geodiff report file %s", source)
		}
		return Parse(text)
	}

	if opts.opener != nil && opts.opener.Handles(source) {
		opts.logger.Info().Str("url", source).Msgf("reading geodiff report from object storage")
		rc, err := opts.opener.Open(ctx, source)
		if err != nil {
			return Report{}, errors.Wrapf(err, "error opening geodiff report %s", source)
		}
		text, err := io.ReadAll(rc)
		if err := errors.CombineErrors(err, rc.Close()); err != nil {
			return Report{}, errors.Wrapf(err, "error reading geodiff report %s", source)
		}
		return Parse(text)
	}

	opts.logger.Info().Msgf("geodiff report input does not point to a file; parsing as JSON text")
	return Parse([]byte(source))
}

// ValidateAll parses each named document, returning the parse error (or nil)
// for every name.
func ValidateAll(docs map[string][]byte) map[string]error {
	ret := make(map[string]error, len(docs))
	for name, text := range docs {
		_, err := Parse(text)
		ret[name] = err
	}
	return ret
}
