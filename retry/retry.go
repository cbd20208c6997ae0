// Package retry backs off between attempts at calls that fail transiently.
package retry

import (
	"context"
	"math"
	"time"

	"github.com/cockroachdb/errors"
)

type Settings struct {
	InitialBackoff time.Duration
	Multiplier     int
	MaxBackoff     time.Duration
	// MaxRetries bounds the number of attempts. Zero retries forever.
	MaxRetries int
}

func (s Settings) Verify() error {
	if s.InitialBackoff <= 0 {
		return errors.Newf("initial backoff must be set to >= 0, got %s", s.InitialBackoff)
	}
	if s.Multiplier < 1 {
		return errors.Newf("multiplier must be >= 1, got %d", s.Multiplier)
	}
	if s.MaxBackoff > 0 && s.InitialBackoff > s.MaxBackoff {
		return errors.Newf("initial backoff (%s) must be less than max backoff (%s)", s.InitialBackoff, s.MaxBackoff)
	}
	if s.MaxRetries < 0 {
		return errors.Newf("max retries must be >= 0, got %d", s.MaxRetries)
	}
	return nil
}

// DefaultSettings suit calls to the ANNCSU API: a handful of quick attempts
// rather than waiting out a long outage.
func DefaultSettings() Settings {
	return Settings{
		InitialBackoff: 250 * time.Millisecond,
		Multiplier:     2,
		MaxBackoff:     5 * time.Second,
		MaxRetries:     4,
	}
}

type Retry struct {
	Iteration int
	StartTime time.Time
	NextRetry time.Time

	settings Settings
	backoff  time.Duration
}

func NewRetry(settings Settings) (*Retry, error) {
	return NewRetryWithTime(time.Now(), settings)
}

func NewRetryWithTime(t time.Time, settings Settings) (*Retry, error) {
	if err := settings.Verify(); err != nil {
		return nil, err
	}
	return &Retry{
		Iteration: 1,
		StartTime: t,
		NextRetry: t.Add(settings.InitialBackoff),
		settings:  settings,
		backoff:   settings.InitialBackoff,
	}, nil
}

func (rm *Retry) ShouldContinue() bool {
	if rm.settings.MaxRetries == 0 {
		return true
	}
	return rm.Iteration < rm.settings.MaxRetries
}

// Backoff is how long to wait before the attempt after the current one.
func (rm *Retry) Backoff() time.Duration {
	return rm.backoff
}

func (rm *Retry) Next() {
	nextDuration := rm.settings.InitialBackoff * time.Duration(math.Pow(float64(rm.settings.Multiplier), float64(rm.Iteration)))
	if rm.settings.MaxBackoff > 0 && nextDuration > rm.settings.MaxBackoff {
		nextDuration = rm.settings.MaxBackoff
	}
	rm.Iteration++
	rm.backoff = nextDuration
	rm.NextRetry = rm.NextRetry.Add(nextDuration)
}

var errRetryable = errors.New("retryable")

// MarkRetryable marks err as transient, telling Do to try again.
func MarkRetryable(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, errRetryable)
}

func IsRetryable(err error) bool {
	return errors.Is(err, errRetryable)
}

// Do calls fn until it succeeds, returns an error not marked with
// MarkRetryable, runs out of attempts or ctx is done.
func Do(ctx context.Context, settings Settings, fn func(ctx context.Context) error) error {
	return do(ctx, settings, fn, sleep)
}

func do(
	ctx context.Context,
	settings Settings,
	fn func(ctx context.Context) error,
	sleepFn func(ctx context.Context, d time.Duration) error,
) error {
	r, err := NewRetry(settings)
	if err != nil {
		return err
	}
	for {
		err := fn(ctx)
		if err == nil || !IsRetryable(err) {
			return err
		}
		if !r.ShouldContinue() {
			return errors.Wrapf(err, "giving up after %d attempts", r.Iteration)
		}
		if sleepErr := sleepFn(ctx, r.Backoff()); sleepErr != nil {
			return errors.CombineErrors(sleepErr, err)
		}
		r.Next()
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
