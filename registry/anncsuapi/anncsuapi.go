// Package anncsuapi looks up address records through the ANNCSU REST API.
package anncsuapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/anncsu/anncsu-update/registry"
	"github.com/anncsu/anncsu-update/retry"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	DefaultPathTemplate = "/elencoaccessiprog/{id}"
	DefaultRateLimit    = rate.Limit(10)
	DefaultBurst        = 1

	maxErrorBody = 512
)

type Opt func(*Client)

// WithHTTPClient sets the client wrapped with the bearer token transport.
func WithHTTPClient(c *http.Client) Opt {
	return func(cl *Client) {
		cl.base = c
	}
}

// WithPathTemplate sets the lookup path relative to the base URL. The
// literal {id} is replaced with the address identifier.
func WithPathTemplate(p string) Opt {
	return func(cl *Client) {
		cl.pathTemplate = p
	}
}

// WithRateLimit bounds the number of lookups per second.
func WithRateLimit(limit rate.Limit, burst int) Opt {
	return func(cl *Client) {
		cl.limiter = rate.NewLimiter(limit, burst)
	}
}

func WithRetrySettings(s retry.Settings) Opt {
	return func(cl *Client) {
		cl.retrySettings = s
	}
}

// Client implements registry.Lookup over HTTP.
type Client struct {
	logger        zerolog.Logger
	baseURL       *url.URL
	pathTemplate  string
	base          *http.Client
	http          *http.Client
	limiter       *rate.Limiter
	retrySettings retry.Settings
}

var _ registry.Lookup = (*Client)(nil)

func New(logger zerolog.Logger, baseURL string, tokens oauth2.TokenSource, opts ...Opt) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing ANNCSU API url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Newf("ANNCSU API url must be http or https, got %q", baseURL)
	}
	c := &Client{
		logger:        logger,
		baseURL:       u,
		pathTemplate:  DefaultPathTemplate,
		base:          &http.Client{Timeout: 30 * time.Second},
		limiter:       rate.NewLimiter(DefaultRateLimit, DefaultBurst),
		retrySettings: retry.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.retrySettings.Verify(); err != nil {
		return nil, err
	}
	transport := c.base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	c.http = &http.Client{
		Timeout:       c.base.Timeout,
		CheckRedirect: c.base.CheckRedirect,
		Jar:           c.base.Jar,
		Transport:     &oauth2.Transport{Source: tokens, Base: transport},
	}
	return c, nil
}

// StaticToken returns a token source for a fixed access token.
func StaticToken(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}

func (c *Client) lookupURL(id int64) string {
	p := strings.ReplaceAll(c.pathTemplate, "{id}", url.PathEscape(strconv.FormatInt(id, 10)))
	ref, err := url.Parse(p)
	if err != nil {
		return c.baseURL.String() + p
	}
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(ref.Path, "/")
	if ref.RawQuery != "" {
		u.RawQuery = ref.RawQuery
	}
	return u.String()
}

// LookupByID fetches the records for id. Responses with status 429 or 5xx
// are retried; any other non-200 status becomes a non-OK LookupResult.
func (c *Client) LookupByID(ctx context.Context, id int64) (registry.LookupResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return registry.LookupResult{}, errors.Wrap(err, "error waiting for rate limiter")
	}
	target := c.lookupURL(id)
	logger := c.logger.With().Int64("id", id).Str("url", target).Logger()

	var ret registry.LookupResult
	attempt := 0
	err := retry.Do(ctx, c.retrySettings, func(ctx context.Context) error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		resp, err := c.http.Do(req)
		if err != nil {
			logger.Debug().Err(err).Int("attempt", attempt).Msgf("registry request failed")
			return retry.MarkRetryable(errors.Wrapf(err, "error querying registry"))
		}
		defer func() { _ = resp.Body.Close() }()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.MarkRetryable(errors.Wrapf(err, "error reading registry response"))
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			logger.Debug().Int("status", resp.StatusCode).Int("attempt", attempt).Msgf("registry busy")
			return retry.MarkRetryable(errors.Newf("registry returned HTTP %d: %s", resp.StatusCode, truncate(body)))
		case resp.StatusCode != http.StatusOK:
			ret = registry.LookupResult{
				Status:  fmt.Sprintf("HTTP %d", resp.StatusCode),
				Message: truncate(body),
			}
			return nil
		}
		ret, err = decodeResponse(body)
		return err
	})
	if err != nil {
		return registry.LookupResult{}, err
	}
	logger.Debug().Str("status", ret.Status).Int("records", len(ret.Records)).Msgf("registry lookup complete")
	return ret, nil
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}

type response struct {
	Res     string         `json:"res"`
	Message string         `json:"message"`
	Data    []responseItem `json:"data"`
}

type responseItem struct {
	CoordX   flexFloat `json:"coord_x"`
	CoordY   flexFloat `json:"coord_y"`
	Geometry string    `json:"geometry"`
}

// flexFloat accepts a coordinate written as a JSON number, a numeric
// string, an empty string or null.
type flexFloat struct {
	v *float64
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		// Coordinates sometimes come with a decimal comma.
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid coordinate %s", b)
	}
	f.v = &v
	return nil
}

func decodeResponse(body []byte) (registry.LookupResult, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return registry.LookupResult{}, errors.Wrapf(err, "error decoding registry response")
	}
	ret := registry.LookupResult{
		Status:  resp.Res,
		Message: resp.Message,
		Records: make([]registry.Record, 0, len(resp.Data)),
	}
	for _, item := range resp.Data {
		ret.Records = append(ret.Records, registry.Record{
			CoordX:          item.CoordX.v,
			CoordY:          item.CoordY.v,
			EncodedGeometry: item.Geometry,
		})
	}
	return ret, nil
}
