// Package fetch retrieves token data from the upstream provider. Every call
// goes through a Fetcher, which classifies responses and retries with
// exponential backoff.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	tracing "github.com/yourorg/token-features/internal/otel"
)

const (
	// DefaultMaxRetries is the attempt ceiling used when a call passes none.
	DefaultMaxRetries = 3

	// DefaultBackoffBase is the first inter-attempt delay.
	DefaultBackoffBase = time.Second

	// MaxBackoff caps a single inter-attempt delay.
	MaxBackoff = 5 * time.Minute

	apiKeyHeader = "X-API-KEY"

	// maxLoggedBody caps how much of a failed response body is logged.
	maxLoggedBody = 512
)

// Options configures a Fetcher.
type Options struct {
	BaseURL     string
	APIKey      string
	MaxRetries  int
	BackoffBase time.Duration

	// HTTPClient performs the requests; a pooled default is used when nil
	HTTPClient *http.Client

	// Limiter, when set, throttles every attempt against the provider budget
	Limiter *rate.Limiter

	Logger  *logrus.Entry
	Metrics *Metrics
}

// Request describes one upstream GET call.
type Request struct {
	// Endpoint is a short label used in logs and metrics
	Endpoint string
	Path     string
	Query    url.Values
	Header   http.Header
}

// Fetcher performs GET calls with retry/backoff and response classification.
type Fetcher struct {
	baseURL     string
	apiKey      string
	maxRetries  int
	backoffBase time.Duration
	httpClient  *http.Client
	logger      *logrus.Entry
	metrics     *Metrics
}

// NewFetcher creates a Fetcher from opts, filling in defaults.
func NewFetcher(opts Options) *Fetcher {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = DefaultBackoffBase
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = retryablehttp.NewClient().HTTPClient
	}
	if opts.Limiter != nil {
		limited := *httpClient
		limited.Transport = &limitedTransport{base: httpClient.Transport, limiter: opts.Limiter}
		httpClient = &limited
	}

	return &Fetcher{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		apiKey:      opts.APIKey,
		maxRetries:  opts.MaxRetries,
		backoffBase: opts.BackoffBase,
		httpClient:  httpClient,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}
}

// Get performs the request, retrying up to maxRetries attempts in total.
// A non-positive maxRetries selects the Fetcher's default.
//
// On success it returns the raw payload unmodified; a 204 yields a nil
// payload. Retry exhaustion returns *UnavailableError (errors.Is
// ErrUnavailable) and a connection-level failure returns *TransportError
// without spending the remaining attempts.
func (f *Fetcher) Get(ctx context.Context, r Request, maxRetries int) (json.RawMessage, error) {
	if maxRetries <= 0 {
		maxRetries = f.maxRetries
	}

	ctx, span := tracing.Tracer().Start(ctx, "fetch."+r.Endpoint)
	defer span.End()
	span.SetAttributes(attribute.String("http.path", r.Path), attribute.Int("fetch.max_retries", maxRetries))

	c := &call{
		endpoint: r.Endpoint,
		log:      f.logger.WithField("endpoint", r.Endpoint),
		metrics:  f.metrics,
	}

	req, err := f.newRequest(ctx, r)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := f.newRetryClient(c, maxRetries).Do(req)
	if err != nil {
		var ue *UnavailableError
		if !IsTransport(err) && !errors.As(err, &ue) {
			// cancelled while backing off
			err = &TransportError{Endpoint: r.Endpoint, Err: err}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		err = &TransportError{Endpoint: r.Endpoint, Err: fmt.Errorf("reading body: %w", err)}
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode), attribute.Int("fetch.attempts", c.attempts))
	if resp.StatusCode == http.StatusNoContent || len(body) == 0 {
		return nil, nil
	}
	return json.RawMessage(body), nil
}

func (f *Fetcher) newRequest(ctx context.Context, r Request) (*retryablehttp.Request, error) {
	target := f.baseURL + r.Path
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if f.apiKey != "" {
		req.Header.Set(apiKeyHeader, f.apiKey)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}

// newRetryClient builds a retry client dedicated to one call, so backoff
// state is never shared between calls.
func (f *Fetcher) newRetryClient(c *call, maxRetries int) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient = f.httpClient
	rc.Logger = leveledLogger{entry: c.log}
	rc.RetryMax = maxRetries - 1
	rc.RetryWaitMin = f.backoffBase
	rc.RetryWaitMax = max(f.backoffBase, MaxBackoff)
	rc.CheckRetry = c.checkRetry
	rc.Backoff = c.backoff
	rc.ErrorHandler = c.handleError
	return rc
}

// call carries the per-call classification state.
type call struct {
	endpoint string
	log      *logrus.Entry
	metrics  *Metrics
	attempts int
	last     *StatusError
}

func (c *call) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	c.attempts++
	log := c.log.WithField("attempt", c.attempts)

	if ctxErr := ctx.Err(); ctxErr != nil {
		c.metrics.attempt(c.endpoint, outcomeTransport)
		return false, ctxErr
	}

	if err != nil {
		log.WithError(err).Error("Request failed at transport level, aborting")
		c.metrics.attempt(c.endpoint, outcomeTransport)
		return false, nil
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		c.metrics.attempt(c.endpoint, outcomeSuccess)
		return false, nil
	case http.StatusTooManyRequests:
		c.last = &StatusError{Code: resp.StatusCode}
		log.WithField("status", resp.StatusCode).Warn("Received 429 Too Many Requests, retrying")
		c.metrics.attempt(c.endpoint, outcomeRateLimited)
		return true, nil
	default:
		c.last = &StatusError{Code: resp.StatusCode, Body: readSnippet(resp.Body)}
		log.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   c.last.Body,
		}).Warn("Unexpected upstream status, retrying")
		c.metrics.attempt(c.endpoint, outcomeServerError)
		return true, nil
	}
}

// backoff doubles the delay after every attempt: base, 2*base, 4*base...
// capped at waitMax.
func (c *call) backoff(waitMin, waitMax time.Duration, attemptNum int, _ *http.Response) time.Duration {
	delay := waitMax
	if attemptNum < 63 {
		if d := waitMin << uint(attemptNum); d > 0 && d>>uint(attemptNum) == waitMin && d < waitMax {
			delay = d
		}
	}
	c.log.WithFields(logrus.Fields{
		"attempt": attemptNum + 1,
		"delay":   delay,
	}).Info("Backing off before retry")
	c.metrics.observeBackoff(delay.Seconds())
	return delay
}

func (c *call) handleError(resp *http.Response, err error, numTries int) (*http.Response, error) {
	if resp != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	if err != nil {
		return nil, &TransportError{Endpoint: c.endpoint, Err: err}
	}

	c.log.WithField("attempts", numTries).Error("Maximum retries reached")
	c.metrics.exhaust(c.endpoint)
	return nil, &UnavailableError{Endpoint: c.endpoint, Attempts: numTries, Last: c.last}
}

func readSnippet(body io.Reader) string {
	if body == nil {
		return ""
	}
	b, _ := io.ReadAll(io.LimitReader(body, maxLoggedBody))
	return strings.TrimSpace(string(b))
}

// limitedTransport waits on the provider budget before each round trip.
type limitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
