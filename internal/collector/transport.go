package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"MarketLens/internal/logger"
	"MarketLens/internal/metrics"
	"MarketLens/internal/model"

	"golang.org/x/time/rate"
)

const maxBackoff = 30 * time.Second

// TransportOptions configures the HTTP plumbing shared by all providers.
type TransportOptions struct {
	ProxyURL          string
	Timeout           time.Duration
	RequestsPerMinute int
	MaxRetries        int
	RetryBackoff      time.Duration
	Logger            *logger.Log
}

// transport performs rate limited GET requests and maps failures to *model.TransportFailure.
type transport struct {
	provider   string
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	log        *logger.Entry
}

func newTransport(provider string, opts TransportOptions) *transport {
	tr := &http.Transport{}
	if opts.ProxyURL != "" {
		if u, err := url.Parse(opts.ProxyURL); err == nil {
			tr.Proxy = http.ProxyURL(u)
		}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}
	backoff := opts.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	l := opts.Logger
	if l == nil {
		l = logger.Discard()
	}
	return &transport{
		provider:   provider,
		client:     &http.Client{Timeout: timeout, Transport: tr},
		limiter:    limiter,
		maxRetries: opts.MaxRetries,
		backoff:    backoff,
		log:        l.WithComponent("collector").WithFields(logger.Fields{"provider": provider}),
	}
}

// get fetches rawURL, retrying retryable failures up to maxRetries times.
func (t *transport) get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		body, err := t.once(ctx, rawURL, header)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var tf *model.TransportFailure
		if !errors.As(err, &tf) || !tf.Retryable() || attempt == t.maxRetries {
			break
		}
		wait := t.backoff * time.Duration(1<<uint(attempt))
		if wait > maxBackoff {
			wait = maxBackoff
		}
		t.log.WithFields(logger.Fields{
			"attempt":     attempt + 1,
			"max_retries": t.maxRetries,
			"backoff":     wait.String(),
		}).WithError(err).Warn("fetch attempt failed")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}

func (t *transport) once(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s rate limit: %w", t.provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s build request: %w", t.provider, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		metrics.RecordFetch(t.provider, "error", time.Since(start))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &model.TransportFailure{Provider: t.provider, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	metrics.RecordFetch(t.provider, fmt.Sprintf("%d", resp.StatusCode), time.Since(start))
	if err != nil {
		return nil, &model.TransportFailure{Provider: t.provider, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &model.TransportFailure{
			Provider:   t.provider,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body), 200),
		}
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
