package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrTimeout is returned when a request exceeds its time budget. It is
	// distinct from network errors, which are returned wrapped as-is.
	ErrTimeout = errors.New("request timed out")
	// ErrStatus is matched by every *StatusError
	ErrStatus = errors.New("unexpected status")
)

// StatusError reports a non-2xx response for callers that want one as an error
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %d from %s", ErrStatus, e.StatusCode, e.URL)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = time.Second
)

// Request describes an outbound HTTP call. It is rebuilt on every attempt,
// so a body can be replayed by retries.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a fully read HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status code is 2xx
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// CheckStatus returns a *StatusError for a non-2xx response
func (r *Response) CheckStatus(url string) error {
	if r.OK() {
		return nil
	}
	return &StatusError{StatusCode: r.StatusCode, URL: url}
}

// DecodeJSON unmarshals the body into v
func (r *Response) DecodeJSON(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// Fetcher performs time-bounded HTTP calls with bounded linear-backoff retry
type Fetcher struct {
	client      *http.Client
	logger      *logrus.Logger
	maxAttempts int
	backoff     time.Duration
}

// NewFetcher creates a fetcher. A nil client uses a plain http.Client; the
// per-call timeout is applied through the request context.
func NewFetcher(client *http.Client, logger *logrus.Logger, maxAttempts int, backoff time.Duration) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if backoff < 0 {
		backoff = DefaultBackoff
	}

	return &Fetcher{
		client:      client,
		logger:      logger,
		maxAttempts: maxAttempts,
		backoff:     backoff,
	}
}

// Fetch issues one request and aborts it once timeout elapses. A non-2xx
// status is not an error; callers decide how to treat it.
func (f *Fetcher) Fetch(ctx context.Context, r Request, timeout time.Duration) (*Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(callCtx, method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range r.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, f.classify(ctx, callCtx, r.URL, timeout, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, f.classify(ctx, callCtx, r.URL, timeout, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// classify turns a deadline hit on the per-call context into ErrTimeout
func (f *Fetcher) classify(parent, callCtx context.Context, url string, timeout time.Duration, err error) error {
	if parent.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %s", ErrTimeout, timeout, url)
	}
	return fmt.Errorf("request failed: %w", err)
}

// FetchWithRetry wraps Fetch in Retry using the fetcher's attempt budget
func (f *Fetcher) FetchWithRetry(ctx context.Context, r Request, timeout time.Duration) (*Response, error) {
	return Retry(ctx, f.logger, f.maxAttempts, f.backoff, func(ctx context.Context) (*Response, error) {
		return f.Fetch(ctx, r, timeout)
	})
}

// Retry calls fn until it succeeds or maxAttempts calls have failed,
// sleeping attempt*backoff between attempts. The last error is returned.
// Only returned errors are retried; a soft result such as a 404 response
// is handed back to the caller untouched.
func Retry[T any](ctx context.Context, logger *logrus.Logger, maxAttempts int, backoff time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
		if attempt == maxAttempts {
			break
		}

		if logger != nil {
			logger.WithError(err).Debugf("Retrying request, attempt %d of %d", attempt+1, maxAttempts)
		}

		wait := time.Duration(attempt) * backoff
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero T
			return zero, fmt.Errorf("retry aborted: %w", ctx.Err())
		case <-timer.C:
		}
	}

	var zero T
	return zero, err
}
