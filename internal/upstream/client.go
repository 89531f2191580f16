// Package upstream wraps the outbound HTTP calls the relay makes to
// text-generation and speech services.
//
// Every call gets its own timeout. Transport faults (DNS, refused or reset
// connections, timeouts) are retried with jitter up to the configured limit;
// an HTTP response of any status is returned as-is and never retried.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tahcohcat/chandu-voice/internal/logger"
)

const defaultMaxBodyBytes = 25 << 20

type Options struct {
	Name            string
	Timeout         time.Duration
	MaxRetries      int
	InitialInterval time.Duration
	Randomization   float64
	MaxBodyBytes    int64
	LogBodies       bool
	// Transport overrides http.DefaultTransport, mainly for tests.
	Transport http.RoundTripper
}

type Client struct {
	name       string
	httpClient *http.Client
	opts       Options
	logger     *logger.Log
}

// Response is a fully read upstream reply.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

func NewClient(opts Options) *Client {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 250 * time.Millisecond
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	log := logger.New().WithField("upstream", opts.Name)

	return &Client{
		name: opts.Name,
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: &loggingTransport{base: base, name: opts.Name, logBodies: opts.LogBodies, logger: log},
		},
		opts:   opts,
		logger: log,
	}
}

// PostJSON marshals payload and posts it to url with the given headers.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, payload interface{}) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	h := map[string]string{"Content-Type": "application/json"}
	for k, v := range headers {
		h[k] = v
	}

	return c.Do(ctx, http.MethodPost, url, h, body)
}

// Do sends one logical request, retrying only on transport faults.
func (c *Client) Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (*Response, error) {
	var result *Response
	attempt := 0

	operation := func() error {
		attempt++

		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			err = redactError(err)
			if ctx.Err() != nil {
				return backoff.Permanent(&NetworkError{Err: err})
			}
			return &NetworkError{Err: err}
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBodyBytes+1))
		if err != nil {
			return &NetworkError{Err: fmt.Errorf("failed to read response body: %w", err)}
		}
		if int64(len(data)) > c.opts.MaxBodyBytes {
			return backoff.Permanent(&NetworkError{Err: fmt.Errorf("%s response exceeds %d bytes", c.name, c.opts.MaxBodyBytes)})
		}

		result = &Response{
			Status:      resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			Body:        data,
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.WithError(err).Warn(fmt.Sprintf("attempt %d failed, retrying in %v", attempt, wait))
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(c.policy(), ctx), notify)
	if err != nil {
		if !IsNetworkError(err) && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)) {
			err = &NetworkError{Err: err}
		}
		return nil, err
	}
	return result, nil
}

func (c *Client) policy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.InitialInterval
	b.RandomizationFactor = c.opts.Randomization
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, uint64(c.opts.MaxRetries))
}

// NetworkError is a failure to get any HTTP response at all.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx reply from an upstream service.
type StatusError struct {
	Service string
	Status  int
	Body    []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.Status, Truncate(string(e.Body), DetailLimit))
}

// Detail is the client-safe diagnostic snippet of the upstream body.
func (e *StatusError) Detail() string {
	return Truncate(string(e.Body), DetailLimit)
}

// CheckStatus converts a non-2xx response into a *StatusError.
func CheckStatus(service string, resp *Response) error {
	if resp.OK() {
		return nil
	}
	return &StatusError{Service: service, Status: resp.Status, Body: resp.Body}
}

func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// redactError strips query-string credentials from *url.Error messages.
func redactError(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	u, perr := url.Parse(ue.URL)
	if perr != nil {
		return err
	}
	q := u.Query()
	if !q.Has("key") {
		return err
	}
	q.Set("key", "REDACTED")
	u.RawQuery = q.Encode()
	return &url.Error{Op: ue.Op, URL: u.String(), Err: ue.Err}
}
