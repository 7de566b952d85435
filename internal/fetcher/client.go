package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DefaultHost is the Spire Weather API host.
const DefaultHost = "https://api.wx.spire.com"

// APIKeyParam is the query parameter and header carrying the API key.
const APIKeyParam = "spire-api-key"

var (
	// ErrUnauthorized is returned when the API rejects the key (HTTP 401).
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned on HTTP 404.
	ErrNotFound = errors.New("not found")
)

// StatusError is a non-200 response that is not one of the sentinel cases.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned non-200 status: %d", e.Status)
}

// Client talks to the weather API over HTTP.
type Client struct {
	Host string
	// WMS overrides the WMS endpoint derived from Host.
	WMS        string
	APIKey     string
	HTTP       *http.Client
	MaxElapsed time.Duration
	Logger     zerolog.Logger
}

// NewClient returns a client with a default HTTP timeout.
func NewClient(host, apiKey string, timeout time.Duration, logger zerolog.Logger) *Client {
	if host == "" {
		host = DefaultHost
	}
	return &Client{
		Host:       host,
		APIKey:     apiKey,
		HTTP:       &http.Client{Timeout: timeout},
		MaxElapsed: time.Minute,
		Logger:     logger,
	}
}

// get performs a GET and returns the body. Network errors and 5xx responses
// are retried with exponential backoff; 401, 404 and other 4xx are not.
func (c *Client) get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	var body []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(errors.Wrap(err, "build request"))
		}
		for k, v := range header {
			req.Header[k] = v
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			return errors.Wrap(err, "request failed")
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return backoff.Permanent(ErrUnauthorized)
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(ErrNotFound)
		case resp.StatusCode >= 500:
			return &StatusError{URL: url, Status: resp.StatusCode}
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(&StatusError{URL: url, Status: resp.StatusCode})
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return errors.Wrap(err, "failed to read response body")
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = c.MaxElapsed
	notify := func(err error, wait time.Duration) {
		c.Logger.Warn().Err(err).Dur("retry_in", wait).Msg("request failed, retrying")
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(policy, ctx), notify); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) authHeader() http.Header {
	h := http.Header{}
	h.Set(APIKeyParam, c.APIKey)
	return h
}
