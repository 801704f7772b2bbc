// Package translator converts exchange text through a remote translation
// server. Callers fall back to the local builder when it fails.
package translator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrlokans/bibsync/internal/entities"
	"github.com/mrlokans/bibsync/internal/retry"
	"github.com/mrlokans/bibsync/internal/ris"
	"github.com/mrlokans/bibsync/internal/zotero"
)

const (
	defaultTimeout   = 120 * time.Second
	defaultChunkSize = 100
	rateLimitWait    = 120 * time.Second
)

// ErrEmptyResponse is returned when the server answers with no items.
var ErrEmptyResponse = errors.New("translation server returned no items")

type Client struct {
	httpClient *http.Client
	url        string
	sleeper    retry.Sleeper
	policy     retry.Policy
	chunkSize  int
	logger     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithChunkSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

func WithPolicy(p retry.Policy) Option {
	return func(c *Client) { c.policy = p.WithDefaults() }
}

func NewClient(url string, timeout time.Duration, sleeper retry.Sleeper, logger zerolog.Logger, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		sleeper:    sleeper,
		policy: retry.Policy{
			MaxAttempts:    2,
			InitialBackoff: 5 * time.Second,
			MaxBackoff:     60 * time.Second,
			BackoffFactor:  2,
			RateLimitWait:  rateLimitWait,
		},
		chunkSize: defaultChunkSize,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TranslateAll converts the whole text in one request and, when that
// fails, chunk by chunk. Any chunk failing fails the call.
func (c *Client) TranslateAll(ctx context.Context, content string) ([]entities.Item, error) {
	items, err := c.Translate(ctx, content)
	if err == nil {
		return items, nil
	}
	c.logger.Warn().Err(err).Msg("full translation failed, splitting into chunks")

	chunks := ris.Split(content, c.chunkSize)
	var all []entities.Item
	for i, chunk := range chunks {
		chunkItems, err := c.Translate(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		all = append(all, chunkItems...)
		c.logger.Info().Int("chunk", i+1).Int("of", len(chunks)).Int("items", len(chunkItems)).Msg("chunk translated")
	}
	return all, nil
}

// Translate posts one piece of exchange text.
func (c *Client) Translate(ctx context.Context, content string) ([]entities.Item, error) {
	var items []entities.Item
	err := retry.Do(ctx, c.policy, c.sleeper, func(ctx context.Context, attempt int) error {
		var err error
		items, err = c.post(ctx, content)
		return err
	}, func(err error, attempt int) (retry.Decision, error) {
		var rateErr *zotero.RateLimitError
		if errors.As(err, &rateErr) {
			wait := rateErr.RetryAfter
			if wait <= 0 {
				wait = c.policy.RateLimitWait
			}
			c.logger.Warn().Dur("wait", wait).Msg("translation server rate limit")
			return retry.Decision{Retry: true, Wait: wait}, nil
		}
		if zotero.IsTransient(err) || errors.Is(err, ErrEmptyResponse) {
			wait := c.policy.Backoff(attempt)
			c.logger.Warn().Err(err).Dur("wait", wait).Int("attempt", attempt).Msg("translation attempt failed")
			return retry.Decision{Retry: true, Wait: wait}, nil
		}
		return retry.Decision{}, nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) post(ctx context.Context, content string) ([]entities.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &zotero.TransportError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &zotero.RateLimitError{RetryAfter: retryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode >= 500:
		return nil, &zotero.ServerError{StatusCode: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &zotero.APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var items []entities.Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode translation: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyResponse
	}
	return items, nil
}

func retryAfter(v string) time.Duration {
	var seconds int
	if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &seconds); err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
