// Package zotero talks to the group library web API.
package zotero

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrlokans/bibsync/internal/entities"
)

const (
	DefaultBaseURL = "https://api.zotero.org"

	defaultTimeout = 120 * time.Second
	apiVersion     = "3"
	maxErrorBody   = 2048

	headerAPIKey            = "Zotero-API-Key"
	headerAPIVersion        = "Zotero-API-Version"
	headerIfUnmodifiedSince = "If-Unmodified-Since-Version"
	headerLastModified      = "Last-Modified-Version"
	headerRetryAfter        = "Retry-After"
	headerBackoff           = "Backoff"
	contentTypeJSON         = "application/json"
)

// Client interfaces with the items endpoint of one group library.
type Client struct {
	httpClient *http.Client
	baseURL    string
	groupID    string
	apiKey     string
	logger     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func NewClient(baseURL, groupID, apiKey string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		groupID:    groupID,
		apiKey:     apiKey,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) GroupID() string {
	return c.groupID
}

// WriteFailure is the per-item rejection reported by a write request.
type WriteFailure struct {
	Key     string `json:"key,omitempty"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// WriteResult is the outcome of one create request, keyed by the item's
// index within the request.
type WriteResult struct {
	Successful map[int]string
	Unchanged  map[int]string
	Failed     map[int]WriteFailure
	Version    string
}

type writeResponse struct {
	Successful map[string]json.RawMessage `json:"successful"`
	Success    map[string]string          `json:"success"`
	Unchanged  map[string]string          `json:"unchanged"`
	Failed     map[string]WriteFailure    `json:"failed"`
}

type itemEnvelope struct {
	Key     string        `json:"key"`
	Version int           `json:"version"`
	Data    entities.Item `json:"data"`
}

// Version returns the library's current version token.
func (c *Client) Version(ctx context.Context) (string, error) {
	resp, err := c.get(ctx, url.Values{"format": {"keys"}, "limit": {"1"}})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	version := resp.Header.Get(headerLastModified)
	if version == "" {
		return "", ErrMissingVersion
	}
	return version, nil
}

// ListKeys returns one page of item keys.
func (c *Client) ListKeys(ctx context.Context, start, limit int) ([]string, error) {
	resp, err := c.get(ctx, url.Values{
		"format": {"keys"},
		"start":  {strconv.Itoa(start)},
		"limit":  {strconv.Itoa(limit)},
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	var keys []string
	for _, line := range strings.Split(string(body), "\n") {
		if key := strings.TrimSpace(line); key != "" {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// ListItems returns one page of items and the library version it was read at.
func (c *Client) ListItems(ctx context.Context, start, limit int) ([]entities.Item, string, error) {
	resp, err := c.get(ctx, url.Values{
		"format": {"json"},
		"start":  {strconv.Itoa(start)},
		"limit":  {strconv.Itoa(limit)},
	})
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	var envelopes []itemEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelopes); err != nil {
		return nil, "", fmt.Errorf("failed to decode items: %w", err)
	}

	items := make([]entities.Item, 0, len(envelopes))
	for _, env := range envelopes {
		item := env.Data
		if item.Key == "" {
			item.Key = env.Key
		}
		if item.Version == 0 {
			item.Version = env.Version
		}
		items = append(items, item)
	}
	return items, resp.Header.Get(headerLastModified), nil
}

// Snapshot pages through the whole library.
func (c *Client) Snapshot(ctx context.Context, pageSize int) (entities.Snapshot, error) {
	if pageSize <= 0 {
		pageSize = 100
	}

	var snap entities.Snapshot
	for start := 0; ; start += pageSize {
		items, version, err := c.ListItems(ctx, start, pageSize)
		if err != nil {
			return entities.Snapshot{}, fmt.Errorf("failed to list items at %d: %w", start, err)
		}
		if snap.Version == "" {
			snap.Version = version
		}
		snap.Items = append(snap.Items, items...)
		if len(items) < pageSize {
			break
		}
	}

	c.logger.Info().Int("items", len(snap.Items)).Str("version", snap.Version).Msg("library snapshot loaded")
	return snap, nil
}

// CreateItems writes one batch. An empty version omits the precondition.
func (c *Client) CreateItems(ctx context.Context, items []entities.Item, version string) (*WriteResult, error) {
	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode items: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.itemsURL(nil), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	if version != "" {
		req.Header.Set(headerIfUnmodifiedSince, version)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var raw writeResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode write response: %w", err)
	}
	return raw.toResult(resp.Header.Get(headerLastModified))
}

// DeleteItems deletes the given keys and returns the new library version.
func (c *Client) DeleteItems(ctx context.Context, keys []string, version string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodDelete, c.itemsURL(url.Values{"itemKey": {strings.Join(keys, ",")}}), nil)
	if err != nil {
		return "", err
	}
	if version != "" {
		req.Header.Set(headerIfUnmodifiedSince, version)
	}

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusNoContent {
		return "", &APIError{StatusCode: resp.StatusCode, Body: "expected 204 No Content"}
	}
	return resp.Header.Get(headerLastModified), nil
}

func (c *Client) itemsURL(query url.Values) string {
	u := fmt.Sprintf("%s/groups/%s/items", c.baseURL, url.PathEscape(c.groupID))
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) get(ctx context.Context, query url.Values) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.itemsURL(query), nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(headerAPIKey, c.apiKey)
	req.Header.Set(headerAPIVersion, apiVersion)
	return req, nil
}

// do sends the request and turns non-2xx statuses into typed errors.
// The caller closes the body of a successful response.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, req.Context().Err()
		}
		return nil, &TransportError{Err: err}
	}

	if backoff := resp.Header.Get(headerBackoff); backoff != "" {
		c.logger.Warn().Str("backoff", backoff).Msg("server asked clients to back off")
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPreconditionFailed:
		return nil, ErrVersionConflict
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		return nil, ErrRequestTooLarge
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get(headerRetryAfter))}
	case resp.StatusCode >= 500:
		return nil, &ServerError{StatusCode: resp.StatusCode}
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// parseRetryAfter reads a delay in seconds; anything else yields zero.
func parseRetryAfter(v string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func (r writeResponse) toResult(version string) (*WriteResult, error) {
	result := &WriteResult{
		Successful: make(map[int]string),
		Unchanged:  make(map[int]string),
		Failed:     make(map[int]WriteFailure),
		Version:    version,
	}

	for idx, key := range r.Success {
		i, err := strconv.Atoi(idx)
		if err != nil {
			return nil, fmt.Errorf("invalid success index %q: %w", idx, err)
		}
		result.Successful[i] = key
	}
	for idx, obj := range r.Successful {
		i, err := strconv.Atoi(idx)
		if err != nil {
			return nil, fmt.Errorf("invalid successful index %q: %w", idx, err)
		}
		if _, ok := result.Successful[i]; ok {
			continue
		}
		var keyed struct {
			Key string `json:"key"`
		}
		_ = json.Unmarshal(obj, &keyed)
		result.Successful[i] = keyed.Key
	}
	for idx, key := range r.Unchanged {
		i, err := strconv.Atoi(idx)
		if err != nil {
			return nil, fmt.Errorf("invalid unchanged index %q: %w", idx, err)
		}
		result.Unchanged[i] = key
	}
	for idx, f := range r.Failed {
		i, err := strconv.Atoi(idx)
		if err != nil {
			return nil, fmt.Errorf("invalid failed index %q: %w", idx, err)
		}
		result.Failed[i] = f
	}
	return result, nil
}
