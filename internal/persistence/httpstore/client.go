// Package httpstore implements the record-store contract over the remote
// meetings HTTP API.
package httpstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/roomboard/internal/persistence"
)

// DefaultTimeout bounds every call to the remote store.
const DefaultTimeout = 10 * time.Second

// Client talks to the remote meetings API. HTTP 409 maps to ErrConflict,
// 404 to ErrNotFound, transport failures and 5xx to ErrNetwork, and an
// exceeded deadline to ErrTimeout.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New builds a client for the given base URL. A zero timeout falls back to
// DefaultTimeout.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With("component", "httpstore"),
	}
}

// FetchAll retrieves every raw record from the remote store.
func (c *Client) FetchAll(ctx context.Context) ([]persistence.Record, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/meetings", nil)
	if err != nil {
		return nil, err
	}

	var records []persistence.Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("httpstore: decode meetings: %w", err)
	}
	return records, nil
}

// Create posts a new record and returns it as stored remotely, including the
// assigned id.
func (c *Client) Create(ctx context.Context, record persistence.Record) (persistence.Record, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return persistence.Record{}, fmt.Errorf("httpstore: encode record: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/api/meetings", payload)
	if err != nil {
		return persistence.Record{}, err
	}

	created := record
	if len(body) > 0 {
		if err := json.Unmarshal(body, &created); err != nil {
			return persistence.Record{}, fmt.Errorf("httpstore: decode created record: %w", err)
		}
	}
	return created, nil
}

// Update puts the full record under its id.
func (c *Client) Update(ctx context.Context, record persistence.Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("httpstore: encode record: %w", err)
	}
	_, err = c.do(ctx, http.MethodPut, "/api/meetings/"+url.PathEscape(record.ID), payload)
	return err
}

// Delete removes the record with the given id.
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/meetings/"+url.PathEscape(id), nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("httpstore: build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return nil, fmt.Errorf("httpstore: %s %s: %w", method, path, persistence.ErrTimeout)
		}
		return nil, fmt.Errorf("httpstore: %s %s: %v: %w", method, path, err, persistence.ErrNetwork)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if readErr != nil {
			return nil, fmt.Errorf("httpstore: read response: %w", readErr)
		}
		return body, nil
	case resp.StatusCode == http.StatusConflict:
		return nil, fmt.Errorf("httpstore: %s %s: %w", method, path, persistence.ErrConflict)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("httpstore: %s %s: %w", method, path, persistence.ErrNotFound)
	default:
		c.logger.Warn("remote store error", "method", method, "path", path, "status", resp.StatusCode)
		return nil, fmt.Errorf("httpstore: %s %s: status %d: %w", method, path, resp.StatusCode, persistence.ErrNetwork)
	}
}

// isClientTimeout detects the http.Client timeout, which surfaces as a
// url.Error with Timeout() true rather than a context error.
func isClientTimeout(err error) bool {
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}
