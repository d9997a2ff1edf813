// Package remote implements the client for the shared REST endpoint. The
// endpoint speaks a PostgREST-flavored dialect: filters like id=eq.X and
// id=in.(a,b) in the query string, and database error signatures (23503,
// 23505, PGRST204) in failure bodies.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/showmeapp/showme/internal/common"
)

// deleteBatchSize caps how many ids go into a single id=in.(...) filter.
const deleteBatchSize = 100

// HTTPClient implements Client over net/http.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 12 * time.Second},
	}
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", nil)
	return err
}

func (c *HTTPClient) CreateMap(ctx context.Context, payload map[string]any) error {
	_, err := c.do(ctx, http.MethodPost, "/maps", payload)
	return err
}

func (c *HTTPClient) CreatePin(ctx context.Context, payload map[string]any) error {
	_, err := c.do(ctx, http.MethodPost, "/pins", payload)
	return err
}

func (c *HTTPClient) MapExists(ctx context.Context, id string) (bool, error) {
	body, err := c.do(ctx, http.MethodGet, "/maps?id=eq."+url.QueryEscape(id)+"&select=id", nil)
	if err != nil {
		return false, err
	}
	var rows []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return false, fmt.Errorf("failed to decode map lookup: %w", err)
	}
	return len(rows) > 0, nil
}

func (c *HTTPClient) ListMaps(ctx context.Context) ([]MapRecord, error) {
	body, err := c.do(ctx, http.MethodGet, "/maps", nil)
	if err != nil {
		return nil, err
	}
	var rows []MapRecord
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode maps: %w", err)
	}
	return rows, nil
}

func (c *HTTPClient) ListPins(ctx context.Context) ([]PinRecord, error) {
	body, err := c.do(ctx, http.MethodGet, "/pins", nil)
	if err != nil {
		return nil, err
	}
	var rows []PinRecord
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode pins: %w", err)
	}
	return rows, nil
}

func (c *HTTPClient) ListMapIDs(ctx context.Context) ([]string, error) {
	return c.listIDs(ctx, "/maps?select=id")
}

func (c *HTTPClient) ListPinIDs(ctx context.Context) ([]string, error) {
	return c.listIDs(ctx, "/pins?select=id")
}

func (c *HTTPClient) DeleteMaps(ctx context.Context, ids []string) error {
	return c.deleteByIDs(ctx, "/maps", ids)
}

func (c *HTTPClient) DeletePins(ctx context.Context, ids []string) error {
	return c.deleteByIDs(ctx, "/pins", ids)
}

func (c *HTTPClient) listIDs(ctx context.Context, path string) ([]string, error) {
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode id list: %w", err)
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// deleteByIDs deletes in batches. A failing batch does not stop the rest:
// the panic wipe must remove as much as it still can.
func (c *HTTPClient) deleteByIDs(ctx context.Context, path string, ids []string) error {
	var errs []error
	for len(ids) > 0 {
		batch := ids
		if len(batch) > deleteBatchSize {
			batch = ids[:deleteBatchSize]
		}
		ids = ids[len(batch):]

		filter := "?id=in.(" + url.QueryEscape(strings.Join(batch, ",")) + ")"
		if _, err := c.do(ctx, http.MethodDelete, path+filter, nil); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// do performs a request and returns the response body, mapping failures onto
// the common error sentinels.
func (c *HTTPClient) do(ctx context.Context, method, path string, payload map[string]any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	return nil, c.mapError(resp.StatusCode, string(body))
}

// mapError classifies an error response by status and the database signatures
// the endpoint embeds in bodies.
func (c *HTTPClient) mapError(status int, body string) error {
	switch {
	case status >= 500:
		return fmt.Errorf("%w: status %d", common.ErrUnavailable, status)
	case strings.Contains(body, "23503") || strings.Contains(body, "foreign key constraint"):
		return fmt.Errorf("%w: %s", common.ErrForeignKey, body)
	case strings.Contains(body, "PGRST204") || strings.Contains(body, "Could not find the '") ||
		(strings.Contains(body, "column") && strings.Contains(body, "does not exist")):
		return fmt.Errorf("%w: %s", common.ErrUnknownColumn, body)
	case strings.Contains(body, "23505") || strings.Contains(body, "duplicate key"):
		return fmt.Errorf("%w: %s", common.ErrDuplicateKey, body)
	default:
		return fmt.Errorf("remote error: status %d: %s", status, body)
	}
}
