package httpstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"blockpad/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Client — domain.BlockStore over the blockpad HTTP API, so the
// edit controller can drive a remote server the same way it
// drives a local store
// ─────────────────────────────────────────────────────────────

// Client implements domain.BlockStore against a running blockpad
// server. Transport failures are wrapped as domain.ErrUnavailable;
// 400/404 responses map back onto the error taxonomy.
type Client struct {
	base string
	http *http.Client
}

// New creates a client for the given base URL (e.g. http://localhost:8080).
func New(baseURL string) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) ListBlocks(ctx context.Context) ([]domain.Block, error) {
	var blocks []domain.Block
	if err := c.do(ctx, http.MethodGet, "/blocks", nil, &blocks); err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	return blocks, nil
}

func (c *Client) CreateBlock(ctx context.Context, in domain.CreateBlockInput) (*domain.Block, error) {
	var block domain.Block
	if err := c.do(ctx, http.MethodPost, "/blocks", in, &block); err != nil {
		return nil, fmt.Errorf("create block: %w", err)
	}
	return &block, nil
}

func (c *Client) UpdateBlock(ctx context.Context, id string, patch domain.BlockPatch) (*domain.Block, error) {
	body := struct {
		ID string `json:"id"`
		domain.BlockPatch
	}{ID: id, BlockPatch: patch}

	var block domain.Block
	if err := c.do(ctx, http.MethodPatch, "/blocks", body, &block); err != nil {
		return nil, fmt.Errorf("update block %s: %w", id, err)
	}
	return &block, nil
}

func (c *Client) DeleteBlock(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/blocks/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete block %s: %w", id, err)
	}
	return nil
}

func (c *Client) ReorderBlocks(ctx context.Context, orderedIDs []string) error {
	body := struct {
		BlockIDs []string `json:"blockIds"`
	}{BlockIDs: orderedIDs}

	if err := c.do(ctx, http.MethodPatch, "/blocks/reorder", body, nil); err != nil {
		return fmt.Errorf("reorder blocks: %w", err)
	}
	return nil
}

func (c *Client) ReplaceBlocks(ctx context.Context, blocks []domain.Block) error {
	if blocks == nil {
		blocks = []domain.Block{}
	}
	if err := c.do(ctx, http.MethodPut, "/blocks", blocks, nil); err != nil {
		return fmt.Errorf("replace blocks: %w", err)
	}
	return nil
}

// do issues one request. A nil out discards the response body.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// apiError turns an error response back into the taxonomy.
func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	msg := resp.Status
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		msg = body.Error
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return fmt.Errorf("%s: %w", msg, domain.ErrInvalidInput)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	default:
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, msg)
	}
}
