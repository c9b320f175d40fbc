/**
 * @description
 * This package provides a client for the hosted backend's REST surface
 * (PostgREST-style table access plus stored procedure calls). It
 * encapsulates authenticated HTTP requests, filter-string construction,
 * and response parsing; the store layer builds typed repositories on top.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, net/url, time: Standard Go libraries.
 */
package supaclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a client for the hosted backend's REST API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new backend API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ErrorResponse is the error body the backend's REST layer returns.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *ErrorResponse) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend api error: %s - %s", e.Code, e.Message)
	}
	return "unknown backend api error"
}

// Eq builds an exact-match filter value.
func Eq(value string) string { return "eq." + value }

// In builds a set-membership filter value. Each member is quoted so values
// containing '+' or ',' survive the trip.
func In(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + strings.ReplaceAll(v, `"`, ``) + `"`
	}
	return "in.(" + strings.Join(quoted, ",") + ")"
}

// ILike builds a case-insensitive substring filter value.
func ILike(fragment string) string { return "ilike.*" + fragment + "*" }

// Select runs a read against a table and decodes the JSON array response
// into dest.
func (c *Client) Select(ctx context.Context, table string, query url.Values, dest interface{}) error {
	endpoint := c.BaseURL + "/rest/v1/" + table + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create select request: %w", err)
	}

	return c.do(req, table, "select", dest)
}

// Update patches every row matching the query filters with the given body.
func (c *Client) Update(ctx context.Context, table string, query url.Values, patch interface{}) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to marshal update body: %w", err)
	}

	endpoint := c.BaseURL + "/rest/v1/" + table + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create update request: %w", err)
	}
	req.Header.Set("Prefer", "return=minimal")

	return c.do(req, table, "update", nil)
}

// Insert appends a row to a table.
func (c *Client) Insert(ctx context.Context, table string, row interface{}) error {
	body, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal insert body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/rest/v1/"+table, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create insert request: %w", err)
	}
	req.Header.Set("Prefer", "return=minimal")

	return c.do(req, table, "insert", nil)
}

// RPC invokes a stored procedure and decodes its JSON result into dest.
func (c *Client) RPC(ctx context.Context, fn string, args interface{}, dest interface{}) error {
	body, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to marshal rpc args: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/rest/v1/rpc/"+fn, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create rpc request: %w", err)
	}

	return c.do(req, fn, "rpc", dest)
}

// do executes a prepared request with auth headers and decodes the response.
func (c *Client) do(req *http.Request, target, op string, dest interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute %s request: %w", op, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			log.Printf("level=warn component=supa_client op=%s target=%s status=%d msg=\"non-2xx response (unparsable error body)\"", op, target, resp.StatusCode)
			return fmt.Errorf("failed to decode error response (status %d)", resp.StatusCode)
		}
		log.Printf("level=warn component=supa_client op=%s target=%s status=%d code=%q message=%q", op, target, resp.StatusCode, errResp.Code, errResp.Message)
		return &errResp
	}

	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, dest); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}
