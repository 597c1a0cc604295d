// Package client talks to a running URL registry over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

var (
	ErrAliasExists = errors.New("custom alias already exists")
	ErrNotFound    = errors.New("short url not found")
)

type ShortenRequest struct {
	OriginalURL   string `json:"originalUrl"`
	CustomAlias   string `json:"customAlias,omitempty"`
	ExpiresInDays *int   `json:"expiresInDays,omitempty"`
}

type ShortenResponse struct {
	OriginalURL string `json:"originalUrl"`
	ShortURL    string `json:"shortUrl"`
}

type Analytics struct {
	OriginalURL string     `json:"originalUrl"`
	ShortURL    string     `json:"shortUrl"`
	Clicks      int64      `json:"clicks"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

// APIError is returned for any unexpected status code.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

type errorBody struct {
	Message string `json:"message"`
}

type Client struct {
	serverURL  string
	httpClient *http.Client
}

func New(serverURL string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

func (c *Client) Shorten(ctx context.Context, req ShortenRequest) (*ShortenResponse, error) {
	const op = "client.Client.Shorten"

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to marshal request: %w", op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/shorten", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to make request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := decodeError(resp)
		if resp.StatusCode == http.StatusBadRequest && apiErr.Message == ErrAliasExists.Error() {
			return nil, fmt.Errorf("%s: %w", op, ErrAliasExists)
		}
		return nil, fmt.Errorf("%s: %w", op, apiErr)
	}

	var result ShortenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%s: failed to decode response: %w", op, err)
	}

	return &result, nil
}

func (c *Client) Analytics(ctx context.Context, shortCode string) (*Analytics, error) {
	const op = "client.Client.Analytics"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/analytics/"+url.PathEscape(shortCode), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to make request: %w", op, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	default:
		return nil, fmt.Errorf("%s: %w", op, decodeError(resp))
	}

	var result Analytics
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%s: failed to decode response: %w", op, err)
	}

	return &result, nil
}

func decodeError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Message = body.Message
	}

	return apiErr
}
