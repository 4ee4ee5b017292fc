// Package tenor is a minimal client for the Tenor v2 GIF search API.
package tenor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultBaseURL = "https://tenor.googleapis.com/v2/search"

// Client searches Tenor for animated images.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Tenor client. If baseURL is empty, the public Tenor
// endpoint is used.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Search returns up to limit GIF URLs for a free-text query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("key", c.apiKey)
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result searchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	urls := make([]string, 0, len(result.Results))
	for _, r := range result.Results {
		if r.MediaFormats.GIF.URL != "" {
			urls = append(urls, r.MediaFormats.GIF.URL)
		}
	}
	return urls, nil
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	MediaFormats mediaFormats `json:"media_formats"`
}

type mediaFormats struct {
	GIF mediaObject `json:"gif"`
}

type mediaObject struct {
	URL string `json:"url"`
}
