package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// #region client-struct
// Client queries the remote vector store over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}
// #endregion client-struct

// #region constructor
// NewClient creates a store client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// NewClientWithHTTP creates a Client with an injected *http.Client.
// Used for testing against httptest servers.
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: baseURL, http: hc}
}
// #endregion constructor

// #region wire-types
type searchRequest struct {
	Type       string `json:"type"`
	Query      string `json:"query"`
	Collection string `json:"collection"`
}

type searchResponse struct {
	Results []struct {
		Text     string  `json:"text"`
		Distance float64 `json:"distance"`
	} `json:"results"`
}
// #endregion wire-types

// #region search
// Search queries one collection. Callers treat an error the same as an
// empty result set; the store's one well-known failure mode is "no match".
func (c *Client) Search(ctx context.Context, query, collection string) ([]Result, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("search: no store URL configured")
	}

	body, err := json.Marshal(searchRequest{
		Type:       "search",
		Query:      query,
		Collection: collection,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search %s: status %d", collection, resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]Result, len(decoded.Results))
	for i, r := range decoded.Results {
		results[i] = Result{Snippet: r.Text, Distance: r.Distance}
	}
	return results, nil
}
// #endregion search
