// Package jobs talks to the JSearch API and ranks live postings
// against a candidate's CV.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"cvalign/internal/config"
	"cvalign/internal/errors"
	"cvalign/internal/types"
)

// Client is a minimal JSearch (RapidAPI) search client
type Client struct {
	apiKey     string
	baseURL    string
	host       string
	country    string
	datePosted string
	httpClient *http.Client
}

// NewClient creates a JSearch client from configuration
func NewClient(cfg *config.JobSearchConfig) *Client {
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		host:       cfg.Host,
		country:    cfg.Country,
		datePosted: cfg.DatePosted,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// SearchResult carries both the decoded postings and the verbatim
// upstream data array, so pass-through endpoints can return exactly
// what JSearch said.
type SearchResult struct {
	Query    string
	Location string
	Raw      json.RawMessage
	Postings []types.JobPosting
}

type searchResponse struct {
	Data json.RawMessage `json:"data"`
}

// Search fetches the first page of postings for a query and location.
// A non-200 upstream reply becomes an UpstreamError carrying the
// upstream status so the HTTP layer can pass it through.
func (c *Client) Search(ctx context.Context, query, location string) (*SearchResult, error) {
	if c.apiKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			"JSearch API key is not configured", nil)
	}

	params := url.Values{}
	params.Set("query", fmt.Sprintf("%s jobs in %s", query, location))
	params.Set("page", "1")
	params.Set("num_pages", "1")
	params.Set("country", c.country)
	params.Set("date_posted", c.datePosted)

	endpoint := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeJobSearchFailed,
			"Failed to build job search request", err)
	}
	req.Header.Set("X-RapidAPI-Host", c.host)
	req.Header.Set("X-RapidAPI-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewUpstreamError(errors.ErrCodeJobSearchFailed,
			"Job search request failed", err).
			WithContext("query", query).
			WithContext("location", location)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.NewUpstreamError(errors.ErrCodeJobSearchFailed,
			fmt.Sprintf("Job search endpoint returned status %d", resp.StatusCode), nil).
			WithContext("status", resp.StatusCode).
			WithContext("body", string(body))
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.NewUpstreamError(errors.ErrCodeJobSearchFailed,
			"Failed to decode job search response", err)
	}

	result := &SearchResult{
		Query:    query,
		Location: location,
		Raw:      payload.Data,
	}
	if len(payload.Data) > 0 {
		if err := json.Unmarshal(payload.Data, &result.Postings); err != nil {
			return nil, errors.NewUpstreamError(errors.ErrCodeJobSearchFailed,
				"Failed to decode job postings", err)
		}
	}

	return result, nil
}
