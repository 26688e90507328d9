package jobs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cvalign/internal/config"
	apperrors "cvalign/internal/errors"
	"cvalign/internal/types"
)

func testSearchConfig(baseURL string) *config.JobSearchConfig {
	return &config.JobSearchConfig{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		Host:       "jsearch.p.rapidapi.com",
		Country:    "us",
		DatePosted: "all",
		Timeout:    5 * time.Second,
	}
}

func TestClientSearch(t *testing.T) {
	var captured struct {
		query      string
		page       string
		numPages   string
		country    string
		datePosted string
		hostHeader string
		keyHeader  string
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		captured.query = q.Get("query")
		captured.page = q.Get("page")
		captured.numPages = q.Get("num_pages")
		captured.country = q.Get("country")
		captured.datePosted = q.Get("date_posted")
		captured.hostHeader = r.Header.Get("X-RapidAPI-Host")
		captured.keyHeader = r.Header.Get("X-RapidAPI-Key")

		if _, err := w.Write([]byte(`{"data": [
			{"job_title": "Backend Engineer", "employer_name": "Acme", "job_description": "Go services", "job_apply_link": "https://example.com/1", "job_city": "Austin"},
			{"job_title": "Data Engineer", "employer_name": "Globex", "job_description": "Pipelines", "job_apply_link": "https://example.com/2"}
		]}`)); err != nil {
			t.Errorf("Failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(testSearchConfig(server.URL))
	result, err := client.Search(context.Background(), "golang developer", "texas")
	if err != nil {
		t.Fatalf("Expected success, got: %v", err)
	}

	if captured.query != "golang developer jobs in texas" {
		t.Errorf("Expected composed query, got %q", captured.query)
	}
	if captured.page != "1" || captured.numPages != "1" {
		t.Errorf("Expected page=1 num_pages=1, got %s/%s", captured.page, captured.numPages)
	}
	if captured.country != "us" || captured.datePosted != "all" {
		t.Errorf("Expected country=us date_posted=all, got %s/%s", captured.country, captured.datePosted)
	}
	if captured.hostHeader != "jsearch.p.rapidapi.com" {
		t.Errorf("Expected RapidAPI host header, got %q", captured.hostHeader)
	}
	if captured.keyHeader != "test-key" {
		t.Errorf("Expected RapidAPI key header, got %q", captured.keyHeader)
	}

	if len(result.Postings) != 2 {
		t.Fatalf("Expected 2 postings, got %d", len(result.Postings))
	}
	if result.Postings[0].Title != "Backend Engineer" || result.Postings[0].Employer != "Acme" {
		t.Errorf("Unexpected first posting: %+v", result.Postings[0])
	}
	// Raw data preserved verbatim for pass-through, extra fields included
	if len(result.Raw) == 0 {
		t.Error("Expected raw data array to be preserved")
	}
}

func TestClientSearchUpstreamStatusPassThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		if _, err := w.Write([]byte(`{"message": "quota exceeded"}`)); err != nil {
			t.Errorf("Failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(testSearchConfig(server.URL))
	_, err := client.Search(context.Background(), "golang", "texas")
	if err == nil {
		t.Fatal("Expected error for non-200 response")
	}

	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		t.Fatalf("Expected AppError, got %T", err)
	}
	if appErr.Type != apperrors.ErrorTypeUpstream {
		t.Errorf("Expected upstream error, got %s", appErr.Type)
	}
	if appErr.Context["status"] != http.StatusForbidden {
		t.Errorf("Expected upstream status 403 in context, got %v", appErr.Context["status"])
	}
}

func TestClientSearchMissingKey(t *testing.T) {
	cfg := testSearchConfig("http://localhost:1")
	cfg.APIKey = ""

	client := NewClient(cfg)
	_, err := client.Search(context.Background(), "golang", "texas")
	if err == nil {
		t.Fatal("Expected error for missing API key")
	}

	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		t.Fatalf("Expected AppError, got %T", err)
	}
	if appErr.Code != apperrors.ErrCodeMissingAPIKey {
		t.Errorf("Expected missing key code, got %s", appErr.Code)
	}
}

func TestJoinRankings(t *testing.T) {
	postings := []types.JobPosting{
		{Title: "A", Employer: "EA", Description: "DA", ApplyLink: "LA"},
		{Title: "B", Employer: "EB", Description: "DB", ApplyLink: "LB"},
		{Title: "C", Employer: "EC", Description: "DC", ApplyLink: "LC"},
	}

	tests := []struct {
		name     string
		entries  []types.RankedEntry
		expected []string // expected job titles in order
	}{
		{
			name: "all in range, model order preserved",
			entries: []types.RankedEntry{
				{JobIndex: 3, Alignment: 90},
				{JobIndex: 1, Alignment: 80},
			},
			expected: []string{"C", "A"},
		},
		{
			name: "out of range indices silently dropped",
			entries: []types.RankedEntry{
				{JobIndex: 2, Alignment: 85},
				{JobIndex: 7, Alignment: 99},
				{JobIndex: 0, Alignment: 50},
				{JobIndex: -1, Alignment: 40},
			},
			expected: []string{"B"},
		},
		{
			name:     "empty entries",
			entries:  []types.RankedEntry{},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := joinRankings(tt.entries, postings)

			if len(matches) != len(tt.expected) {
				t.Fatalf("Expected %d matches, got %d", len(tt.expected), len(matches))
			}
			for i, title := range tt.expected {
				if matches[i].JobTitle != title {
					t.Errorf("Expected match[%d] title '%s', got '%s'", i, title, matches[i].JobTitle)
				}
			}
		})
	}
}

func TestJoinRankingsFieldMapping(t *testing.T) {
	postings := []types.JobPosting{
		{Title: "Backend Engineer", Employer: "Acme", Description: "Go services", ApplyLink: "https://example.com/1"},
	}
	entries := []types.RankedEntry{{JobIndex: 1, Alignment: 88}}

	matches := joinRankings(entries, postings)
	if len(matches) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(matches))
	}

	m := matches[0]
	if m.JobTitle != "Backend Engineer" || m.EmployerName != "Acme" ||
		m.Alignment != 88 || m.JobURL != "https://example.com/1" || m.JobDescription != "Go services" {
		t.Errorf("Unexpected field mapping: %+v", m)
	}
}
