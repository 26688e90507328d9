package jobs

import (
	"context"

	"cvalign/internal/config"
	"cvalign/internal/errors"
	"cvalign/internal/llm"
	"cvalign/internal/recovery"
	"cvalign/internal/types"
)

// Matcher orchestrates the posting-ranking flow: search, rank via the
// chat model, recover the array, join back to the postings.
type Matcher struct {
	client  *Client
	service *llm.Service
	cfg     *config.OperationLLMConfig
	logger  *errors.Logger
}

// NewMatcher creates a Matcher around an existing search client and
// gateway service.
func NewMatcher(client *Client, service *llm.Service, cfg *config.OperationLLMConfig, logger *errors.Logger) *Matcher {
	return &Matcher{
		client:  client,
		service: service,
		cfg:     cfg,
		logger:  logger,
	}
}

// MatchJobs ranks live postings against a CV. Entries whose job_index
// falls outside the posting list are dropped without complaint; the
// model's ordering is preserved and never re-sorted.
func (m *Matcher) MatchJobs(ctx context.Context, cvText, query, location string) ([]types.RankedMatch, *llm.TokenUsage, error) {
	result, err := m.client.Search(ctx, query, location)
	if err != nil {
		return nil, nil, err
	}

	if len(result.Postings) == 0 {
		return nil, nil, errors.NewValidationError(errors.ErrCodeNoPostingsFound,
			"No job postings found for the given query and location", nil).
			WithContext("query", query).
			WithContext("location", location)
	}

	systemPrompt, userPrompt := llm.BuildRankPrompt(m.cfg, cvText, result.Postings)

	reply, usage, err := m.service.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, nil, err
	}

	entries, fail := recovery.RecoverRankings(reply)
	if fail != nil {
		return nil, usage, errors.NewRecoveryError(errors.ErrCodeRecoveryFailed,
			"Failed to recover job rankings from model reply", fail).
			WithContext("raw_response", fail.RawText)
	}

	matches := joinRankings(entries, result.Postings)

	m.logger.Debug("Joined ranked postings",
		"entries", len(entries),
		"matches", len(matches),
		"postings", len(result.Postings))

	return matches, usage, nil
}

// joinRankings resolves 1-based ranking entries against the posting
// list, silently skipping out-of-range indices.
func joinRankings(entries []types.RankedEntry, postings []types.JobPosting) []types.RankedMatch {
	matches := make([]types.RankedMatch, 0, len(entries))
	for _, entry := range entries {
		idx := entry.JobIndex - 1
		if idx < 0 || idx >= len(postings) {
			continue
		}
		posting := postings[idx]
		matches = append(matches, types.RankedMatch{
			JobTitle:       posting.Title,
			EmployerName:   posting.Employer,
			Alignment:      entry.Alignment,
			JobURL:         posting.ApplyLink,
			JobDescription: posting.Description,
		})
	}
	return matches
}
