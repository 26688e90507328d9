package llm

import (
	"fmt"
	"strings"

	"cvalign/internal/config"
	"cvalign/internal/types"
)

// SystemPromptDefaults holds the built-in system prompts per operation
type SystemPromptDefaults struct {
	ModifyCV     string
	ModifyCVJSON string
	RankJobs     string
	ScoreCV      string
}

// UserPromptDefaults holds the built-in user prompt templates per operation
type UserPromptDefaults struct {
	ModifyCV     string
	ModifyCVJSON string
	RankJobs     string
	ScoreCV      string
}

// DefaultSystemPrompts are the system-level instructions used when no
// custom prompt is configured.
var DefaultSystemPrompts = SystemPromptDefaults{
	ModifyCV: "You are an expert CV writer and LaTeX typesetter. You rewrite CVs to " +
		"align with a target job post without inventing experience, qualifications, " +
		"or skills the candidate does not have.",

	ModifyCVJSON: "You are an expert CV writer. You restructure CV content to align " +
		"with a target job post and return it as a single JSON object, without " +
		"inventing experience the candidate does not have.",

	RankJobs: "You are a recruiting assistant. You compare a candidate's CV against " +
		"a list of job postings and rank the postings by fit.",

	ScoreCV: "You are a strict CV screening assistant. You score how well a " +
		"candidate's CV matches a job description, based only on evidence present " +
		"in both texts.",
}

// DefaultUserPrompts are the user prompt templates used when no custom
// prompt is configured. Slots are filled by the Build*Prompt helpers.
var DefaultUserPrompts = UserPromptDefaults{
	ModifyCV: `Rewrite the candidate's CV below so that it aligns with the target job post.
Use the LaTeX template exactly as the layout: keep its document class, packages and
structure, and fill it with the candidate's content. Reorder and reword content to
emphasize what the job post asks for. Do not invent anything.

Return only a complete LaTeX document, starting at \documentclass.

LaTeX template:
%s

Job post:
%s

Candidate CV:
%s`,

	ModifyCVJSON: `Rewrite the candidate's CV below so that it aligns with the target job post,
and return the result as one JSON object with exactly this shape:

{
  "name": "Full Name",
  "contact": {
    "email": "user@example.com",
    "phone": "+1 555 000 0000",
    "location": "City, Country"
  },
  "summary": "One-paragraph professional summary",
  "education": [
    {"institution": "University", "degree": "Degree", "years": "2015-2019"}
  ],
  "experience": [
    {"company": "Company", "title": "Title", "years": "2019-2023", "highlights": ["Achievement"]}
  ],
  "projects": [
    {"name": "Project", "description": "What it does"}
  ],
  "skills": ["Skill"],
  "publications": [
    {"title": "Paper title", "venue": "Venue", "year": "2022"}
  ]
}

Reorder and reword content to emphasize what the job post asks for. Do not invent
anything. Respond with the JSON object only, no commentary.

Job post:
%s

Candidate CV:
%s`,

	RankJobs: `Compare the candidate's CV below against the numbered job postings and pick the
3 postings that fit the candidate best.

Respond with only a JSON array of objects of the form
{"job_index": <1-based posting number>, "alignment": <0-100 score>},
ordered from best fit to worst. No commentary.

Candidate CV:
%s

Job postings:
%s`,

	ScoreCV: `Score how well the candidate's CV matches the job description below. Work
deterministically: base every score on keyword and requirement overlap between the
two texts, not on speculation.

Score four dimensions from 0 to 100:
- fair_match: overall fit
- exp_level: seniority and years of experience fit
- skill: technical and domain skill overlap
- industry_exp: industry background overlap

Respond with only a JSON object of the form
{"fair_match": 0, "exp_level": 0, "skill": 0, "industry_exp": 0}. No commentary.

Job description:
%s

Candidate CV:
%s`,
}

// BuildModifyPrompt returns the system and user prompts for a LaTeX
// modify run. The template must already be loaded; callers abort
// before this point when it is not.
func BuildModifyPrompt(cfg *config.OperationLLMConfig, template, jobText, cvText string) (string, string) {
	systemPrompt := resolvePrompt(cfg.CustomPrompts.SystemPrompts.ModifyCV, DefaultSystemPrompts.ModifyCV)
	userTemplate := resolvePrompt(cfg.CustomPrompts.UserPrompts.ModifyCV, DefaultUserPrompts.ModifyCV)

	return systemPrompt, fmt.Sprintf(userTemplate, template, jobText, cvText)
}

// BuildModifyJSONPrompt returns the system and user prompts for a
// structured modify run. The JSON shape the model is asked for is
// advisory only; recovery never assumes it held.
func BuildModifyJSONPrompt(cfg *config.OperationLLMConfig, jobText, cvText string) (string, string) {
	systemPrompt := resolvePrompt(cfg.CustomPrompts.SystemPrompts.ModifyCVJSON, DefaultSystemPrompts.ModifyCVJSON)
	userTemplate := resolvePrompt(cfg.CustomPrompts.UserPrompts.ModifyCVJSON, DefaultUserPrompts.ModifyCVJSON)

	return systemPrompt, fmt.Sprintf(userTemplate, jobText, cvText)
}

// BuildRankPrompt returns the system and user prompts for ranking job
// postings against a CV. Postings are numbered from 1; the model's
// job_index values refer back to this numbering.
func BuildRankPrompt(cfg *config.OperationLLMConfig, cvText string, postings []types.JobPosting) (string, string) {
	systemPrompt := resolvePrompt(cfg.CustomPrompts.SystemPrompts.RankJobs, DefaultSystemPrompts.RankJobs)
	userTemplate := resolvePrompt(cfg.CustomPrompts.UserPrompts.RankJobs, DefaultUserPrompts.RankJobs)

	var list strings.Builder
	for i, posting := range postings {
		fmt.Fprintf(&list, "Job %d: %s at %s\nDescription: %s\n\n",
			i+1, posting.Title, posting.Employer, posting.Description)
	}

	return systemPrompt, fmt.Sprintf(userTemplate, cvText, strings.TrimSpace(list.String()))
}

// BuildScorePrompt returns the system and user prompts for scoring a
// CV against a pasted job description.
func BuildScorePrompt(cfg *config.OperationLLMConfig, jobDescription, cvText string) (string, string) {
	systemPrompt := resolvePrompt(cfg.CustomPrompts.SystemPrompts.ScoreCV, DefaultSystemPrompts.ScoreCV)
	userTemplate := resolvePrompt(cfg.CustomPrompts.UserPrompts.ScoreCV, DefaultUserPrompts.ScoreCV)

	return systemPrompt, fmt.Sprintf(userTemplate, jobDescription, cvText)
}

// resolvePrompt selects the correct prompt string based on priority:
// 1. A prompt defined directly in the configuration.
// 2. A hardcoded default prompt.
func resolvePrompt(fromConfig, fromDefault string) string {
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}
