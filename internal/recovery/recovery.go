// Package recovery extracts structured content out of noisy chat-model
// replies. Models wrap answers in markdown fences, prepend prose, or
// trail commentary; every recovery function here either returns the
// salvaged structure or a *Failure carrying the raw text so callers can
// surface exactly what the model said.
package recovery

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"cvalign/internal/types"
)

// Failure codes
const (
	CodeNoObject   = "NO_JSON_OBJECT"
	CodeNoArray    = "NO_JSON_ARRAY"
	CodeParse      = "PARSE_FAILED"
	CodeMissingKey = "MISSING_KEY"
	CodeBadValue   = "BAD_VALUE"
)

// Failure describes an unrecoverable model reply. RawText always holds
// the text the caller should show or log; Key is set only for the
// missing/bad score-key cases.
type Failure struct {
	Code    string
	RawText string
	Key     string
}

func (f *Failure) Error() string {
	if f.Key != "" {
		return fmt.Sprintf("%s: %s", f.Code, f.Key)
	}
	return f.Code
}

var (
	objectPattern = regexp.MustCompile(`(?s)\{.*\}`)
	arrayPattern  = regexp.MustCompile(`(?s)\[.*\]`)
)

// scoreKeys is the fixed set of dimensions a scoring reply must carry,
// checked in this order so a failure names the first offender.
var scoreKeys = []string{"fair_match", "exp_level", "skill", "industry_exp"}

// ExtractLaTeX recovers a LaTeX document from a model reply. The reply
// is scanned top-down for the first line starting with \documentclass
// and everything before it is discarded; a reply without the marker
// passes through unmodified. Markdown code fences are stripped either
// way. No LaTeX validation happens here.
func ExtractLaTeX(raw string) string {
	lines := strings.Split(raw, "\n")
	start := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), `\documentclass`) {
			start = i
			break
		}
	}

	doc := raw
	if start >= 0 {
		doc = strings.Join(lines[start:], "\n")
	}

	doc = strings.ReplaceAll(doc, "```latex", "")
	doc = strings.ReplaceAll(doc, "```", "")
	return strings.TrimSpace(doc)
}

// cleanJSONString strips markdown fences and slices the text down to
// its outermost brace pair. Text without both braces is returned
// fence-stripped but otherwise unchanged.
func cleanJSONString(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	first := strings.Index(cleaned, "{")
	last := strings.LastIndex(cleaned, "}")
	if first != -1 && last != -1 && first < last {
		cleaned = cleaned[first : last+1]
	}
	return cleaned
}

// RecoverObject parses a model reply expected to contain one JSON
// object. It first tries the reply verbatim, then retries on a cleaned
// copy. The returned map is the decoded object as-is; no schema is
// enforced. On failure the cleaned text is preserved in the Failure,
// pretty-printed when it happens to parse after all.
func RecoverObject(raw string) (map[string]any, *Failure) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		return obj, nil
	}

	cleaned := cleanJSONString(raw)
	if err := json.Unmarshal([]byte(cleaned), &obj); err == nil {
		return obj, nil
	}

	return nil, &Failure{Code: CodeParse, RawText: prettyIfParsable(cleaned)}
}

// prettyIfParsable re-indents text that turns out to be valid JSON and
// leaves anything else untouched.
func prettyIfParsable(text string) string {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return text
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return text
	}
	return string(pretty)
}

// RecoverScores parses a model reply expected to contain alignment
// scores. The first brace-delimited region is located by regex (greedy,
// spanning newlines), decoded, and each required key coerced to an
// integer. Numeric strings count; anything else fails naming the key.
func RecoverScores(raw string) (types.AlignmentScores, *Failure) {
	var scores types.AlignmentScores

	match := objectPattern.FindString(raw)
	if match == "" {
		return scores, &Failure{Code: CodeNoObject, RawText: raw}
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(match), &obj); err != nil {
		return scores, &Failure{Code: CodeParse, RawText: raw}
	}

	values := make(map[string]int, len(scoreKeys))
	for _, key := range scoreKeys {
		val, ok := obj[key]
		if !ok {
			return scores, &Failure{Code: CodeMissingKey, RawText: raw, Key: key}
		}
		n, ok := coerceInt(val)
		if !ok {
			return scores, &Failure{Code: CodeBadValue, RawText: raw, Key: key}
		}
		values[key] = n
	}

	scores.FairMatch = values["fair_match"]
	scores.ExpLevel = values["exp_level"]
	scores.Skill = values["skill"]
	scores.IndustryExp = values["industry_exp"]
	return scores, nil
}

// coerceInt converts JSON numbers and numeric strings to int, flooring
// fractional values.
func coerceInt(val any) (int, bool) {
	switch v := val.(type) {
	case float64:
		return int(v), true
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return int(f), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// RecoverRankings parses a model reply expected to contain a JSON array
// of {job_index, alignment} entries. The first bracket-delimited region
// is located by regex; entry shape beyond the two fields is not
// validated here, and index range checks are the caller's concern.
func RecoverRankings(raw string) ([]types.RankedEntry, *Failure) {
	match := arrayPattern.FindString(raw)
	if match == "" {
		return nil, &Failure{Code: CodeNoArray, RawText: raw}
	}

	var entries []types.RankedEntry
	if err := json.Unmarshal([]byte(match), &entries); err != nil {
		return nil, &Failure{Code: CodeParse, RawText: raw}
	}
	return entries, nil
}
