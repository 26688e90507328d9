package recovery

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestExtractLaTeX(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "preamble chatter dropped",
			input:    "Sure! Here is your updated CV:\n\n\\documentclass{article}\n\\begin{document}\nBody\n\\end{document}",
			expected: "\\documentclass{article}\n\\begin{document}\nBody\n\\end{document}",
		},
		{
			name:     "no marker passes through unchanged",
			input:    "Some reply without any latex document",
			expected: "Some reply without any latex document",
		},
		{
			name:     "latex fences stripped",
			input:    "```latex\n\\documentclass{article}\nBody\n```",
			expected: "\\documentclass{article}\nBody",
		},
		{
			name:     "indented marker line counts",
			input:    "noise\n   \\documentclass[11pt]{moderncv}\ncontent",
			expected: "\\documentclass[11pt]{moderncv}\ncontent",
		},
		{
			name:     "fences stripped even without marker",
			input:    "```\nplain text\n```",
			expected: "plain text",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractLaTeX(tt.input)
			if got != tt.expected {
				t.Errorf("Expected:\n%q\ngot:\n%q", tt.expected, got)
			}
		})
	}
}

func TestExtractLaTeXIdempotent(t *testing.T) {
	input := "Here you go:\n```latex\n\\documentclass{article}\nBody\n```\nHope this helps!"

	once := ExtractLaTeX(input)
	twice := ExtractLaTeX(once)

	if once != twice {
		t.Errorf("Expected idempotent extraction, first: %q, second: %q", once, twice)
	}
}

func TestRecoverObject(t *testing.T) {
	t.Run("clean JSON parses directly", func(t *testing.T) {
		obj, fail := RecoverObject(`{"name": "Ada Lovelace", "skills": ["math"]}`)
		if fail != nil {
			t.Fatalf("Expected success, got failure: %v", fail)
		}
		if obj["name"] != "Ada Lovelace" {
			t.Errorf("Expected name 'Ada Lovelace', got %v", obj["name"])
		}
	})

	t.Run("fenced JSON with chatter recovers", func(t *testing.T) {
		raw := "Here is the structured CV:\n```json\n{\"name\": \"Ada\"}\n```\nLet me know!"
		obj, fail := RecoverObject(raw)
		if fail != nil {
			t.Fatalf("Expected success, got failure: %v", fail)
		}
		if obj["name"] != "Ada" {
			t.Errorf("Expected name 'Ada', got %v", obj["name"])
		}
	})

	t.Run("braces inside prose sliced out", func(t *testing.T) {
		raw := "The result { \"a\": 1 } as requested"
		obj, fail := RecoverObject(raw)
		if fail != nil {
			t.Fatalf("Expected success, got failure: %v", fail)
		}
		if obj["a"] != float64(1) {
			t.Errorf("Expected a=1, got %v", obj["a"])
		}
	})

	t.Run("unparsable reply fails with cleaned text", func(t *testing.T) {
		raw := "```json\n{ this is not json }\n```"
		obj, fail := RecoverObject(raw)
		if obj != nil {
			t.Fatalf("Expected nil object, got %v", obj)
		}
		if fail == nil {
			t.Fatal("Expected failure")
		}
		if fail.Code != CodeParse {
			t.Errorf("Expected code %s, got %s", CodeParse, fail.Code)
		}
		if fail.RawText != "{ this is not json }" {
			t.Errorf("Expected cleaned text in failure, got %q", fail.RawText)
		}
	})

	t.Run("no braces at all fails", func(t *testing.T) {
		_, fail := RecoverObject("I could not produce any structured output, sorry.")
		if fail == nil {
			t.Fatal("Expected failure")
		}
		if fail.Code != CodeParse {
			t.Errorf("Expected code %s, got %s", CodeParse, fail.Code)
		}
	})

	t.Run("idempotent on recovered output", func(t *testing.T) {
		raw := "```json\n{\"name\": \"Ada\", \"skills\": [\"math\", \"logic\"]}\n```"
		obj, fail := RecoverObject(raw)
		if fail != nil {
			t.Fatalf("Expected success, got failure: %v", fail)
		}

		serialized, err := json.Marshal(obj)
		if err != nil {
			t.Fatalf("Failed to re-serialize: %v", err)
		}

		again, fail := RecoverObject(string(serialized))
		if fail != nil {
			t.Fatalf("Expected recovered output to recover again, got failure: %v", fail)
		}
		if again["name"] != "Ada" {
			t.Errorf("Expected name to survive the round trip, got %v", again["name"])
		}
	})
}

func TestRecoverScores(t *testing.T) {
	t.Run("plain object", func(t *testing.T) {
		raw := `{"fair_match": 80, "exp_level": 70, "skill": 90, "industry_exp": 60}`
		scores, fail := RecoverScores(raw)
		if fail != nil {
			t.Fatalf("Expected success, got failure: %v", fail)
		}
		if scores.FairMatch != 80 || scores.ExpLevel != 70 || scores.Skill != 90 || scores.IndustryExp != 60 {
			t.Errorf("Unexpected scores: %+v", scores)
		}
	})

	t.Run("object embedded in chatter", func(t *testing.T) {
		raw := "Based on my analysis:\n{\"fair_match\": 55,\n\"exp_level\": 65,\n\"skill\": 75,\n\"industry_exp\": 45}\nOverall a moderate fit."
		scores, fail := RecoverScores(raw)
		if fail != nil {
			t.Fatalf("Expected success, got failure: %v", fail)
		}
		if scores.FairMatch != 55 {
			t.Errorf("Expected fair_match 55, got %d", scores.FairMatch)
		}
	})

	t.Run("numeric strings coerce", func(t *testing.T) {
		raw := `{"fair_match": "80", "exp_level": "70", "skill": 90, "industry_exp": "60"}`
		scores, fail := RecoverScores(raw)
		if fail != nil {
			t.Fatalf("Expected success, got failure: %v", fail)
		}
		if scores.FairMatch != 80 || scores.ExpLevel != 70 {
			t.Errorf("Unexpected scores: %+v", scores)
		}
	})

	t.Run("floats floor", func(t *testing.T) {
		raw := `{"fair_match": 80.9, "exp_level": 70, "skill": 90, "industry_exp": 60}`
		scores, fail := RecoverScores(raw)
		if fail != nil {
			t.Fatalf("Expected success, got failure: %v", fail)
		}
		if scores.FairMatch != 80 {
			t.Errorf("Expected fair_match floored to 80, got %d", scores.FairMatch)
		}
	})

	t.Run("missing key names the key", func(t *testing.T) {
		raw := `{"fair_match": 80, "exp_level": 70, "skill": 90}`
		_, fail := RecoverScores(raw)
		if fail == nil {
			t.Fatal("Expected failure")
		}
		if fail.Code != CodeMissingKey {
			t.Errorf("Expected code %s, got %s", CodeMissingKey, fail.Code)
		}
		if fail.Key != "industry_exp" {
			t.Errorf("Expected key 'industry_exp', got '%s'", fail.Key)
		}
		if fail.RawText != raw {
			t.Errorf("Expected raw text preserved in failure")
		}
	})

	t.Run("non-numeric value names the key", func(t *testing.T) {
		raw := `{"fair_match": "high", "exp_level": 70, "skill": 90, "industry_exp": 60}`
		_, fail := RecoverScores(raw)
		if fail == nil {
			t.Fatal("Expected failure")
		}
		if fail.Code != CodeBadValue {
			t.Errorf("Expected code %s, got %s", CodeBadValue, fail.Code)
		}
		if fail.Key != "fair_match" {
			t.Errorf("Expected key 'fair_match', got '%s'", fail.Key)
		}
	})

	t.Run("no object at all", func(t *testing.T) {
		raw := "I cannot score this CV."
		_, fail := RecoverScores(raw)
		if fail == nil {
			t.Fatal("Expected failure")
		}
		if fail.Code != CodeNoObject {
			t.Errorf("Expected code %s, got %s", CodeNoObject, fail.Code)
		}
		if fail.RawText != raw {
			t.Errorf("Expected full raw text in failure, got %q", fail.RawText)
		}
	})

	t.Run("idempotent on serialized output", func(t *testing.T) {
		raw := "```json\n{\"fair_match\": 80, \"exp_level\": 70, \"skill\": 90, \"industry_exp\": 60}\n```"
		scores, fail := RecoverScores(raw)
		if fail != nil {
			t.Fatalf("Expected success, got failure: %v", fail)
		}

		serialized, err := json.Marshal(scores)
		if err != nil {
			t.Fatalf("Failed to re-serialize: %v", err)
		}

		again, fail := RecoverScores(string(serialized))
		if fail != nil {
			t.Fatalf("Expected recovered output to recover again, got failure: %v", fail)
		}
		if again != scores {
			t.Errorf("Expected scores to survive the round trip: %+v vs %+v", again, scores)
		}
	})
}

func TestRecoverRankings(t *testing.T) {
	t.Run("array embedded in chatter", func(t *testing.T) {
		raw := "Top matches:\n[{\"job_index\": 2, \"alignment\": 85}, {\"job_index\": 1, \"alignment\": 70}]\nGood luck!"
		entries, fail := RecoverRankings(raw)
		if fail != nil {
			t.Fatalf("Expected success, got failure: %v", fail)
		}
		if len(entries) != 2 {
			t.Fatalf("Expected 2 entries, got %d", len(entries))
		}
		if entries[0].JobIndex != 2 || entries[0].Alignment != 85 {
			t.Errorf("Unexpected first entry: %+v", entries[0])
		}
	})

	t.Run("order preserved", func(t *testing.T) {
		raw := `[{"job_index": 3, "alignment": 50}, {"job_index": 1, "alignment": 90}]`
		entries, fail := RecoverRankings(raw)
		if fail != nil {
			t.Fatalf("Expected success, got failure: %v", fail)
		}
		if entries[0].JobIndex != 3 || entries[1].JobIndex != 1 {
			t.Errorf("Expected model order preserved, got %+v", entries)
		}
	})

	t.Run("no array fails with raw text", func(t *testing.T) {
		raw := "No rankings available."
		_, fail := RecoverRankings(raw)
		if fail == nil {
			t.Fatal("Expected failure")
		}
		if fail.Code != CodeNoArray {
			t.Errorf("Expected code %s, got %s", CodeNoArray, fail.Code)
		}
		if fail.RawText != raw {
			t.Errorf("Expected raw text preserved, got %q", fail.RawText)
		}
	})

	t.Run("malformed array fails", func(t *testing.T) {
		raw := "[not json at all]"
		_, fail := RecoverRankings(raw)
		if fail == nil {
			t.Fatal("Expected failure")
		}
		if fail.Code != CodeParse {
			t.Errorf("Expected code %s, got %s", CodeParse, fail.Code)
		}
	})

	t.Run("empty array is valid", func(t *testing.T) {
		entries, fail := RecoverRankings("[]")
		if fail != nil {
			t.Fatalf("Expected success, got failure: %v", fail)
		}
		if len(entries) != 0 {
			t.Errorf("Expected empty slice, got %+v", entries)
		}
	})
}

func TestFailureError(t *testing.T) {
	withKey := &Failure{Code: CodeMissingKey, Key: "skill"}
	if !strings.Contains(withKey.Error(), "skill") {
		t.Errorf("Expected error message to name the key, got %q", withKey.Error())
	}

	withoutKey := &Failure{Code: CodeNoArray, RawText: "raw"}
	if withoutKey.Error() != CodeNoArray {
		t.Errorf("Expected bare code message, got %q", withoutKey.Error())
	}
}
