package interview

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// Scores are asked for on this scale. Values outside it are kept as given.
const (
	minScore = 1
	maxScore = 10
)

// Report is the structured performance report the analysis prompt asks for.
type Report struct {
	TechnicalScore      float64  `json:"technical_score"`
	CommunicationScore  float64  `json:"communication_score"`
	ProblemSolvingScore float64  `json:"problem_solving_score"`
	Feedback            string   `json:"feedback"`
	Strengths           []string `json:"strengths"`
	Weaknesses          []string `json:"weaknesses"`
}

// rawReport uses pointers to tell missing keys from zero values.
type rawReport struct {
	TechnicalScore      *float64  `json:"technical_score"`
	CommunicationScore  *float64  `json:"communication_score"`
	ProblemSolvingScore *float64  `json:"problem_solving_score"`
	Feedback            *string   `json:"feedback"`
	Strengths           *[]string `json:"strengths"`
	Weaknesses          *[]string `json:"weaknesses"`
}

// stripCodeFences removes markdown fences models like to add around JSON.
func stripCodeFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

// parseReport validates text against the report schema.
func parseReport(text string) (Report, error) {
	var raw rawReport
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	if err := dec.Decode(&raw); err != nil {
		return Report{}, fmt.Errorf("decode report: %w", err)
	}
	if dec.More() {
		return Report{}, fmt.Errorf("decode report: trailing data after JSON object")
	}

	scores := []struct {
		key   string
		value *float64
	}{
		{"technical_score", raw.TechnicalScore},
		{"communication_score", raw.CommunicationScore},
		{"problem_solving_score", raw.ProblemSolvingScore},
	}
	for _, score := range scores {
		if score.value == nil {
			return Report{}, fmt.Errorf("missing %s", score.key)
		}
		if *score.value < minScore || *score.value > maxScore {
			log.Printf("[interview] report %s=%v outside %v..%v, keeping it", score.key, *score.value, minScore, maxScore)
		}
	}
	if raw.Feedback == nil {
		return Report{}, fmt.Errorf("missing feedback")
	}
	if raw.Strengths == nil {
		return Report{}, fmt.Errorf("missing strengths")
	}
	if raw.Weaknesses == nil {
		return Report{}, fmt.Errorf("missing weaknesses")
	}

	return Report{
		TechnicalScore:      *raw.TechnicalScore,
		CommunicationScore:  *raw.CommunicationScore,
		ProblemSolvingScore: *raw.ProblemSolvingScore,
		Feedback:            *raw.Feedback,
		Strengths:           *raw.Strengths,
		Weaknesses:          *raw.Weaknesses,
	}, nil
}
