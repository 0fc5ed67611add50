package analysis

import (
	"sort"
	"strings"

	"github.com/marisolvega/callinsights-backend/internal/transcript"
	"github.com/marisolvega/callinsights-backend/pkg/enums"
)

// Category weights sum to 1; each category contributes its normalized score
// scaled by its weight.
var defaultCatalogue = []PhraseCategory{
	{
		Name:   "financial_promises",
		Weight: 0.3,
		Phrases: []string{
			"guaranteed returns", "guaranteed profit", "can't lose", "risk-free investment",
			"double your money", "triple your money", "100% return", "get rich quick",
		},
	},
	{
		Name:   "misleading_claims",
		Weight: 0.25,
		Phrases: []string{
			"scientifically proven", "clinically proven", "doctors recommend", "studies show",
			"miracle cure", "secret formula", "revolutionary breakthrough",
		},
	},
	{
		Name:   "unauthorized_disclosures",
		Weight: 0.2,
		Phrases: []string{
			"between you and me", "off the record", "don't tell anyone", "keep this confidential",
			"this is just for you", "not supposed to tell you",
		},
	},
	{
		Name:   "discriminatory_language",
		Weight: 0.15,
		Phrases: []string{
			"those people", "you people", "your kind", "these types",
			"not like the others", "not like them",
		},
	},
	{
		Name:   "unauthorized_offers",
		Weight: 0.1,
		Phrases: []string{
			"special deal just for you", "unofficial discount", "under the table",
			"between us only", "management doesn't know",
		},
	},
}

type PhraseCategory struct {
	Name    string
	Weight  float64
	Phrases []string
}

// PhraseDetection is one matched occurrence of a forbidden phrase.
type PhraseDetection struct {
	Category       string
	Phrase         string
	StartTime      float64
	EndTime        float64
	Confidence     float64
	ContextSnippet string
}

type ForbiddenResult struct {
	RiskScore      float64
	RiskLevel      enums.RiskLevel
	CategoryScores map[string]float64
	Detections     []PhraseDetection
}

// PhraseDetector scans transcripts for a weighted catalogue of forbidden
// phrases.
type PhraseDetector struct {
	catalogue []PhraseCategory
}

// NewPhraseDetector builds a detector; a nil or empty catalogue falls back
// to the default compliance catalogue.
func NewPhraseDetector(catalogue []PhraseCategory) *PhraseDetector {
	if len(catalogue) == 0 {
		catalogue = defaultCatalogue
	}
	return &PhraseDetector{catalogue: catalogue}
}

// Detect scans each sentence for catalogue phrases and scores the risk. A
// category with occurrences scores 50, or 100 past two occurrences; the
// overall score is the weighted sum and maps to low/medium/high at the
// 20 and 50 boundaries.
func (d *PhraseDetector) Detect(t *transcript.Normalized, _ string) (*ForbiddenResult, error) {
	if t == nil || strings.TrimSpace(t.Text) == "" {
		return nil, ErrEmptyTranscript
	}

	sentences := t.AllSentences()
	if len(sentences) == 0 {
		sentences = []transcript.Sentence{{Index: "0_0", Text: t.Text}}
	}

	occurrences := make(map[string]int)
	var detections []PhraseDetection
	for _, category := range d.catalogue {
		for _, phrase := range category.Phrases {
			needle := strings.ToLower(phrase)
			for _, sentence := range sentences {
				haystack := strings.ToLower(sentence.Text)
				count := strings.Count(haystack, needle)
				for i := 0; i < count; i++ {
					occurrences[category.Name]++
					detections = append(detections, PhraseDetection{
						Category:       category.Name,
						Phrase:         phrase,
						StartTime:      sentence.StartTime,
						EndTime:        sentence.EndTime,
						Confidence:     1,
						ContextSnippet: snippet(sentence.Text),
					})
				}
			}
		}
	}

	result := &ForbiddenResult{
		CategoryScores: make(map[string]float64, len(d.catalogue)),
		Detections:     detections,
	}
	for _, category := range d.catalogue {
		score := 0.0
		switch n := occurrences[category.Name]; {
		case n == 0:
		case n <= 2:
			score = 50
		default:
			score = 100
		}
		result.CategoryScores[category.Name] = score
		result.RiskScore += score * category.Weight
	}

	switch {
	case result.RiskScore >= 50:
		result.RiskLevel = enums.RiskLevelHigh
	case result.RiskScore >= 20:
		result.RiskLevel = enums.RiskLevelMedium
	default:
		result.RiskLevel = enums.RiskLevelLow
	}

	sort.SliceStable(result.Detections, func(i, j int) bool {
		return result.Detections[i].StartTime < result.Detections[j].StartTime
	})
	return result, nil
}

func snippet(text string) string {
	const limit = 100
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
