package analysis

import (
	"math"
	"strings"

	"github.com/marisolvega/callinsights-backend/internal/transcript"
	"github.com/marisolvega/callinsights-backend/pkg/enums"
)

// Compound scores within this band are classified neutral.
const neutralBand = 0.05

var positiveLexicon = wordSet(
	"good", "great", "excellent", "amazing", "wonderful", "fantastic",
	"happy", "pleased", "glad", "love", "perfect", "thanks", "thank",
	"helpful", "appreciate", "awesome", "best", "resolved", "satisfied",
	"yes", "sure", "absolutely", "definitely", "easy", "quick",
)

var negativeLexicon = wordSet(
	"bad", "terrible", "awful", "horrible", "poor", "worst", "hate",
	"angry", "upset", "frustrated", "disappointed", "annoyed", "broken",
	"problem", "issue", "complaint", "refund", "cancel", "wrong", "slow",
	"never", "unacceptable", "useless", "fail", "failed", "waiting",
)

// SentenceSentiment scores one sentence of the transcript.
type SentenceSentiment struct {
	SentenceIndex string  `json:"sentence_index"`
	Text          string  `json:"text"`
	Label         string  `json:"label"`
	Compound      float64 `json:"compound"`
}

type SentimentResult struct {
	Overall    enums.SentimentLabel
	Confidence float64
	Sentences  []SentenceSentiment
}

// AnalyzeSentiment classifies the emotional tone of the transcript with a
// lexical scorer: each sentence gets a compound score in [-1, 1] from the
// balance of positive and negative tokens, and the overall label comes from
// the mean compound.
func AnalyzeSentiment(t *transcript.Normalized, _ string) (*SentimentResult, error) {
	if t == nil || strings.TrimSpace(t.Text) == "" {
		return nil, ErrEmptyTranscript
	}

	sentences := t.AllSentences()
	if len(sentences) == 0 {
		// Flat transcript: score the whole text as a single segment.
		sentences = []transcript.Sentence{{Index: "0_0", Text: t.Text}}
	}

	result := &SentimentResult{Sentences: make([]SentenceSentiment, 0, len(sentences))}
	var sum float64
	for _, sentence := range sentences {
		compound := compoundScore(sentence.Text)
		sum += compound
		result.Sentences = append(result.Sentences, SentenceSentiment{
			SentenceIndex: sentence.Index,
			Text:          sentence.Text,
			Label:         string(labelFor(compound)),
			Compound:      compound,
		})
	}

	mean := sum / float64(len(sentences))
	result.Overall = labelFor(mean)
	result.Confidence = confidenceFor(mean)
	return result, nil
}

func compoundScore(text string) float64 {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0
	}
	score := 0
	for _, token := range tokens {
		if _, ok := positiveLexicon[token]; ok {
			score++
		} else if _, ok := negativeLexicon[token]; ok {
			score--
		}
	}
	compound := float64(score) / math.Sqrt(float64(len(tokens)))
	return math.Max(-1, math.Min(1, compound))
}

func labelFor(compound float64) enums.SentimentLabel {
	switch {
	case compound >= neutralBand:
		return enums.SentimentPositive
	case compound <= -neutralBand:
		return enums.SentimentNegative
	default:
		return enums.SentimentNeutral
	}
}

// confidenceFor maps the mean compound onto [0, 100]: strong polarity scores
// high for polar labels, and a score near zero is a confident neutral.
func confidenceFor(mean float64) float64 {
	magnitude := math.Abs(mean)
	if magnitude >= neutralBand {
		return math.Round(math.Min(100, 50+magnitude*50))
	}
	return math.Round(100 - magnitude/neutralBand*50)
}

func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		token := strings.Trim(field, ".,!?;:\"'()-")
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}
	return set
}
