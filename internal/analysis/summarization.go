package analysis

import (
	"sort"
	"strings"

	"github.com/marisolvega/callinsights-backend/internal/transcript"
)

const (
	SummaryMethodService    = "service"
	SummaryMethodExtractive = "extractive"

	extractiveSentenceCount = 3
)

type SummaryResult struct {
	Text   string
	Method string
}

// Summarize returns the transcription service's summary when one came back
// with the response, falling back to a frequency-weighted extractive summary
// of the normalized sentences.
func Summarize(t *transcript.Normalized, _ string) (*SummaryResult, error) {
	if t == nil || strings.TrimSpace(t.Text) == "" {
		return nil, ErrEmptyTranscript
	}

	if summary := strings.TrimSpace(t.Summary); summary != "" {
		return &SummaryResult{Text: summary, Method: SummaryMethodService}, nil
	}

	return &SummaryResult{Text: extractiveSummary(t), Method: SummaryMethodExtractive}, nil
}

// extractiveSummary scores each sentence by the document frequency of its
// tokens and stitches the top sentences back together in transcript order.
func extractiveSummary(t *transcript.Normalized) string {
	sentences := t.AllSentences()
	if len(sentences) == 0 {
		return truncateWords(t.Text, 60)
	}
	if len(sentences) <= extractiveSentenceCount {
		return t.Text
	}

	frequency := make(map[string]int)
	for _, sentence := range sentences {
		for _, token := range contentTokens(sentence.Text) {
			frequency[token]++
		}
	}

	type scored struct {
		position int
		score    float64
	}
	ranked := make([]scored, 0, len(sentences))
	for i, sentence := range sentences {
		tokens := contentTokens(sentence.Text)
		if len(tokens) == 0 {
			continue
		}
		total := 0
		for _, token := range tokens {
			total += frequency[token]
		}
		ranked = append(ranked, scored{position: i, score: float64(total) / float64(len(tokens))})
	}

	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > extractiveSentenceCount {
		ranked = ranked[:extractiveSentenceCount]
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].position < ranked[j].position })

	parts := make([]string, 0, len(ranked))
	for _, pick := range ranked {
		parts = append(parts, sentences[pick.position].Text)
	}
	return strings.Join(parts, " ")
}

func truncateWords(text string, limit int) string {
	fields := strings.Fields(text)
	if len(fields) <= limit {
		return text
	}
	return strings.Join(fields[:limit], " ") + "..."
}
