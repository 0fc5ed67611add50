package analysis

import (
	"sort"
	"strings"

	"github.com/marisolvega/callinsights-backend/internal/transcript"
)

const maxTopics = 5

var stopwords = wordSet(
	"the", "and", "for", "are", "but", "not", "you", "your", "all", "can",
	"had", "has", "have", "was", "were", "will", "with", "this", "that",
	"these", "those", "they", "them", "their", "there", "then", "than",
	"what", "when", "where", "which", "who", "how", "why", "also", "been",
	"being", "could", "should", "would", "about", "after", "before",
	"just", "like", "into", "over", "under", "out", "our", "from", "some",
	"any", "each", "very", "more", "most", "other", "such", "only", "own",
	"same", "too", "get", "got", "going", "yeah", "okay", "well", "know",
	"think", "want", "need", "right", "here", "because", "really",
)

// Topic is one recurring keyword with its occurrence count.
type Topic struct {
	Keyword     string `json:"keyword"`
	Occurrences int    `json:"occurrences"`
}

type TopicsResult struct {
	Topics []Topic
}

// DetectTopics surfaces the dominant keywords of the conversation by
// frequency, after dropping stopwords and short tokens. Ties break
// alphabetically so the result is deterministic.
func DetectTopics(t *transcript.Normalized, _ string) (*TopicsResult, error) {
	if t == nil || strings.TrimSpace(t.Text) == "" {
		return nil, ErrEmptyTranscript
	}

	frequency := make(map[string]int)
	for _, token := range contentTokens(t.Text) {
		frequency[token]++
	}

	topics := make([]Topic, 0, len(frequency))
	for keyword, count := range frequency {
		if count < 2 {
			continue
		}
		topics = append(topics, Topic{Keyword: keyword, Occurrences: count})
	}
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Occurrences != topics[j].Occurrences {
			return topics[i].Occurrences > topics[j].Occurrences
		}
		return topics[i].Keyword < topics[j].Keyword
	})
	if len(topics) > maxTopics {
		topics = topics[:maxTopics]
	}

	return &TopicsResult{Topics: topics}, nil
}

// contentTokens lowercases, strips punctuation, and drops stopwords and
// tokens shorter than three characters.
func contentTokens(text string) []string {
	raw := tokenize(text)
	tokens := make([]string, 0, len(raw))
	for _, token := range raw {
		if len(token) <= 2 {
			continue
		}
		if _, ok := stopwords[token]; ok {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}
