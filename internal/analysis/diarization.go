package analysis

import (
	"strings"

	"github.com/marisolvega/callinsights-backend/internal/transcript"
)

// SpeakerSegment is one contiguous span attributed to a single speaker.
type SpeakerSegment struct {
	SpeakerLabel string
	Text         string
	StartTime    float64
	EndTime      float64
	WordCount    int
}

// SpeakerMetrics aggregates one speaker's contribution to the call.
type SpeakerMetrics struct {
	TalkTime  float64 `json:"talk_time"`
	WordCount int     `json:"word_count"`
	TalkRatio float64 `json:"talk_ratio"`
}

type DiarizationResult struct {
	SpeakerCount int
	Segments     []SpeakerSegment
	Metrics      map[string]SpeakerMetrics
}

// AnalyzeSpeakers derives per-speaker segments and contribution metrics
// from the normalized paragraphs. Talk ratio is each speaker's share of the
// total attributed talk time.
func AnalyzeSpeakers(t *transcript.Normalized, _ string) (*DiarizationResult, error) {
	if t == nil || strings.TrimSpace(t.Text) == "" {
		return nil, ErrEmptyTranscript
	}

	result := &DiarizationResult{Metrics: make(map[string]SpeakerMetrics)}
	var totalTalkTime float64

	for _, paragraph := range t.Paragraphs {
		if paragraph.SpeakerLabel == "" {
			continue
		}
		duration := paragraph.EndTime - paragraph.StartTime
		if duration < 0 {
			duration = 0
		}
		wordCount := paragraph.WordCount
		if wordCount == 0 {
			wordCount = len(strings.Fields(paragraph.Text))
		}

		result.Segments = append(result.Segments, SpeakerSegment{
			SpeakerLabel: paragraph.SpeakerLabel,
			Text:         paragraph.Text,
			StartTime:    paragraph.StartTime,
			EndTime:      paragraph.EndTime,
			WordCount:    wordCount,
		})

		metrics := result.Metrics[paragraph.SpeakerLabel]
		metrics.TalkTime += duration
		metrics.WordCount += wordCount
		result.Metrics[paragraph.SpeakerLabel] = metrics
		totalTalkTime += duration
	}

	if totalTalkTime > 0 {
		for label, metrics := range result.Metrics {
			metrics.TalkRatio = metrics.TalkTime / totalTalkTime
			result.Metrics[label] = metrics
		}
	}

	result.SpeakerCount = len(result.Metrics)
	return result, nil
}
