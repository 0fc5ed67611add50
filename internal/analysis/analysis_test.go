package analysis

import (
	"strings"
	"testing"

	"github.com/marisolvega/callinsights-backend/internal/transcript"
	"github.com/marisolvega/callinsights-backend/pkg/enums"
)

func transcriptWith(paragraphs ...transcript.Paragraph) *transcript.Normalized {
	var texts []string
	for i := range paragraphs {
		paragraphs[i].Index = i
		for j := range paragraphs[i].Sentences {
			paragraphs[i].Sentences[j].Index = transcriptIndex(i, j)
		}
		texts = append(texts, paragraphs[i].Text)
	}
	return &transcript.Normalized{
		Text:       strings.Join(texts, " "),
		Confidence: 0.9,
		Language:   "en",
		Paragraphs: paragraphs,
	}
}

func transcriptIndex(p, s int) string {
	return string(rune('0'+p)) + "_" + string(rune('0'+s))
}

func singleSentenceParagraph(text string, speaker string, start, end float64) transcript.Paragraph {
	return transcript.Paragraph{
		Text:         text,
		StartTime:    start,
		EndTime:      end,
		SpeakerLabel: speaker,
		WordCount:    len(strings.Fields(text)),
		Sentences:    []transcript.Sentence{{Text: text, StartTime: start, EndTime: end}},
	}
}

func TestAnalyzeSentimentLabels(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		want enums.SentimentLabel
	}{
		{"positive", "This is great, thank you, excellent service", enums.SentimentPositive},
		{"negative", "This is terrible, awful, worst problem ever", enums.SentimentNegative},
		{"neutral", "The account number is on the second page", enums.SentimentNeutral},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			result, err := AnalyzeSentiment(transcriptWith(singleSentenceParagraph(tc.text, "speaker_0", 0, 5)), "file-1")
			if err != nil {
				t.Fatalf("AnalyzeSentiment: %v", err)
			}
			if result.Overall != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, result.Overall)
			}
			if result.Confidence < 0 || result.Confidence > 100 {
				t.Fatalf("confidence out of range: %f", result.Confidence)
			}
			if len(result.Sentences) != 1 {
				t.Fatalf("expected 1 sentence sentiment, got %d", len(result.Sentences))
			}
			if result.Sentences[0].SentenceIndex != "0_0" {
				t.Fatalf("unexpected sentence index %q", result.Sentences[0].SentenceIndex)
			}
		})
	}
}

func TestAnalyzeSentimentEmptyTranscript(t *testing.T) {
	t.Parallel()

	if _, err := AnalyzeSentiment(&transcript.Normalized{}, "file-1"); err == nil {
		t.Fatal("expected error for empty transcript")
	}
}

func TestAnalyzeSentimentFlatTranscript(t *testing.T) {
	t.Parallel()

	result, err := AnalyzeSentiment(&transcript.Normalized{Text: "great great great service"}, "file-1")
	if err != nil {
		t.Fatalf("AnalyzeSentiment: %v", err)
	}
	if result.Overall != enums.SentimentPositive {
		t.Fatalf("expected positive, got %s", result.Overall)
	}
	if len(result.Sentences) != 1 {
		t.Fatalf("flat transcript should score one segment, got %d", len(result.Sentences))
	}
}

func TestDetectLanguage(t *testing.T) {
	t.Parallel()

	result, err := DetectLanguage(&transcript.Normalized{Text: "hola", Language: "es", Confidence: 0.5}, "file-1")
	if err != nil {
		t.Fatalf("DetectLanguage: %v", err)
	}
	if result.Code != "es" || result.Name != "Spanish" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Confidence != 50 {
		t.Fatalf("unexpected confidence %f", result.Confidence)
	}

	regional, err := DetectLanguage(&transcript.Normalized{Text: "hello", Language: "en-US"}, "file-1")
	if err != nil {
		t.Fatalf("DetectLanguage: %v", err)
	}
	if regional.Name != "English" {
		t.Fatalf("expected regional tag resolved to English, got %q", regional.Name)
	}

	unknown, err := DetectLanguage(&transcript.Normalized{Text: "text"}, "file-1")
	if err != nil {
		t.Fatalf("DetectLanguage: %v", err)
	}
	if unknown.Code != "unknown" || unknown.Confidence != 0 {
		t.Fatalf("unexpected unknown result %+v", unknown)
	}
}

func TestSummarizePrefersServiceSummary(t *testing.T) {
	t.Parallel()

	result, err := Summarize(&transcript.Normalized{Text: "long text", Summary: "Service summary."}, "file-1")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if result.Method != SummaryMethodService || result.Text != "Service summary." {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestSummarizeExtractiveFallback(t *testing.T) {
	t.Parallel()

	paragraph := transcript.Paragraph{
		Text: "filler",
		Sentences: []transcript.Sentence{
			{Text: "The billing system charged the customer twice."},
			{Text: "Weather was nice."},
			{Text: "The customer wants the duplicate billing charge refunded."},
			{Text: "Lunch was discussed."},
			{Text: "A billing correction and refund were promised by Friday."},
		},
	}
	result, err := Summarize(transcriptWith(paragraph), "file-1")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if result.Method != SummaryMethodExtractive {
		t.Fatalf("expected extractive method, got %s", result.Method)
	}
	if !strings.Contains(result.Text, "billing") {
		t.Fatalf("expected dominant theme in summary, got %q", result.Text)
	}
	if strings.Count(result.Text, ".") > extractiveSentenceCount {
		t.Fatalf("summary longer than %d sentences: %q", extractiveSentenceCount, result.Text)
	}
}

func TestDetectTopicsRanksByFrequency(t *testing.T) {
	t.Parallel()

	text := "The invoice for the subscription is wrong. The invoice shows a double subscription charge. Please fix the invoice."
	result, err := DetectTopics(&transcript.Normalized{Text: text}, "file-1")
	if err != nil {
		t.Fatalf("DetectTopics: %v", err)
	}
	if len(result.Topics) == 0 {
		t.Fatal("expected topics")
	}
	if result.Topics[0].Keyword != "invoice" || result.Topics[0].Occurrences != 3 {
		t.Fatalf("unexpected top topic %+v", result.Topics[0])
	}
	for _, topic := range result.Topics {
		if topic.Occurrences < 2 {
			t.Fatalf("single-occurrence keyword leaked into topics: %+v", topic)
		}
	}
}

func TestPhraseDetectorScoresAndLevels(t *testing.T) {
	t.Parallel()

	detector := NewPhraseDetector(nil)
	paragraphs := []transcript.Paragraph{
		singleSentenceParagraph("This is a guaranteed profit, trust me.", "speaker_0", 0, 3),
		singleSentenceParagraph("Please don't tell anyone about this.", "speaker_0", 3, 6),
		singleSentenceParagraph("Those people always complain.", "speaker_1", 6, 9),
	}

	result, err := detector.Detect(transcriptWith(paragraphs...), "file-1")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	// One hit each in financial_promises (w=0.3), unauthorized_disclosures
	// (w=0.2), discriminatory_language (w=0.15): 50*(0.3+0.2+0.15) = 32.5.
	if result.RiskScore != 32.5 {
		t.Fatalf("unexpected risk score %f", result.RiskScore)
	}
	if result.RiskLevel != enums.RiskLevelMedium {
		t.Fatalf("expected medium risk, got %s", result.RiskLevel)
	}
	if len(result.Detections) != 3 {
		t.Fatalf("expected 3 detections, got %d", len(result.Detections))
	}
	if result.Detections[0].Phrase != "guaranteed profit" {
		t.Fatalf("detections not ordered by time: %+v", result.Detections[0])
	}
	if result.CategoryScores["financial_promises"] != 50 {
		t.Fatalf("unexpected category score %f", result.CategoryScores["financial_promises"])
	}
	if result.CategoryScores["misleading_claims"] != 0 {
		t.Fatalf("untouched category should score 0, got %f", result.CategoryScores["misleading_claims"])
	}
}

func TestPhraseDetectorSaturatesCategory(t *testing.T) {
	t.Parallel()

	detector := NewPhraseDetector(nil)
	paragraphs := []transcript.Paragraph{
		singleSentenceParagraph("guaranteed profit guaranteed profit guaranteed profit", "speaker_0", 0, 3),
	}

	result, err := detector.Detect(transcriptWith(paragraphs...), "file-1")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if result.CategoryScores["financial_promises"] != 100 {
		t.Fatalf("three occurrences should saturate the category, got %f", result.CategoryScores["financial_promises"])
	}
	// 100 * 0.3 = 30.
	if result.RiskScore != 30 {
		t.Fatalf("unexpected risk score %f", result.RiskScore)
	}
}

func TestPhraseDetectorCleanTranscriptIsLowRisk(t *testing.T) {
	t.Parallel()

	detector := NewPhraseDetector(nil)
	result, err := detector.Detect(&transcript.Normalized{Text: "A perfectly ordinary support call."}, "file-1")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if result.RiskScore != 0 || result.RiskLevel != enums.RiskLevelLow {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(result.Detections) != 0 {
		t.Fatalf("expected no detections, got %d", len(result.Detections))
	}
}

func TestAnalyzeSpeakersMetrics(t *testing.T) {
	t.Parallel()

	paragraphs := []transcript.Paragraph{
		singleSentenceParagraph("Hello, thanks for calling support today.", "speaker_0", 0, 6),
		singleSentenceParagraph("Hi, my order never arrived.", "speaker_1", 6, 8),
		singleSentenceParagraph("Let me check the shipment status for you.", "speaker_0", 8, 10),
	}

	result, err := AnalyzeSpeakers(transcriptWith(paragraphs...), "file-1")
	if err != nil {
		t.Fatalf("AnalyzeSpeakers: %v", err)
	}
	if result.SpeakerCount != 2 {
		t.Fatalf("expected 2 speakers, got %d", result.SpeakerCount)
	}
	if len(result.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(result.Segments))
	}

	agent := result.Metrics["speaker_0"]
	caller := result.Metrics["speaker_1"]
	if agent.TalkTime != 8 || caller.TalkTime != 2 {
		t.Fatalf("unexpected talk times %f/%f", agent.TalkTime, caller.TalkTime)
	}
	if agent.TalkRatio != 0.8 || caller.TalkRatio != 0.2 {
		t.Fatalf("unexpected talk ratios %f/%f", agent.TalkRatio, caller.TalkRatio)
	}
	if agent.WordCount != 14 {
		t.Fatalf("unexpected agent word count %d", agent.WordCount)
	}
}

func TestAnalyzeSpeakersNoAttribution(t *testing.T) {
	t.Parallel()

	result, err := AnalyzeSpeakers(&transcript.Normalized{Text: "flat transcript"}, "file-1")
	if err != nil {
		t.Fatalf("AnalyzeSpeakers: %v", err)
	}
	if result.SpeakerCount != 0 || len(result.Segments) != 0 {
		t.Fatalf("expected empty diarization, got %+v", result)
	}
}
