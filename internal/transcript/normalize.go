package transcript

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/marisolvega/callinsights-backend/internal/transcription"
)

// Normalize resolves the transcription response into the canonical
// hierarchy. Shape variation is handled once here: speaker-tagged
// utterances are preferred, then the paragraph tree, then the flat channel
// transcript with no speaker attribution. A response with no paragraph
// structure at all yields empty paragraph and sentence sequences, which is a
// valid outcome.
func Normalize(resp *transcription.Response) *Normalized {
	out := &Normalized{Variant: VariantFlat}
	if resp == nil {
		return out
	}

	out.Language = resp.DetectedLanguage()
	out.Summary = resp.SummaryText()

	alt := resp.PrimaryAlternative()
	if alt != nil {
		out.Text = alt.Transcript
		out.Confidence = alt.Confidence
	}

	switch {
	case len(resp.Results.Utterances) > 0:
		out.Variant = VariantUtterances
		normalizeUtterances(out, resp.Results.Utterances)
	case alt != nil && alt.Paragraphs != nil && len(alt.Paragraphs.Paragraphs) > 0:
		out.Variant = VariantParagraphs
		normalizeParagraphs(out, alt)
	}

	if out.Text == "" && len(out.Paragraphs) > 0 {
		texts := make([]string, 0, len(out.Paragraphs))
		for _, paragraph := range out.Paragraphs {
			texts = append(texts, paragraph.Text)
		}
		out.Text = strings.Join(texts, " ")
	}

	out.Speakers = collectSpeakers(out.Paragraphs)
	return out
}

// normalizeUtterances maps each utterance to one paragraph, splitting its
// transcript into sentences for the composite index.
func normalizeUtterances(out *Normalized, utterances []transcription.Utterance) {
	out.Paragraphs = make([]Paragraph, 0, len(utterances))
	out.Utterances = make([]Utterance, 0, len(utterances))

	for i, utterance := range utterances {
		label := speakerLabel(utterance.Speaker)
		out.Utterances = append(out.Utterances, Utterance{
			Text:         utterance.Transcript,
			StartTime:    utterance.Start,
			EndTime:      utterance.End,
			Confidence:   utterance.Confidence,
			SpeakerLabel: label,
		})

		paragraph := Paragraph{
			Index:        i,
			Text:         utterance.Transcript,
			StartTime:    utterance.Start,
			EndTime:      utterance.End,
			SpeakerLabel: label,
			WordCount:    len(strings.Fields(utterance.Transcript)),
		}
		paragraph.Sentences = indexSentences(i, splitSentences(utterance.Transcript, utterance.Start, utterance.End))
		out.Paragraphs = append(out.Paragraphs, paragraph)
	}
}

func normalizeParagraphs(out *Normalized, alt *transcription.Alternative) {
	source := alt.Paragraphs.Paragraphs
	out.Paragraphs = make([]Paragraph, 0, len(source))

	for i, raw := range source {
		sentences := make([]Sentence, 0, len(raw.Sentences))
		var texts []string
		for _, sentence := range raw.Sentences {
			sentences = append(sentences, Sentence{
				Text:      sentence.Text,
				StartTime: sentence.Start,
				EndTime:   sentence.End,
			})
			texts = append(texts, sentence.Text)
		}

		paragraph := Paragraph{
			Index:        i,
			Text:         strings.Join(texts, " "),
			StartTime:    raw.Start,
			EndTime:      raw.End,
			SpeakerLabel: speakerLabel(raw.Speaker),
			WordCount:    raw.NumWords,
		}
		if paragraph.WordCount == 0 {
			paragraph.WordCount = len(strings.Fields(paragraph.Text))
		}
		paragraph.Sentences = indexSentences(i, sentences)
		out.Paragraphs = append(out.Paragraphs, paragraph)
	}
}

func indexSentences(paragraphIndex int, sentences []Sentence) []Sentence {
	for i := range sentences {
		sentences[i].Index = fmt.Sprintf("%d_%d", paragraphIndex, i)
	}
	return sentences
}

func speakerLabel(speaker *int) string {
	if speaker == nil {
		return ""
	}
	return fmt.Sprintf("speaker_%d", *speaker)
}

func collectSpeakers(paragraphs []Paragraph) []string {
	seen := make(map[string]struct{})
	var speakers []string
	for _, paragraph := range paragraphs {
		if paragraph.SpeakerLabel == "" {
			continue
		}
		if _, ok := seen[paragraph.SpeakerLabel]; ok {
			continue
		}
		seen[paragraph.SpeakerLabel] = struct{}{}
		speakers = append(speakers, paragraph.SpeakerLabel)
	}
	sort.Strings(speakers)
	return speakers
}

// splitSentences breaks a transcript on terminal punctuation, distributing
// the span's time range proportionally to sentence length.
func splitSentences(text string, start, end float64) []Sentence {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var parts []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if part := strings.TrimSpace(current.String()); part != "" {
				parts = append(parts, part)
			}
			current.Reset()
		}
	}
	if part := strings.TrimSpace(current.String()); part != "" {
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return nil
	}

	total := 0
	for _, part := range parts {
		total += len(part)
	}

	sentences := make([]Sentence, 0, len(parts))
	span := end - start
	cursor := start
	consumed := 0
	for i, part := range parts {
		consumed += len(part)
		sentenceEnd := end
		if i < len(parts)-1 && total > 0 {
			sentenceEnd = start + span*float64(consumed)/float64(total)
		}
		sentences = append(sentences, Sentence{
			Text:      part,
			StartTime: cursor,
			EndTime:   sentenceEnd,
		})
		cursor = sentenceEnd
	}
	return sentences
}

// WordCount counts whitespace-delimited tokens that contain at least one
// letter or digit.
func WordCount(text string) int {
	count := 0
	for _, field := range strings.Fields(text) {
		for _, r := range field {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				count++
				break
			}
		}
	}
	return count
}
