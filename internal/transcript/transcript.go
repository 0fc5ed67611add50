package transcript

// Variant names the response shape the normalizer resolved. Downstream code
// consumes the normalized hierarchy and never re-inspects the raw response.
type Variant string

const (
	VariantUtterances Variant = "utterances"
	VariantParagraphs Variant = "paragraphs"
	VariantFlat       Variant = "flat"
)

// Normalized is the canonical in-memory transcript, independent of the
// transcription service's wire format.
type Normalized struct {
	Text       string
	Confidence float64
	Language   string
	Summary    string
	Variant    Variant
	Paragraphs []Paragraph
	Utterances []Utterance
	Speakers   []string
}

type Paragraph struct {
	Index        int
	Text         string
	StartTime    float64
	EndTime      float64
	SpeakerLabel string
	WordCount    int
	Sentences    []Sentence
}

type Sentence struct {
	// Index is the composite "{paragraphIndex}_{sentenceIndex}" key.
	Index     string
	Text      string
	StartTime float64
	EndTime   float64
}

type Utterance struct {
	Text         string
	StartTime    float64
	EndTime      float64
	Confidence   float64
	SpeakerLabel string
}

// SentenceCount returns the total number of sentences across paragraphs.
func (n *Normalized) SentenceCount() int {
	count := 0
	for _, paragraph := range n.Paragraphs {
		count += len(paragraph.Sentences)
	}
	return count
}

// AllSentences flattens the per-paragraph sentences in order.
func (n *Normalized) AllSentences() []Sentence {
	sentences := make([]Sentence, 0, n.SentenceCount())
	for _, paragraph := range n.Paragraphs {
		sentences = append(sentences, paragraph.Sentences...)
	}
	return sentences
}
