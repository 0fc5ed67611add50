package transcription

// Response mirrors the subset of the Deepgram pre-recorded response the
// pipeline consumes.
type Response struct {
	Metadata Metadata `json:"metadata"`
	Results  Results  `json:"results"`
}

type Metadata struct {
	RequestID string  `json:"request_id"`
	Duration  float64 `json:"duration"`
	Channels  int     `json:"channels"`
}

type Results struct {
	Channels   []Channel   `json:"channels"`
	Utterances []Utterance `json:"utterances"`
	Summary    *Summary    `json:"summary"`
}

type Channel struct {
	Alternatives     []Alternative `json:"alternatives"`
	DetectedLanguage string        `json:"detected_language"`
}

type Alternative struct {
	Transcript string      `json:"transcript"`
	Confidence float64     `json:"confidence"`
	Words      []Word      `json:"words"`
	Paragraphs *Paragraphs `json:"paragraphs"`
	Summaries  []Summary   `json:"summaries"`
}

type Word struct {
	Word           string  `json:"word"`
	PunctuatedWord string  `json:"punctuated_word"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Confidence     float64 `json:"confidence"`
	Speaker        *int    `json:"speaker"`
}

type Paragraphs struct {
	Transcript string      `json:"transcript"`
	Paragraphs []Paragraph `json:"paragraphs"`
}

type Paragraph struct {
	Sentences []Sentence `json:"sentences"`
	Speaker   *int       `json:"speaker"`
	Start     float64    `json:"start"`
	End       float64    `json:"end"`
	NumWords  int        `json:"num_words"`
}

type Sentence struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type Utterance struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
	Transcript string  `json:"transcript"`
	Speaker    *int    `json:"speaker"`
	Words      []Word  `json:"words"`
}

type Summary struct {
	Summary string `json:"summary"`
	Result  string `json:"result"`
}

// PrimaryAlternative returns the first alternative of the first channel, or
// nil when the response carries no transcription.
func (r *Response) PrimaryAlternative() *Alternative {
	if r == nil || len(r.Results.Channels) == 0 {
		return nil
	}
	channel := r.Results.Channels[0]
	if len(channel.Alternatives) == 0 {
		return nil
	}
	return &channel.Alternatives[0]
}

// DetectedLanguage returns the language code reported for the first channel.
func (r *Response) DetectedLanguage() string {
	if r == nil || len(r.Results.Channels) == 0 {
		return ""
	}
	return r.Results.Channels[0].DetectedLanguage
}

// SummaryText returns the service-generated summary when one is present.
func (r *Response) SummaryText() string {
	if r == nil {
		return ""
	}
	if r.Results.Summary != nil && r.Results.Summary.Summary != "" {
		return r.Results.Summary.Summary
	}
	if alt := r.PrimaryAlternative(); alt != nil && len(alt.Summaries) > 0 {
		return alt.Summaries[0].Summary
	}
	return ""
}
