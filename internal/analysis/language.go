package analysis

import (
	"strings"

	"github.com/marisolvega/callinsights-backend/internal/transcript"
)

var languageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"nl": "Dutch",
	"ru": "Russian",
	"ja": "Japanese",
	"ko": "Korean",
	"zh": "Chinese",
	"hi": "Hindi",
	"ar": "Arabic",
	"tr": "Turkish",
	"pl": "Polish",
	"sv": "Swedish",
	"da": "Danish",
	"no": "Norwegian",
	"fi": "Finnish",
	"uk": "Ukrainian",
}

type LanguageResult struct {
	Code       string
	Name       string
	Confidence float64
}

// DetectLanguage reports the language the transcription service detected.
// The service's own detection drives the result; there is no secondary
// in-process detector.
func DetectLanguage(t *transcript.Normalized, _ string) (*LanguageResult, error) {
	if t == nil || strings.TrimSpace(t.Text) == "" {
		return nil, ErrEmptyTranscript
	}

	code := strings.ToLower(strings.TrimSpace(t.Language))
	if code == "" {
		return &LanguageResult{Code: "unknown", Name: "Unknown", Confidence: 0}, nil
	}

	// Deepgram reports BCP-47 style tags like "en-US"; keep the primary
	// subtag for the name lookup.
	primary := code
	if i := strings.IndexByte(code, '-'); i > 0 {
		primary = code[:i]
	}

	name, ok := languageNames[primary]
	if !ok {
		name = strings.ToUpper(primary)
	}

	confidence := t.Confidence * 100
	if confidence <= 0 {
		confidence = 100
	}
	return &LanguageResult{Code: code, Name: name, Confidence: confidence}, nil
}
