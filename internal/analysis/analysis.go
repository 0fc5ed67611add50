// Package analysis holds the six independent modules derived from a
// normalized transcript. Each module is a pure transformation with no shared
// state; failures are reported per module and never affect siblings.
package analysis

import (
	apperrors "github.com/marisolvega/callinsights-backend/pkg/errors"
)

// Module names, used as metric labels and log fields.
const (
	ModuleSentiment        = "sentiment"
	ModuleLanguage         = "language"
	ModuleSummarization    = "summarization"
	ModuleForbiddenPhrases = "forbidden_phrases"
	ModuleTopics           = "topic_modeling"
	ModuleDiarization      = "speaker_diarization"
)

// ErrEmptyTranscript is returned by modules that cannot operate on an empty
// transcript. The pipeline records it as a per-module error row.
var ErrEmptyTranscript = apperrors.New(apperrors.CodeValidation, "transcript is empty")
