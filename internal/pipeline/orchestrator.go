package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/marisolvega/callinsights-backend/internal/analysis"
	"github.com/marisolvega/callinsights-backend/internal/assets"
	"github.com/marisolvega/callinsights-backend/internal/transcript"
	"github.com/marisolvega/callinsights-backend/internal/transcription"
	"github.com/marisolvega/callinsights-backend/pkg/db/models"
	apperrors "github.com/marisolvega/callinsights-backend/pkg/errors"
	"github.com/marisolvega/callinsights-backend/pkg/logger"
	"github.com/marisolvega/callinsights-backend/pkg/metrics"
)

const (
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaximumBackoff = 8 * time.Second
)

type blobGateway interface {
	SourceBlobSize(ctx context.Context, blob string) (int64, error)
	SourceBlobURL(blob string) (string, error)
	MoveToProcessed(ctx context.Context, blob string) (string, error)
	SourceContainer() string
}

type transcriber interface {
	TranscribeURL(ctx context.Context, audioURL string, opts transcription.Options) (*transcription.Response, error)
	Defaults() transcription.Options
}

type repository interface {
	AssetExists(ctx context.Context, fileID string) (bool, error)
	CreatePendingAsset(ctx context.Context, params assets.CreatePendingAssetParams) (*models.Asset, error)
	RecordTranscriptionResult(ctx context.Context, params assets.TranscriptionResultParams) (*models.Asset, error)
	RecordTranscriptionFailure(ctx context.Context, fileID, errorMessage string) error
	MarkMoved(ctx context.Context, fileID, destinationPath string) error
	ReplaceParagraphs(ctx context.Context, fileID string, paragraphs []models.Paragraph) ([]models.Paragraph, error)
	ReplaceSentences(ctx context.Context, fileID string, paragraphID int64, sentences []models.Sentence) error
	UpsertSentiment(ctx context.Context, record *models.Sentiment) error
	UpsertLanguage(ctx context.Context, record *models.Language) error
	UpsertSummarization(ctx context.Context, record *models.Summarization) error
	UpsertTopicModeling(ctx context.Context, record *models.TopicModeling) error
	UpsertForbiddenPhrases(ctx context.Context, record *models.ForbiddenPhrases, details []models.ForbiddenPhraseDetail) error
	UpsertSpeakerDiarization(ctx context.Context, record *models.SpeakerDiarization, segments []models.SpeakerSegment) error
}

// RetryPolicy bounds the orchestrator-level retries for transient
// transcription and database failures.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = defaultInitialBackoff
	}
	if p.MaximumBackoff <= 0 {
		p.MaximumBackoff = defaultMaximumBackoff
	}
	if p.MaximumBackoff < p.InitialBackoff {
		p.MaximumBackoff = p.InitialBackoff
	}
	return p
}

// Params wires the orchestrator's collaborators.
type Params struct {
	Storage     blobGateway
	Transcriber transcriber
	Repo        repository
	Logger      *logger.Logger
	Metrics     *metrics.PipelineMetrics
	Retry       RetryPolicy
	CreatedBy   string
}

// Orchestrator drives one file at a time through transcription,
// normalization, analyses, persistence, and the final blob relocation.
type Orchestrator struct {
	storage     blobGateway
	transcriber transcriber
	repo        repository
	logg        *logger.Logger
	metrics     *metrics.PipelineMetrics
	retry       RetryPolicy
	detector    *analysis.PhraseDetector
	createdBy   string
}

func New(params Params) (*Orchestrator, error) {
	if params.Storage == nil {
		return nil, fmt.Errorf("blob gateway required")
	}
	if params.Transcriber == nil {
		return nil, fmt.Errorf("transcriber required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	createdBy := params.CreatedBy
	if createdBy == "" {
		createdBy = "pipeline"
	}
	return &Orchestrator{
		storage:     params.Storage,
		transcriber: params.Transcriber,
		repo:        params.Repo,
		logg:        params.Logger,
		metrics:     params.Metrics,
		retry:       params.Retry.withDefaults(),
		detector:    analysis.NewPhraseDetector(nil),
		createdBy:   createdBy,
	}, nil
}

// ProcessBatch runs the requested files sequentially. A failure on one file
// never aborts the rest, except for errors marked fatal for the batch (an
// invalid transcription credential would fail every remaining file with the
// same root cause); those abort the remainder, which is reported as skipped.
func (o *Orchestrator) ProcessBatch(ctx context.Context, filenames []string) (*BatchReport, error) {
	if len(filenames) == 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "no filenames provided")
	}

	report := &BatchReport{Files: make([]FileReport, 0, len(filenames))}
	for i, filename := range filenames {
		if report.Aborted {
			report.Files = append(report.Files, FileReport{
				FileID:   FileIDFor(filename),
				Filename: filename,
				Status:   FileStatusSkipped,
				Error:    report.AbortReason,
			})
			continue
		}

		fileReport := o.processFile(ctx, filename)
		report.Files = append(report.Files, fileReport)

		if fileReport.fatal {
			report.Aborted = true
			report.AbortReason = "batch aborted: " + fileReport.Error
			if o.logg != nil {
				o.logg.Error(ctx, fmt.Sprintf("aborting batch after file %d of %d", i+1, len(filenames)), nil)
			}
		}
	}
	return report, nil
}

func (o *Orchestrator) processFile(ctx context.Context, filename string) FileReport {
	started := time.Now()
	fileID := FileIDFor(filename)
	report := FileReport{FileID: fileID, Filename: filename}

	if o.logg != nil {
		ctx = o.logg.WithFileID(ctx, fileID)
		ctx = o.logg.WithBlobName(ctx, filename)
		o.logg.Info(ctx, "processing recording")
	}

	fail := func(err error, recordOnAsset bool) FileReport {
		report.Status = FileStatusError
		report.Error = err.Error()
		report.fatal = apperrors.IsFatalForBatch(err)
		if recordOnAsset {
			if recordErr := o.repo.RecordTranscriptionFailure(ctx, fileID, report.Error); recordErr != nil && o.logg != nil {
				o.logg.Error(ctx, "recording failure state", recordErr)
			}
		}
		o.observeOutcome(string(report.Status), started)
		return report
	}

	// Size first, then the pending row: a missing blob never creates an
	// asset.
	size, err := o.storage.SourceBlobSize(ctx, filename)
	if err != nil {
		exists, existsErr := o.repo.AssetExists(ctx, fileID)
		return fail(err, existsErr == nil && exists)
	}

	exists, err := o.repo.AssetExists(ctx, fileID)
	if err != nil {
		return fail(err, false)
	}
	if !exists {
		_, err = o.repo.CreatePendingAsset(ctx, assets.CreatePendingAssetParams{
			FileID:        fileID,
			Filename:      filename,
			SourcePath:    o.storage.SourceContainer() + "/" + filename,
			FileSizeBytes: size,
			CreatedBy:     o.createdBy,
		})
		if err != nil {
			return fail(err, false)
		}
	}

	audioURL, err := o.storage.SourceBlobURL(filename)
	if err != nil {
		return fail(err, true)
	}

	resp, err := o.transcribeWithRetry(ctx, audioURL)
	if err != nil {
		return fail(err, true)
	}

	normalized := transcript.Normalize(resp)
	if strings.TrimSpace(normalized.Text) == "" {
		return fail(apperrors.New(apperrors.CodeTranscriptionBadAudio, "transcription produced an empty transcript"), true)
	}

	rawJSON, err := json.Marshal(resp)
	if err != nil {
		return fail(apperrors.Wrap(apperrors.CodeInternal, err, "encoding raw transcription"), true)
	}

	if err := o.persistWithRetry(ctx, fileID, normalized, string(rawJSON), time.Since(started)); err != nil {
		// The move below never runs: a failed commit must leave the
		// source blob in place.
		return fail(err, true)
	}

	o.runAnalyses(ctx, fileID, normalized)

	destination, err := o.storage.MoveToProcessed(ctx, filename)
	if err != nil {
		// The result is durable but the file now may exist in both
		// containers. Logged distinctly so operators retry the move, not
		// the whole file.
		if o.logg != nil {
			o.logg.Error(ctx, "blob move failed after persistence commit", err)
		}
		report.Status = FileStatusErrorPartial
		report.Error = err.Error()
		o.observeOutcome(string(report.Status), started)
		return report
	}

	if err := o.repo.MarkMoved(ctx, fileID, destination); err != nil && o.logg != nil {
		o.logg.Error(ctx, "recording destination path", err)
	}

	if o.logg != nil {
		o.logg.Info(ctx, "recording processed")
	}
	report.Status = FileStatusCompleted
	o.observeOutcome(string(report.Status), started)
	return report
}

// transcribeWithRetry retries transient transcription failures with
// exponential backoff. Bad audio and credential failures surface
// immediately.
func (o *Orchestrator) transcribeWithRetry(ctx context.Context, audioURL string) (*transcription.Response, error) {
	attempts := 0
	backoff := o.retry.InitialBackoff

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := o.transcriber.TranscribeURL(ctx, audioURL, o.transcriber.Defaults())
		if err == nil {
			return resp, nil
		}

		attempts++
		if attempts >= o.retry.MaxAttempts || !apperrors.IsRetryable(err) {
			return nil, err
		}
		if o.metrics != nil {
			o.metrics.IncRetry(retryReason(err))
		}
		if o.logg != nil {
			o.logg.Warn(ctx, fmt.Sprintf("retrying transcription after transient failure (attempt %d)", attempts))
		}

		if err := sleepContext(ctx, backoff); err != nil {
			return nil, err
		}
		backoff = minDuration(backoff*2, o.retry.MaximumBackoff)
	}
}

// persistWithRetry writes the transcript hierarchy and then flips the asset
// to completed, retrying transient database failures as one unit.
func (o *Orchestrator) persistWithRetry(ctx context.Context, fileID string, normalized *transcript.Normalized, rawJSON string, elapsed time.Duration) error {
	attempts := 0
	backoff := o.retry.InitialBackoff

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := o.persistResult(ctx, fileID, normalized, rawJSON, elapsed)
		if err == nil {
			return nil
		}

		attempts++
		if attempts >= o.retry.MaxAttempts || !apperrors.IsRetryable(err) {
			return err
		}
		if o.metrics != nil {
			o.metrics.IncRetry(retryReason(err))
		}
		if o.logg != nil {
			o.logg.Warn(ctx, fmt.Sprintf("retrying persistence after transient failure (attempt %d)", attempts))
		}

		if err := sleepContext(ctx, backoff); err != nil {
			return err
		}
		backoff = minDuration(backoff*2, o.retry.MaximumBackoff)
	}
}

func (o *Orchestrator) persistResult(ctx context.Context, fileID string, normalized *transcript.Normalized, rawJSON string, elapsed time.Duration) error {
	paragraphRows := make([]models.Paragraph, 0, len(normalized.Paragraphs))
	for _, paragraph := range normalized.Paragraphs {
		paragraphRows = append(paragraphRows, models.Paragraph{
			ParagraphIndex: paragraph.Index,
			Text:           paragraph.Text,
			StartTime:      paragraph.StartTime,
			EndTime:        paragraph.EndTime,
			SpeakerLabel:   paragraph.SpeakerLabel,
			WordCount:      paragraph.WordCount,
			CreatedBy:      o.createdBy,
		})
	}

	inserted, err := o.repo.ReplaceParagraphs(ctx, fileID, paragraphRows)
	if err != nil {
		return err
	}

	for i, paragraph := range normalized.Paragraphs {
		sentenceRows := make([]models.Sentence, 0, len(paragraph.Sentences))
		for _, sentence := range paragraph.Sentences {
			sentenceRows = append(sentenceRows, models.Sentence{
				SentenceIndex: sentence.Index,
				Text:          sentence.Text,
				StartTime:     sentence.StartTime,
				EndTime:       sentence.EndTime,
				CreatedBy:     o.createdBy,
			})
		}
		if err := o.repo.ReplaceSentences(ctx, fileID, inserted[i].ID, sentenceRows); err != nil {
			return err
		}
	}

	_, err = o.repo.RecordTranscriptionResult(ctx, assets.TranscriptionResultParams{
		FileID:          fileID,
		TranscriptText:  normalized.Text,
		TranscriptRaw:   rawJSON,
		Language:        normalized.Language,
		DurationSeconds: elapsed.Seconds(),
	})
	return err
}

func (o *Orchestrator) observeOutcome(status string, started time.Time) {
	if o.metrics == nil {
		return
	}
	o.metrics.IncFile(status)
	o.metrics.ObserveFileDuration(status, time.Since(started))
}

// FileIDFor derives the stable file identifier from a blob name: the base
// name without extension, lowercased, with runs of non-alphanumerics
// collapsed to single hyphens. Reprocessing the same blob therefore targets
// the same asset row.
func FileIDFor(filename string) string {
	base := path.Base(filename)
	stem := strings.TrimSuffix(base, path.Ext(base))
	stem = strings.ToLower(stem)

	var b strings.Builder
	lastHyphen := false
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func retryReason(err error) string {
	if typed := apperrors.As(err); typed != nil {
		return strings.ToLower(string(typed.Code()))
	}
	return "unknown"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
