package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marisolvega/callinsights-backend/api/responses"
	"github.com/marisolvega/callinsights-backend/api/validators"
	"github.com/marisolvega/callinsights-backend/internal/assets"
	"github.com/marisolvega/callinsights-backend/internal/pipeline"
	"github.com/marisolvega/callinsights-backend/pkg/db/models"
	"github.com/marisolvega/callinsights-backend/pkg/enums"
	pkgerrors "github.com/marisolvega/callinsights-backend/pkg/errors"
	"github.com/marisolvega/callinsights-backend/pkg/logger"
)

type batchProcessor interface {
	ProcessBatch(ctx context.Context, filenames []string) (*pipeline.BatchReport, error)
}

type assetReader interface {
	GetResults(ctx context.Context, fileID string) (*assets.Results, error)
	ListAssets(ctx context.Context, status enums.AssetStatus, limit, offset int) ([]models.Asset, error)
	StatusCounts(ctx context.Context) (map[enums.AssetStatus]int64, error)
	SentimentCounts(ctx context.Context) (map[enums.SentimentLabel]int64, error)
}

type processRequest struct {
	Filenames []string `json:"filenames" validate:"required,min=1,max=50,dive,required"`
}

// ProcessRecordings runs a batch synchronously and returns the per-file
// report. Long batches belong to the scan worker; this endpoint exists for
// reprocessing and operator-driven runs.
func ProcessRecordings(proc batchProcessor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req processRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		report, err := proc.ProcessBatch(ctx, req.Filenames)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

type assetSummary struct {
	FileID           string     `json:"fileId"`
	Filename         string     `json:"filename"`
	Status           string     `json:"status"`
	LanguageDetected string     `json:"languageDetected,omitempty"`
	FileSizeBytes    int64      `json:"fileSizeBytes"`
	ProcessedAt      *time.Time `json:"processedAt,omitempty"`
	ErrorMessage     string     `json:"errorMessage,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func toAssetSummary(asset models.Asset) assetSummary {
	return assetSummary{
		FileID:           asset.FileID,
		Filename:         asset.Filename,
		Status:           string(asset.Status),
		LanguageDetected: asset.LanguageDetected,
		FileSizeBytes:    asset.FileSizeBytes,
		ProcessedAt:      asset.ProcessedAt,
		ErrorMessage:     asset.ErrorMessage,
		CreatedAt:        asset.CreatedAt,
	}
}

// ListRecordings returns asset summaries, newest first, optionally filtered
// by status.
func ListRecordings(reader assetReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 100000)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status := enums.AssetStatus(r.URL.Query().Get("status"))
		records, err := reader.ListAssets(ctx, status, limit, offset)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		summaries := make([]assetSummary, 0, len(records))
		for _, record := range records {
			summaries = append(summaries, toAssetSummary(record))
		}
		responses.WriteSuccess(w, map[string]any{"recordings": summaries})
	}
}

type paragraphView struct {
	ParagraphIndex int            `json:"paragraphIndex"`
	Text           string         `json:"text"`
	StartTime      float64        `json:"startTime"`
	EndTime        float64        `json:"endTime"`
	SpeakerLabel   string         `json:"speakerLabel,omitempty"`
	WordCount      int            `json:"wordCount"`
	Sentences      []sentenceView `json:"sentences"`
}

type sentenceView struct {
	SentenceIndex string  `json:"sentenceIndex"`
	Text          string  `json:"text"`
	StartTime     float64 `json:"startTime"`
	EndTime       float64 `json:"endTime"`
}

type analysisView struct {
	Status       string         `json:"status"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

type resultsView struct {
	Asset      assetSummary             `json:"asset"`
	Transcript string                   `json:"transcript"`
	Paragraphs []paragraphView          `json:"paragraphs"`
	Analyses   map[string]*analysisView `json:"analyses"`
}

// GetRecordingResults returns the transcript hierarchy and every analysis
// row recorded for one file.
func GetRecordingResults(reader assetReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		fileID := chi.URLParam(r, "fileId")
		if fileID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "file id required"))
			return
		}

		results, err := reader.GetResults(ctx, fileID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toResultsView(results))
	}
}

func toResultsView(results *assets.Results) resultsView {
	view := resultsView{
		Asset:      toAssetSummary(*results.Asset),
		Transcript: results.Asset.TranscriptText,
		Paragraphs: make([]paragraphView, 0, len(results.Paragraphs)),
		Analyses:   make(map[string]*analysisView, 6),
	}

	sentencesByParagraph := make(map[int64][]sentenceView, len(results.Paragraphs))
	for _, sentence := range results.Sentences {
		sentencesByParagraph[sentence.ParagraphID] = append(sentencesByParagraph[sentence.ParagraphID], sentenceView{
			SentenceIndex: sentence.SentenceIndex,
			Text:          sentence.Text,
			StartTime:     sentence.StartTime,
			EndTime:       sentence.EndTime,
		})
	}
	for _, paragraph := range results.Paragraphs {
		sentences := sentencesByParagraph[paragraph.ID]
		if sentences == nil {
			sentences = []sentenceView{}
		}
		view.Paragraphs = append(view.Paragraphs, paragraphView{
			ParagraphIndex: paragraph.ParagraphIndex,
			Text:           paragraph.Text,
			StartTime:      paragraph.StartTime,
			EndTime:        paragraph.EndTime,
			SpeakerLabel:   paragraph.SpeakerLabel,
			WordCount:      paragraph.WordCount,
			Sentences:      sentences,
		})
	}

	if s := results.Sentiment; s != nil {
		view.Analyses["sentiment"] = analysisFor(s.Status, s.ErrorMessage, map[string]any{
			"overallSentiment": s.OverallSentiment,
			"confidenceScore":  s.ConfidenceScore,
			"sentences":        rawJSON(s.SentenceSentiments),
		})
	}
	if l := results.Language; l != nil {
		view.Analyses["language"] = analysisFor(l.Status, l.ErrorMessage, map[string]any{
			"languageCode": l.LanguageCode,
			"languageName": l.LanguageName,
			"confidence":   l.Confidence,
		})
	}
	if s := results.Summarization; s != nil {
		view.Analyses["summarization"] = analysisFor(s.Status, s.ErrorMessage, map[string]any{
			"summaryText": s.SummaryText,
			"method":      s.Method,
		})
	}
	if t := results.TopicModeling; t != nil {
		view.Analyses["topic_modeling"] = analysisFor(t.Status, t.ErrorMessage, map[string]any{
			"topics":     rawJSON(t.TopicsDetected),
			"topicCount": t.TopicCount,
		})
	}
	if f := results.ForbiddenPhrases; f != nil {
		detections := make([]map[string]any, 0, len(results.ForbiddenDetails))
		for _, detail := range results.ForbiddenDetails {
			detections = append(detections, map[string]any{
				"category":       detail.Category,
				"phrase":         detail.Phrase,
				"startTime":      detail.StartTime,
				"endTime":        detail.EndTime,
				"confidence":     detail.Confidence,
				"contextSnippet": detail.ContextSnippet,
			})
		}
		view.Analyses["forbidden_phrases"] = analysisFor(f.Status, f.ErrorMessage, map[string]any{
			"riskScore":  f.RiskScore,
			"riskLevel":  f.RiskLevel,
			"categories": rawJSON(f.CategoriesDetected),
			"detections": detections,
		})
	}
	if d := results.SpeakerDiarization; d != nil {
		segments := make([]map[string]any, 0, len(results.SpeakerSegments))
		for _, segment := range results.SpeakerSegments {
			segments = append(segments, map[string]any{
				"speakerId": segment.SpeakerID,
				"text":      segment.Text,
				"startTime": segment.StartTime,
				"endTime":   segment.EndTime,
			})
		}
		view.Analyses["speaker_diarization"] = analysisFor(d.Status, d.ErrorMessage, map[string]any{
			"speakerCount":   d.SpeakerCount,
			"speakerMetrics": rawJSON(d.SpeakerMetrics),
			"segments":       segments,
		})
	}
	return view
}

func analysisFor(status enums.AnalysisStatus, errorMessage string, data map[string]any) *analysisView {
	view := &analysisView{Status: string(status), ErrorMessage: errorMessage}
	if status == enums.AnalysisStatusCompleted {
		view.Data = data
	}
	return view
}

// rawJSON passes a serialized column through without double encoding.
func rawJSON(value string) any {
	if value == "" {
		return nil
	}
	return json.RawMessage(value)
}

// RecordingStats returns asset counts grouped by status.
func RecordingStats(reader assetReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		counts, err := reader.StatusCounts(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		sentiments, err := reader.SentimentCounts(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var total int64
		byStatus := make(map[string]int64, len(counts))
		for status, count := range counts {
			byStatus[string(status)] = count
			total += count
		}
		bySentiment := make(map[string]int64, len(sentiments))
		for label, count := range sentiments {
			bySentiment[string(label)] = count
		}
		responses.WriteSuccess(w, map[string]any{
			"total":       total,
			"byStatus":    byStatus,
			"bySentiment": bySentiment,
		})
	}
}
