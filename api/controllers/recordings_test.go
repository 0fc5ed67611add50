package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/marisolvega/callinsights-backend/internal/assets"
	"github.com/marisolvega/callinsights-backend/internal/pipeline"
	"github.com/marisolvega/callinsights-backend/pkg/db/models"
	"github.com/marisolvega/callinsights-backend/pkg/enums"
	"github.com/marisolvega/callinsights-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "controllers-test", Output: io.Discard})
}

type stubProcessor struct {
	gotFilenames []string
	report       *pipeline.BatchReport
	err          error
}

func (s *stubProcessor) ProcessBatch(_ context.Context, filenames []string) (*pipeline.BatchReport, error) {
	s.gotFilenames = filenames
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

type stubReader struct {
	results    *assets.Results
	err        error
	listed     []models.Asset
	counts     map[enums.AssetStatus]int64
	sentiments map[enums.SentimentLabel]int64
}

func (s *stubReader) GetResults(context.Context, string) (*assets.Results, error) {
	return s.results, s.err
}

func (s *stubReader) ListAssets(context.Context, enums.AssetStatus, int, int) ([]models.Asset, error) {
	return s.listed, s.err
}

func (s *stubReader) StatusCounts(context.Context) (map[enums.AssetStatus]int64, error) {
	return s.counts, s.err
}

func (s *stubReader) SentimentCounts(context.Context) (map[enums.SentimentLabel]int64, error) {
	return s.sentiments, s.err
}

func TestProcessRecordings(t *testing.T) {
	proc := &stubProcessor{report: &pipeline.BatchReport{Files: []pipeline.FileReport{
		{FileID: "a", Filename: "a.mp3", Status: pipeline.FileStatusCompleted},
	}}}
	handler := ProcessRecordings(proc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recordings/process",
		strings.NewReader(`{"filenames":["a.mp3"]}`))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(proc.gotFilenames) != 1 || proc.gotFilenames[0] != "a.mp3" {
		t.Fatalf("unexpected filenames: %v", proc.gotFilenames)
	}

	var envelope struct {
		Data pipeline.BatchReport `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Files) != 1 || envelope.Data.Files[0].Status != pipeline.FileStatusCompleted {
		t.Fatalf("unexpected report: %+v", envelope.Data)
	}
}

func TestProcessRecordingsRejectsEmptyBody(t *testing.T) {
	handler := ProcessRecordings(&stubProcessor{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recordings/process",
		strings.NewReader(`{"filenames":[]}`))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected validation error code, got %s", envelope.Error.Code)
	}
}

func TestGetRecordingResultsMapsHierarchy(t *testing.T) {
	reader := &stubReader{results: &assets.Results{
		Asset: &models.Asset{
			FileID:         "call-1",
			Filename:       "call-1.mp3",
			Status:         enums.AssetStatusCompleted,
			TranscriptText: "Hello there. General inquiry.",
		},
		Paragraphs: []models.Paragraph{
			{ID: 10, ParagraphIndex: 0, Text: "Hello there.", SpeakerLabel: "speaker_0", WordCount: 2},
		},
		Sentences: []models.Sentence{
			{ParagraphID: 10, SentenceIndex: "0_0", Text: "Hello there."},
		},
		Sentiment: &models.Sentiment{
			Status:           enums.AnalysisStatusCompleted,
			OverallSentiment: enums.SentimentNeutral,
			ConfidenceScore:  100,
		},
		Language: &models.Language{
			Status:       enums.AnalysisStatusError,
			ErrorMessage: "transcript is empty",
		},
	}}

	router := chi.NewRouter()
	router.Get("/recordings/{fileId}/results", GetRecordingResults(reader, testLogger()))

	req := httptest.NewRequest(http.MethodGet, "/recordings/call-1/results", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data resultsView `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	view := envelope.Data
	if view.Asset.FileID != "call-1" {
		t.Fatalf("unexpected asset: %+v", view.Asset)
	}
	if len(view.Paragraphs) != 1 || len(view.Paragraphs[0].Sentences) != 1 {
		t.Fatalf("hierarchy not mapped: %+v", view.Paragraphs)
	}
	if view.Paragraphs[0].Sentences[0].SentenceIndex != "0_0" {
		t.Fatalf("unexpected sentence index: %s", view.Paragraphs[0].Sentences[0].SentenceIndex)
	}

	sentiment := view.Analyses["sentiment"]
	if sentiment == nil || sentiment.Status != "completed" || sentiment.Data == nil {
		t.Fatalf("unexpected sentiment view: %+v", sentiment)
	}
	language := view.Analyses["language"]
	if language == nil || language.Status != "error" || language.Data != nil {
		t.Fatalf("failed module must carry no data: %+v", language)
	}
	if _, ok := view.Analyses["summarization"]; ok {
		t.Fatal("absent module must not appear in the response")
	}
}

func TestListRecordingsRejectsBadLimit(t *testing.T) {
	handler := ListRecordings(&stubReader{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/recordings?limit=abc", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRecordingStats(t *testing.T) {
	reader := &stubReader{
		counts: map[enums.AssetStatus]int64{
			enums.AssetStatusCompleted: 7,
			enums.AssetStatusError:     2,
		},
		sentiments: map[enums.SentimentLabel]int64{
			enums.SentimentPositive: 4,
			enums.SentimentNeutral:  3,
		},
	}
	handler := RecordingStats(reader, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/recordings/stats", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var envelope struct {
		Data struct {
			Total       int64            `json:"total"`
			ByStatus    map[string]int64 `json:"byStatus"`
			BySentiment map[string]int64 `json:"bySentiment"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Total != 9 {
		t.Fatalf("expected total 9, got %d", envelope.Data.Total)
	}
	if envelope.Data.ByStatus["completed"] != 7 {
		t.Fatalf("unexpected byStatus: %v", envelope.Data.ByStatus)
	}
	if envelope.Data.BySentiment["positive"] != 4 {
		t.Fatalf("unexpected bySentiment: %v", envelope.Data.BySentiment)
	}
}
