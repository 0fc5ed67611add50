package pipeline

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/multierr"

	"github.com/marisolvega/callinsights-backend/internal/analysis"
	"github.com/marisolvega/callinsights-backend/internal/transcript"
	"github.com/marisolvega/callinsights-backend/pkg/db/models"
	"github.com/marisolvega/callinsights-backend/pkg/enums"
)

// runAnalyses fans the six modules out concurrently. Each module persists
// its own row, completed or error, so one failing module never blocks the
// others and never changes the asset's completion.
func (o *Orchestrator) runAnalyses(ctx context.Context, fileID string, normalized *transcript.Normalized) {
	modules := []struct {
		name string
		run  func(context.Context, string, *transcript.Normalized) error
	}{
		{analysis.ModuleSentiment, o.persistSentiment},
		{analysis.ModuleLanguage, o.persistLanguage},
		{analysis.ModuleSummarization, o.persistSummarization},
		{analysis.ModuleTopics, o.persistTopics},
		{analysis.ModuleForbiddenPhrases, o.persistForbiddenPhrases},
		{analysis.ModuleDiarization, o.persistDiarization},
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	for _, module := range modules {
		wg.Add(1)
		go func(name string, run func(context.Context, string, *transcript.Normalized) error) {
			defer wg.Done()
			err := run(ctx, fileID, normalized)
			status := string(enums.AnalysisStatusCompleted)
			if err != nil {
				status = string(enums.AnalysisStatusError)
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			if o.metrics != nil {
				o.metrics.IncAnalysis(name, status)
			}
		}(module.name, module.run)
	}
	wg.Wait()

	if errs != nil && o.logg != nil {
		o.logg.Warn(ctx, "one or more analysis modules failed: "+errs.Error())
	}
}

func (o *Orchestrator) persistSentiment(ctx context.Context, fileID string, normalized *transcript.Normalized) error {
	record := &models.Sentiment{
		FileID:    fileID,
		Status:    enums.AnalysisStatusCompleted,
		CreatedBy: o.createdBy,
	}
	result, err := analysis.AnalyzeSentiment(normalized, fileID)
	if err == nil {
		var breakdown []byte
		breakdown, err = json.Marshal(result.Sentences)
		if err == nil {
			record.OverallSentiment = result.Overall
			record.ConfidenceScore = result.Confidence
			record.SentenceSentiments = string(breakdown)
		}
	}
	if err != nil {
		record.Status = enums.AnalysisStatusError
		record.ErrorMessage = err.Error()
	}
	if upsertErr := o.repo.UpsertSentiment(ctx, record); upsertErr != nil {
		return upsertErr
	}
	return err
}

func (o *Orchestrator) persistLanguage(ctx context.Context, fileID string, normalized *transcript.Normalized) error {
	record := &models.Language{
		FileID:    fileID,
		Status:    enums.AnalysisStatusCompleted,
		CreatedBy: o.createdBy,
	}
	result, err := analysis.DetectLanguage(normalized, fileID)
	if err == nil {
		record.LanguageCode = result.Code
		record.LanguageName = result.Name
		record.Confidence = result.Confidence
	} else {
		record.Status = enums.AnalysisStatusError
		record.ErrorMessage = err.Error()
	}
	if upsertErr := o.repo.UpsertLanguage(ctx, record); upsertErr != nil {
		return upsertErr
	}
	return err
}

func (o *Orchestrator) persistSummarization(ctx context.Context, fileID string, normalized *transcript.Normalized) error {
	record := &models.Summarization{
		FileID:    fileID,
		Status:    enums.AnalysisStatusCompleted,
		CreatedBy: o.createdBy,
	}
	result, err := analysis.Summarize(normalized, fileID)
	if err == nil {
		record.SummaryText = result.Text
		record.Method = result.Method
	} else {
		record.Status = enums.AnalysisStatusError
		record.ErrorMessage = err.Error()
	}
	if upsertErr := o.repo.UpsertSummarization(ctx, record); upsertErr != nil {
		return upsertErr
	}
	return err
}

func (o *Orchestrator) persistTopics(ctx context.Context, fileID string, normalized *transcript.Normalized) error {
	record := &models.TopicModeling{
		FileID:    fileID,
		Status:    enums.AnalysisStatusCompleted,
		CreatedBy: o.createdBy,
	}
	result, err := analysis.DetectTopics(normalized, fileID)
	if err == nil {
		var topics []byte
		topics, err = json.Marshal(result.Topics)
		if err == nil {
			record.TopicsDetected = string(topics)
			record.TopicCount = len(result.Topics)
		}
	}
	if err != nil {
		record.Status = enums.AnalysisStatusError
		record.ErrorMessage = err.Error()
	}
	if upsertErr := o.repo.UpsertTopicModeling(ctx, record); upsertErr != nil {
		return upsertErr
	}
	return err
}

func (o *Orchestrator) persistForbiddenPhrases(ctx context.Context, fileID string, normalized *transcript.Normalized) error {
	record := &models.ForbiddenPhrases{
		FileID:    fileID,
		Status:    enums.AnalysisStatusCompleted,
		CreatedBy: o.createdBy,
	}
	var details []models.ForbiddenPhraseDetail
	result, err := o.detector.Detect(normalized, fileID)
	if err == nil {
		var categories []byte
		categories, err = json.Marshal(result.CategoryScores)
		if err == nil {
			record.RiskScore = result.RiskScore
			record.RiskLevel = result.RiskLevel
			record.CategoriesDetected = string(categories)
			for _, detection := range result.Detections {
				details = append(details, models.ForbiddenPhraseDetail{
					FileID:         fileID,
					Category:       detection.Category,
					Phrase:         detection.Phrase,
					StartTime:      detection.StartTime,
					EndTime:        detection.EndTime,
					Confidence:     detection.Confidence,
					ContextSnippet: detection.ContextSnippet,
					CreatedBy:      o.createdBy,
				})
			}
		}
	}
	if err != nil {
		record.Status = enums.AnalysisStatusError
		record.ErrorMessage = err.Error()
		details = nil
	}
	if upsertErr := o.repo.UpsertForbiddenPhrases(ctx, record, details); upsertErr != nil {
		return upsertErr
	}
	return err
}

func (o *Orchestrator) persistDiarization(ctx context.Context, fileID string, normalized *transcript.Normalized) error {
	record := &models.SpeakerDiarization{
		FileID:    fileID,
		Status:    enums.AnalysisStatusCompleted,
		CreatedBy: o.createdBy,
	}
	var segments []models.SpeakerSegment
	result, err := analysis.AnalyzeSpeakers(normalized, fileID)
	if err == nil {
		var metrics []byte
		metrics, err = json.Marshal(result.Metrics)
		if err == nil {
			record.SpeakerCount = result.SpeakerCount
			record.SpeakerMetrics = string(metrics)
			for _, segment := range result.Segments {
				segments = append(segments, models.SpeakerSegment{
					FileID:    fileID,
					SpeakerID: speakerNumber(segment.SpeakerLabel),
					Text:      segment.Text,
					StartTime: segment.StartTime,
					EndTime:   segment.EndTime,
					CreatedBy: o.createdBy,
				})
			}
		}
	}
	if err != nil {
		record.Status = enums.AnalysisStatusError
		record.ErrorMessage = err.Error()
		segments = nil
	}
	if upsertErr := o.repo.UpsertSpeakerDiarization(ctx, record, segments); upsertErr != nil {
		return upsertErr
	}
	return err
}

// speakerNumber extracts the numeric id from a "speaker_N" label. Labels
// without a numeric suffix map to -1.
func speakerNumber(label string) int {
	idx := strings.LastIndex(label, "_")
	if idx < 0 || idx == len(label)-1 {
		return -1
	}
	n, err := strconv.Atoi(label[idx+1:])
	if err != nil {
		return -1
	}
	return n
}
