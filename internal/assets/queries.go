package assets

import (
	"context"
	"errors"

	"github.com/marisolvega/callinsights-backend/pkg/db/models"
	"github.com/marisolvega/callinsights-backend/pkg/enums"
	apperrors "github.com/marisolvega/callinsights-backend/pkg/errors"
	"gorm.io/gorm"
)

// Results aggregates everything recorded for one asset: the transcript
// hierarchy and each analysis module's row, absent modules left nil.
type Results struct {
	Asset              *models.Asset
	Paragraphs         []models.Paragraph
	Sentences          []models.Sentence
	Sentiment          *models.Sentiment
	Language           *models.Language
	Summarization      *models.Summarization
	TopicModeling      *models.TopicModeling
	ForbiddenPhrases   *models.ForbiddenPhrases
	ForbiddenDetails   []models.ForbiddenPhraseDetail
	SpeakerDiarization *models.SpeakerDiarization
	SpeakerSegments    []models.SpeakerSegment
}

// GetResults loads the asset and every recorded child row for the file id.
func (r *Repository) GetResults(ctx context.Context, fileID string) (*Results, error) {
	asset, err := r.FindByFileID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	out := &Results{Asset: asset}

	db := r.db.WithContext(ctx)
	if err := db.Where("file_id = ?", fileID).Order("paragraph_index ASC").Find(&out.Paragraphs).Error; err != nil {
		return nil, apperrors.ClassifyDB(err, "loading paragraphs")
	}
	if err := db.Where("file_id = ?", fileID).Order("paragraph_id ASC, id ASC").Find(&out.Sentences).Error; err != nil {
		return nil, apperrors.ClassifyDB(err, "loading sentences")
	}

	out.Sentiment, err = findByFileID[models.Sentiment](db, fileID)
	if err != nil {
		return nil, err
	}
	out.Language, err = findByFileID[models.Language](db, fileID)
	if err != nil {
		return nil, err
	}
	out.Summarization, err = findByFileID[models.Summarization](db, fileID)
	if err != nil {
		return nil, err
	}
	out.TopicModeling, err = findByFileID[models.TopicModeling](db, fileID)
	if err != nil {
		return nil, err
	}
	out.ForbiddenPhrases, err = findByFileID[models.ForbiddenPhrases](db, fileID)
	if err != nil {
		return nil, err
	}
	out.SpeakerDiarization, err = findByFileID[models.SpeakerDiarization](db, fileID)
	if err != nil {
		return nil, err
	}

	if out.ForbiddenPhrases != nil {
		if err := db.Where("forbidden_phrase_id = ?", out.ForbiddenPhrases.ID).
			Order("start_time ASC").Find(&out.ForbiddenDetails).Error; err != nil {
			return nil, apperrors.ClassifyDB(err, "loading forbidden phrase details")
		}
	}
	if out.SpeakerDiarization != nil {
		if err := db.Where("diarization_id = ?", out.SpeakerDiarization.ID).
			Order("start_time ASC").Find(&out.SpeakerSegments).Error; err != nil {
			return nil, apperrors.ClassifyDB(err, "loading speaker segments")
		}
	}

	return out, nil
}

// ListAssets returns assets newest first, optionally filtered by status.
func (r *Repository) ListAssets(ctx context.Context, status enums.AssetStatus, limit, offset int) ([]models.Asset, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := r.db.WithContext(ctx).Model(&models.Asset{}).Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var out []models.Asset
	if err := query.Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, apperrors.ClassifyDB(err, "listing assets")
	}
	return out, nil
}

// StatusCounts reports how many assets sit in each lifecycle state.
func (r *Repository) StatusCounts(ctx context.Context) (map[enums.AssetStatus]int64, error) {
	type row struct {
		Status enums.AssetStatus
		Total  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Asset{}).
		Select("status, count(*) as total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.ClassifyDB(err, "counting assets by status")
	}

	counts := make(map[enums.AssetStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}

// SentimentCounts reports the distribution of overall sentiment across
// completed analyses.
func (r *Repository) SentimentCounts(ctx context.Context) (map[enums.SentimentLabel]int64, error) {
	type row struct {
		OverallSentiment enums.SentimentLabel
		Total            int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Sentiment{}).
		Select("overall_sentiment, count(*) as total").
		Where("status = ?", enums.AnalysisStatusCompleted).
		Group("overall_sentiment").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.ClassifyDB(err, "counting sentiment labels")
	}

	counts := make(map[enums.SentimentLabel]int64, len(rows))
	for _, r := range rows {
		counts[r.OverallSentiment] = r.Total
	}
	return counts, nil
}

func findByFileID[T any](db *gorm.DB, fileID string) (*T, error) {
	var record T
	err := db.Where("file_id = ?", fileID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.ClassifyDB(err, "loading analysis record")
	}
	return &record, nil
}
