package assets

import (
	"context"

	"github.com/marisolvega/callinsights-backend/pkg/db/models"
	apperrors "github.com/marisolvega/callinsights-backend/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Analysis rows are keyed one-per-file. Upserts conflict on file_id and
// overwrite the previous run's record.
var upsertOnFileID = clause.OnConflict{
	Columns:   []clause.Column{{Name: "file_id"}},
	UpdateAll: true,
}

func (r *Repository) UpsertSentiment(ctx context.Context, record *models.Sentiment) error {
	if err := requireFileID(record.FileID); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Clauses(upsertOnFileID).Create(record).Error; err != nil {
		return apperrors.ClassifyDB(err, "upserting sentiment")
	}
	return nil
}

func (r *Repository) UpsertLanguage(ctx context.Context, record *models.Language) error {
	if err := requireFileID(record.FileID); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Clauses(upsertOnFileID).Create(record).Error; err != nil {
		return apperrors.ClassifyDB(err, "upserting language")
	}
	return nil
}

func (r *Repository) UpsertSummarization(ctx context.Context, record *models.Summarization) error {
	if err := requireFileID(record.FileID); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Clauses(upsertOnFileID).Create(record).Error; err != nil {
		return apperrors.ClassifyDB(err, "upserting summarization")
	}
	return nil
}

func (r *Repository) UpsertTopicModeling(ctx context.Context, record *models.TopicModeling) error {
	if err := requireFileID(record.FileID); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Clauses(upsertOnFileID).Create(record).Error; err != nil {
		return apperrors.ClassifyDB(err, "upserting topic modeling")
	}
	return nil
}

// UpsertForbiddenPhrases writes the risk record and swaps its detail rows in
// one transaction. Details for a previous run are deleted before the new set
// is inserted.
func (r *Repository) UpsertForbiddenPhrases(ctx context.Context, record *models.ForbiddenPhrases, details []models.ForbiddenPhraseDetail) error {
	if err := requireFileID(record.FileID); err != nil {
		return err
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(upsertOnFileID).Create(record).Error; err != nil {
			return err
		}

		var parent models.ForbiddenPhrases
		if err := tx.Where("file_id = ?", record.FileID).First(&parent).Error; err != nil {
			return err
		}

		if err := tx.Where("forbidden_phrase_id = ?", parent.ID).Delete(&models.ForbiddenPhraseDetail{}).Error; err != nil {
			return err
		}
		if len(details) == 0 {
			return nil
		}
		for i := range details {
			details[i].ID = 0
			details[i].ForbiddenPhraseID = parent.ID
			details[i].FileID = record.FileID
		}
		return tx.Create(&details).Error
	})
	if err != nil {
		return apperrors.ClassifyDB(err, "upserting forbidden phrases")
	}
	return nil
}

// UpsertSpeakerDiarization writes the diarization record and swaps its
// segment rows in one transaction.
func (r *Repository) UpsertSpeakerDiarization(ctx context.Context, record *models.SpeakerDiarization, segments []models.SpeakerSegment) error {
	if err := requireFileID(record.FileID); err != nil {
		return err
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(upsertOnFileID).Create(record).Error; err != nil {
			return err
		}

		var parent models.SpeakerDiarization
		if err := tx.Where("file_id = ?", record.FileID).First(&parent).Error; err != nil {
			return err
		}

		if err := tx.Where("diarization_id = ?", parent.ID).Delete(&models.SpeakerSegment{}).Error; err != nil {
			return err
		}
		if len(segments) == 0 {
			return nil
		}
		for i := range segments {
			segments[i].ID = 0
			segments[i].DiarizationID = parent.ID
			segments[i].FileID = record.FileID
		}
		return tx.Create(&segments).Error
	})
	if err != nil {
		return apperrors.ClassifyDB(err, "upserting speaker diarization")
	}
	return nil
}

func requireFileID(fileID string) error {
	if fileID == "" {
		return apperrors.New(apperrors.CodeValidation, "file id required")
	}
	return nil
}
