package assets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marisolvega/callinsights-backend/pkg/db/models"
	"github.com/marisolvega/callinsights-backend/pkg/enums"
	apperrors "github.com/marisolvega/callinsights-backend/pkg/errors"
	"gorm.io/gorm"
)

// Repository owns the asset row lifecycle and the normalized transcript
// hierarchy beneath it.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds an assets repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// CreatePendingAssetParams carries the fields known at ingestion time.
type CreatePendingAssetParams struct {
	FileID        string
	Filename      string
	SourcePath    string
	FileSizeBytes int64
	UploadedAt    time.Time
	CreatedBy     string
}

func (p CreatePendingAssetParams) Validate() error {
	if p.FileID == "" {
		return fmt.Errorf("file id required")
	}
	if p.Filename == "" {
		return fmt.Errorf("filename required")
	}
	if p.SourcePath == "" {
		return fmt.Errorf("source path required")
	}
	return nil
}

// CreatePendingAsset inserts the placeholder row a processing attempt is
// recorded against. The blob size is fetched from storage before this call.
func (r *Repository) CreatePendingAsset(ctx context.Context, params CreatePendingAssetParams) (*models.Asset, error) {
	if err := params.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidation, err, "invalid pending asset")
	}

	asset := &models.Asset{
		FileID:        params.FileID,
		Filename:      params.Filename,
		SourcePath:    params.SourcePath,
		FileSizeBytes: params.FileSizeBytes,
		UploadedAt:    params.UploadedAt,
		Status:        enums.AssetStatusPending,
		CreatedBy:     params.CreatedBy,
	}
	if asset.UploadedAt.IsZero() {
		asset.UploadedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(asset).Error; err != nil {
		return nil, apperrors.ClassifyDB(err, "creating pending asset")
	}
	return asset, nil
}

// AssetExists reports whether a row for the file id already exists.
func (r *Repository) AssetExists(ctx context.Context, fileID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Asset{}).
		Where("file_id = ?", fileID).
		Count(&count).Error
	if err != nil {
		return false, apperrors.ClassifyDB(err, "checking asset existence")
	}
	return count > 0, nil
}

// FindByFileID loads one asset row.
func (r *Repository) FindByFileID(ctx context.Context, fileID string) (*models.Asset, error) {
	var asset models.Asset
	err := r.db.WithContext(ctx).Where("file_id = ?", fileID).First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("asset %s not found", fileID))
		}
		return nil, apperrors.ClassifyDB(err, "loading asset")
	}
	return &asset, nil
}

// TranscriptionResultParams carries everything recorded by a successful
// transcription.
type TranscriptionResultParams struct {
	FileID          string
	TranscriptText  string
	TranscriptRaw   string
	Language        string
	DurationSeconds float64
}

// RecordTranscriptionResult marks the asset completed in a single update
// statement, so the status flip and the transcript land atomically.
func (r *Repository) RecordTranscriptionResult(ctx context.Context, params TranscriptionResultParams) (*models.Asset, error) {
	if params.FileID == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "file id required")
	}

	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.Asset{}).
		Where("file_id = ?", params.FileID).
		Updates(map[string]any{
			"status":                      enums.AssetStatusCompleted,
			"transcript_text":             params.TranscriptText,
			"transcript_raw":              params.TranscriptRaw,
			"language_detected":           params.Language,
			"processing_duration_seconds": params.DurationSeconds,
			"processed_at":                now,
			"error_message":               "",
		})
	if result.Error != nil {
		return nil, apperrors.ClassifyDB(result.Error, "recording transcription result")
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("asset %s not found", params.FileID))
	}
	return r.FindByFileID(ctx, params.FileID)
}

// RecordTranscriptionFailure marks the asset errored. The transcript columns
// are left untouched so a previously recorded result survives a failed
// reprocessing attempt.
func (r *Repository) RecordTranscriptionFailure(ctx context.Context, fileID, errorMessage string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Asset{}).
		Where("file_id = ?", fileID).
		Updates(map[string]any{
			"status":        enums.AssetStatusError,
			"error_message": errorMessage,
		})
	if result.Error != nil {
		return apperrors.ClassifyDB(result.Error, "recording transcription failure")
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("asset %s not found", fileID))
	}
	return nil
}

// MarkMoved records the destination path after the blob relocation.
func (r *Repository) MarkMoved(ctx context.Context, fileID, destinationPath string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Asset{}).
		Where("file_id = ?", fileID).
		Update("destination_path", destinationPath)
	if result.Error != nil {
		return apperrors.ClassifyDB(result.Error, "recording destination path")
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("asset %s not found", fileID))
	}
	return nil
}

// ReplaceParagraphs swaps the full paragraph set for a file inside one
// transaction: existing sentences and paragraphs scoped to the file are
// deleted, then the new set is inserted. Reprocessing therefore replaces
// rather than accumulates. The returned slice carries the assigned IDs.
func (r *Repository) ReplaceParagraphs(ctx context.Context, fileID string, paragraphs []models.Paragraph) ([]models.Paragraph, error) {
	if fileID == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "file id required")
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_id = ?", fileID).Delete(&models.Sentence{}).Error; err != nil {
			return err
		}
		if err := tx.Where("file_id = ?", fileID).Delete(&models.Paragraph{}).Error; err != nil {
			return err
		}
		if len(paragraphs) == 0 {
			return nil
		}
		for i := range paragraphs {
			paragraphs[i].ID = 0
			paragraphs[i].FileID = fileID
		}
		return tx.Create(&paragraphs).Error
	})
	if err != nil {
		return nil, apperrors.ClassifyDB(err, "replacing paragraphs")
	}
	return paragraphs, nil
}

// ReplaceSentences swaps the sentence set beneath one paragraph inside one
// transaction.
func (r *Repository) ReplaceSentences(ctx context.Context, fileID string, paragraphID int64, sentences []models.Sentence) error {
	if fileID == "" || paragraphID == 0 {
		return apperrors.New(apperrors.CodeValidation, "file id and paragraph id required")
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("paragraph_id = ?", paragraphID).Delete(&models.Sentence{}).Error; err != nil {
			return err
		}
		if len(sentences) == 0 {
			return nil
		}
		for i := range sentences {
			sentences[i].ID = 0
			sentences[i].FileID = fileID
			sentences[i].ParagraphID = paragraphID
		}
		return tx.Create(&sentences).Error
	})
	if err != nil {
		return apperrors.ClassifyDB(err, "replacing sentences")
	}
	return nil
}
