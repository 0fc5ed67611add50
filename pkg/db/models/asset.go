package models

import (
	"time"

	"github.com/marisolvega/callinsights-backend/pkg/enums"
)

// Asset is the top-level record for one submitted audio file and its
// processing outcome. A row is created in pending state at ingestion and
// updated exactly once per processing attempt to completed or error.
type Asset struct {
	ID                 int64              `gorm:"column:id;primaryKey;autoIncrement"`
	FileID             string             `gorm:"column:file_id;not null;unique"`
	Filename           string             `gorm:"column:filename;not null"`
	SourcePath         string             `gorm:"column:source_path;not null"`
	DestinationPath    *string            `gorm:"column:destination_path"`
	FileSizeBytes      int64              `gorm:"column:file_size_bytes;not null;default:0"`
	UploadedAt         time.Time          `gorm:"column:uploaded_at"`
	ProcessedAt        *time.Time         `gorm:"column:processed_at"`
	Status             enums.AssetStatus  `gorm:"column:status;not null;default:pending"`
	TranscriptText     string             `gorm:"column:transcript_text"`
	TranscriptRaw      string             `gorm:"column:transcript_raw"`
	LanguageDetected   string             `gorm:"column:language_detected"`
	ErrorMessage       string             `gorm:"column:error_message"`
	ProcessingDuration float64            `gorm:"column:processing_duration_seconds"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime"`
	CreatedBy          string             `gorm:"column:created_by"`
}

func (Asset) TableName() string { return "assets" }
