package models

import (
	"time"

	"github.com/marisolvega/callinsights-backend/pkg/enums"
)

// SpeakerDiarization holds per-asset speaker attribution. SpeakerMetrics is
// the serialized talk-time/word-count breakdown per speaker.
type SpeakerDiarization struct {
	ID             int64                `gorm:"column:id;primaryKey;autoIncrement"`
	FileID         string               `gorm:"column:file_id;not null;unique"`
	SpeakerCount   int                  `gorm:"column:speaker_count"`
	SpeakerMetrics string               `gorm:"column:speaker_metrics"`
	Status         enums.AnalysisStatus `gorm:"column:status;not null"`
	ErrorMessage   string               `gorm:"column:error_message"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	CreatedBy      string               `gorm:"column:created_by"`
}

func (SpeakerDiarization) TableName() string { return "speaker_diarization" }

// SpeakerSegment is one contiguous stretch of speech by a single speaker.
type SpeakerSegment struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	DiarizationID int64     `gorm:"column:diarization_id;not null;index:idx_speaker_segments_parent"`
	FileID        string    `gorm:"column:file_id;not null"`
	SpeakerID     int       `gorm:"column:speaker_id;not null"`
	Text          string    `gorm:"column:text"`
	StartTime     float64   `gorm:"column:start_time"`
	EndTime       float64   `gorm:"column:end_time"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	CreatedBy     string    `gorm:"column:created_by"`
}

func (SpeakerSegment) TableName() string { return "speaker_segments" }
