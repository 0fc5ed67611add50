package models

import (
	"time"

	"github.com/marisolvega/callinsights-backend/pkg/enums"
)

// Sentiment holds one sentiment record per asset, overwritten on
// reprocessing. SentenceSentiments is the serialized per-sentence breakdown.
type Sentiment struct {
	ID                 int64                `gorm:"column:id;primaryKey;autoIncrement"`
	FileID             string               `gorm:"column:file_id;not null;unique"`
	OverallSentiment   enums.SentimentLabel `gorm:"column:overall_sentiment"`
	ConfidenceScore    float64              `gorm:"column:confidence_score"`
	SentenceSentiments string               `gorm:"column:sentence_sentiments"`
	Status             enums.AnalysisStatus `gorm:"column:status;not null"`
	ErrorMessage       string               `gorm:"column:error_message"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime"`
	CreatedBy          string               `gorm:"column:created_by"`
}

func (Sentiment) TableName() string { return "sentiment" }

// Language holds the detected language for an asset.
type Language struct {
	ID           int64                `gorm:"column:id;primaryKey;autoIncrement"`
	FileID       string               `gorm:"column:file_id;not null;unique"`
	LanguageCode string               `gorm:"column:language_code"`
	LanguageName string               `gorm:"column:language_name"`
	Confidence   float64              `gorm:"column:confidence"`
	Status       enums.AnalysisStatus `gorm:"column:status;not null"`
	ErrorMessage string               `gorm:"column:error_message"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
	CreatedBy    string               `gorm:"column:created_by"`
}

func (Language) TableName() string { return "language" }

// Summarization holds the call summary for an asset. Method records whether
// the text came from the transcription service or the extractive fallback.
type Summarization struct {
	ID           int64                `gorm:"column:id;primaryKey;autoIncrement"`
	FileID       string               `gorm:"column:file_id;not null;unique"`
	SummaryText  string               `gorm:"column:summary_text"`
	Method       string               `gorm:"column:method"`
	Status       enums.AnalysisStatus `gorm:"column:status;not null"`
	ErrorMessage string               `gorm:"column:error_message"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
	CreatedBy    string               `gorm:"column:created_by"`
}

func (Summarization) TableName() string { return "summarization" }

// TopicModeling holds the detected topics for an asset as a serialized list.
type TopicModeling struct {
	ID             int64                `gorm:"column:id;primaryKey;autoIncrement"`
	FileID         string               `gorm:"column:file_id;not null;unique"`
	TopicsDetected string               `gorm:"column:topics_detected"`
	TopicCount     int                  `gorm:"column:topic_count"`
	Status         enums.AnalysisStatus `gorm:"column:status;not null"`
	ErrorMessage   string               `gorm:"column:error_message"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	CreatedBy      string               `gorm:"column:created_by"`
}

func (TopicModeling) TableName() string { return "topic_modeling" }
