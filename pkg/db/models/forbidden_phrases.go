package models

import (
	"time"

	"github.com/marisolvega/callinsights-backend/pkg/enums"
)

// ForbiddenPhrases holds the risk assessment for an asset.
// CategoriesDetected is a serialized category -> occurrence count map.
type ForbiddenPhrases struct {
	ID                 int64                `gorm:"column:id;primaryKey;autoIncrement"`
	FileID             string               `gorm:"column:file_id;not null;unique"`
	RiskScore          float64              `gorm:"column:risk_score"`
	RiskLevel          enums.RiskLevel      `gorm:"column:risk_level"`
	CategoriesDetected string               `gorm:"column:categories_detected"`
	Status             enums.AnalysisStatus `gorm:"column:status;not null"`
	ErrorMessage       string               `gorm:"column:error_message"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime"`
	CreatedBy          string               `gorm:"column:created_by"`
}

func (ForbiddenPhrases) TableName() string { return "forbidden_phrases" }

// ForbiddenPhraseDetail is one detected occurrence with its location in the
// audio and surrounding context.
type ForbiddenPhraseDetail struct {
	ID                 int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ForbiddenPhraseID  int64     `gorm:"column:forbidden_phrase_id;not null;index:idx_fp_details_parent"`
	FileID             string    `gorm:"column:file_id;not null"`
	Category           string    `gorm:"column:category;not null"`
	Phrase             string    `gorm:"column:phrase;not null"`
	StartTime          float64   `gorm:"column:start_time"`
	EndTime            float64   `gorm:"column:end_time"`
	Confidence         float64   `gorm:"column:confidence"`
	ContextSnippet     string    `gorm:"column:context_snippet"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	CreatedBy          string    `gorm:"column:created_by"`
}

func (ForbiddenPhraseDetail) TableName() string { return "forbidden_phrases_details" }
