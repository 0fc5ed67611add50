package models

import "time"

// Paragraph is one speaker-attributed block of the normalized transcript.
// Rows for a file are deleted and re-inserted as a set on reprocessing, so
// (file_id, paragraph_index) stays unique without accumulating duplicates.
type Paragraph struct {
	ID             int64     `gorm:"column:id;primaryKey;autoIncrement"`
	FileID         string    `gorm:"column:file_id;not null;index:idx_paragraphs_file"`
	ParagraphIndex int       `gorm:"column:paragraph_index;not null"`
	Text           string    `gorm:"column:text"`
	StartTime      float64   `gorm:"column:start_time"`
	EndTime        float64   `gorm:"column:end_time"`
	SpeakerLabel   string    `gorm:"column:speaker_label"`
	WordCount      int       `gorm:"column:word_count"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	CreatedBy      string    `gorm:"column:created_by"`
}

func (Paragraph) TableName() string { return "paragraphs" }

// Sentence belongs to one paragraph. SentenceIndex is the composite
// "{paragraphIndex}_{sentenceIndex}" identifier assigned by the normalizer.
type Sentence struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	FileID        string    `gorm:"column:file_id;not null;index:idx_sentences_file"`
	ParagraphID   int64     `gorm:"column:paragraph_id;not null;index:idx_sentences_paragraph"`
	SentenceIndex string    `gorm:"column:sentence_index;not null"`
	Text          string    `gorm:"column:text"`
	StartTime     float64   `gorm:"column:start_time"`
	EndTime       float64   `gorm:"column:end_time"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	CreatedBy     string    `gorm:"column:created_by"`
}

func (Sentence) TableName() string { return "sentences" }
