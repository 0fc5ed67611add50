package enums

// SentimentLabel is the overall emotional tone assigned to a call.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

// String returns the literal string for the label.
func (s SentimentLabel) String() string {
	return string(s)
}
