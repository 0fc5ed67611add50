package enums

// RiskLevel buckets the weighted forbidden-phrase score.
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// String returns the literal string for the level.
func (r RiskLevel) String() string {
	return string(r)
}
