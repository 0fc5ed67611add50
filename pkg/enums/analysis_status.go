package enums

// AnalysisStatus marks the outcome of a single analysis module run. A module
// failure is recorded on its own row and never blocks sibling modules.
type AnalysisStatus string

const (
	AnalysisStatusCompleted AnalysisStatus = "completed"
	AnalysisStatusError     AnalysisStatus = "error"
)

// String returns the literal string for the status.
func (s AnalysisStatus) String() string {
	return string(s)
}
