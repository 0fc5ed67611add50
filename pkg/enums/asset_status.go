package enums

import "fmt"

// AssetStatus tracks an audio file through the processing lifecycle.
type AssetStatus string

const (
	AssetStatusPending    AssetStatus = "pending"
	AssetStatusProcessing AssetStatus = "processing"
	AssetStatusCompleted  AssetStatus = "completed"
	AssetStatusError      AssetStatus = "error"
)

var validAssetStatuses = []AssetStatus{
	AssetStatusPending,
	AssetStatusProcessing,
	AssetStatusCompleted,
	AssetStatusError,
}

// String returns the literal string for the status.
func (s AssetStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s AssetStatus) IsValid() bool {
	for _, candidate := range validAssetStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status cannot transition further within a
// single processing attempt.
func (s AssetStatus) IsTerminal() bool {
	return s == AssetStatusCompleted || s == AssetStatusError
}

// ParseAssetStatus converts raw input into an AssetStatus.
func ParseAssetStatus(value string) (AssetStatus, error) {
	for _, candidate := range validAssetStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid asset status %q", value)
}
