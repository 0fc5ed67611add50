package pipeline

// FileStatus is the terminal outcome of one file in a batch.
type FileStatus string

const (
	// FileStatusCompleted means the result was persisted and the blob was
	// moved to the processed container.
	FileStatusCompleted FileStatus = "completed"
	// FileStatusError means the file failed before its result was
	// persisted; the source blob stays where it was.
	FileStatusError FileStatus = "error"
	// FileStatusErrorPartial means the result was persisted but the blob
	// move failed afterwards, so the recording may exist in both
	// containers until the move is retried.
	FileStatusErrorPartial FileStatus = "error-partial"
	// FileStatusSkipped means the batch was aborted before this file was
	// attempted.
	FileStatusSkipped FileStatus = "skipped"
)

// FileReport is the per-file entry of a batch report.
type FileReport struct {
	FileID   string     `json:"fileId"`
	Filename string     `json:"filename"`
	Status   FileStatus `json:"status"`
	Error    string     `json:"error,omitempty"`

	fatal bool
}

// BatchReport covers every requested file, including the ones skipped after
// an abort.
type BatchReport struct {
	Files       []FileReport `json:"files"`
	Aborted     bool         `json:"aborted"`
	AbortReason string       `json:"abortReason,omitempty"`
}

// Counts tallies the per-status totals of the report.
func (r *BatchReport) Counts() map[FileStatus]int {
	counts := make(map[FileStatus]int, 4)
	for _, file := range r.Files {
		counts[file.Status]++
	}
	return counts
}
