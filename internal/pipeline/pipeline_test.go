package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/marisolvega/callinsights-backend/internal/assets"
	"github.com/marisolvega/callinsights-backend/internal/transcription"
	"github.com/marisolvega/callinsights-backend/pkg/db/models"
	"github.com/marisolvega/callinsights-backend/pkg/enums"
	apperrors "github.com/marisolvega/callinsights-backend/pkg/errors"
)

func intPtr(v int) *int { return &v }

func sampleResponse() *transcription.Response {
	return &transcription.Response{
		Results: transcription.Results{
			Channels: []transcription.Channel{{
				Alternatives: []transcription.Alternative{{
					Transcript: "Hello, thanks for calling. I need help with my invoice.",
					Confidence: 0.9,
				}},
				DetectedLanguage: "en",
			}},
			Utterances: []transcription.Utterance{
				{Start: 0, End: 2.5, Confidence: 0.92, Transcript: "Hello, thanks for calling.", Speaker: intPtr(0)},
				{Start: 2.5, End: 5.0, Confidence: 0.88, Transcript: "I need help with my invoice.", Speaker: intPtr(1)},
			},
			Summary: &transcription.Summary{Summary: "Customer asks about an invoice."},
		},
	}
}

// fakeStorage implements the orchestrator's blob gateway with canned sizes
// and a shared call log for ordering assertions.
type fakeStorage struct {
	mu      sync.Mutex
	sizes   map[string]int64
	moveErr error
	calls   *[]string
}

func (s *fakeStorage) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls != nil {
		*s.calls = append(*s.calls, call)
	}
}

func (s *fakeStorage) SourceBlobSize(_ context.Context, blob string) (int64, error) {
	s.record("size:" + blob)
	size, ok := s.sizes[blob]
	if !ok {
		return 0, apperrors.New(apperrors.CodeBlobNotFound, "blob "+blob+" not found")
	}
	return size, nil
}

func (s *fakeStorage) SourceBlobURL(blob string) (string, error) {
	return "https://testacct.blob.core.windows.net/incoming/" + blob + "?sig=test", nil
}

func (s *fakeStorage) MoveToProcessed(_ context.Context, blob string) (string, error) {
	s.record("move:" + blob)
	if s.moveErr != nil {
		return "", s.moveErr
	}
	return "processed/" + blob, nil
}

func (s *fakeStorage) SourceContainer() string { return "incoming" }

// fakeTranscriber returns one queued result per call, repeating the last
// entry once the queue is drained.
type fakeTranscriber struct {
	mu      sync.Mutex
	results []transcribeResult
	calls   int
}

type transcribeResult struct {
	resp *transcription.Response
	err  error
}

func (t *fakeTranscriber) Defaults() transcription.Options { return transcription.Options{} }

func (t *fakeTranscriber) TranscribeURL(context.Context, string, transcription.Options) (*transcription.Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := t.calls
	if idx >= len(t.results) {
		idx = len(t.results) - 1
	}
	t.calls++
	result := t.results[idx]
	return result.resp, result.err
}

func (t *fakeTranscriber) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// fakeRepo keeps everything in maps, mirroring the persistence layer's
// delete-before-insert and upsert-by-file-id behavior.
type fakeRepo struct {
	mu         sync.Mutex
	assets     map[string]*models.Asset
	paragraphs map[string][]models.Paragraph
	sentences  map[int64][]models.Sentence
	analyses   map[string]map[string]enums.AnalysisStatus

	resultErr error
	calls     *[]string
	nextID    int64
}

func newFakeRepo(calls *[]string) *fakeRepo {
	return &fakeRepo{
		assets:     make(map[string]*models.Asset),
		paragraphs: make(map[string][]models.Paragraph),
		sentences:  make(map[int64][]models.Sentence),
		analyses:   make(map[string]map[string]enums.AnalysisStatus),
		calls:      calls,
	}
}

func (r *fakeRepo) record(call string) {
	if r.calls != nil {
		*r.calls = append(*r.calls, call)
	}
}

func (r *fakeRepo) AssetExists(_ context.Context, fileID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.assets[fileID]
	return ok, nil
}

func (r *fakeRepo) CreatePendingAsset(_ context.Context, params assets.CreatePendingAssetParams) (*models.Asset, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	asset := &models.Asset{
		FileID:        params.FileID,
		Filename:      params.Filename,
		SourcePath:    params.SourcePath,
		FileSizeBytes: params.FileSizeBytes,
		Status:        enums.AssetStatusPending,
	}
	r.assets[params.FileID] = asset
	return asset, nil
}

func (r *fakeRepo) RecordTranscriptionResult(_ context.Context, params assets.TranscriptionResultParams) (*models.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("persist:" + params.FileID)
	if r.resultErr != nil {
		return nil, r.resultErr
	}
	asset, ok := r.assets[params.FileID]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "asset not found")
	}
	asset.Status = enums.AssetStatusCompleted
	asset.TranscriptText = params.TranscriptText
	asset.LanguageDetected = params.Language
	asset.ErrorMessage = ""
	now := time.Now().UTC()
	asset.ProcessedAt = &now
	return asset, nil
}

func (r *fakeRepo) RecordTranscriptionFailure(_ context.Context, fileID, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("fail:" + fileID)
	asset, ok := r.assets[fileID]
	if !ok {
		return apperrors.New(apperrors.CodeNotFound, "asset not found")
	}
	asset.Status = enums.AssetStatusError
	asset.ErrorMessage = errorMessage
	return nil
}

func (r *fakeRepo) MarkMoved(_ context.Context, fileID, destinationPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("moved:" + fileID)
	if asset, ok := r.assets[fileID]; ok {
		asset.DestinationPath = &destinationPath
	}
	return nil
}

func (r *fakeRepo) ReplaceParagraphs(_ context.Context, fileID string, paragraphs []models.Paragraph) ([]models.Paragraph, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inserted := make([]models.Paragraph, len(paragraphs))
	for i, p := range paragraphs {
		r.nextID++
		p.ID = r.nextID
		p.FileID = fileID
		inserted[i] = p
	}
	r.paragraphs[fileID] = inserted
	return inserted, nil
}

func (r *fakeRepo) ReplaceSentences(_ context.Context, fileID string, paragraphID int64, sentences []models.Sentence) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range sentences {
		sentences[i].FileID = fileID
		sentences[i].ParagraphID = paragraphID
	}
	r.sentences[paragraphID] = sentences
	return nil
}

func (r *fakeRepo) recordAnalysis(fileID, module string, status enums.AnalysisStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.analyses[fileID] == nil {
		r.analyses[fileID] = make(map[string]enums.AnalysisStatus)
	}
	r.analyses[fileID][module] = status
}

func (r *fakeRepo) UpsertSentiment(_ context.Context, record *models.Sentiment) error {
	r.recordAnalysis(record.FileID, "sentiment", record.Status)
	return nil
}

func (r *fakeRepo) UpsertLanguage(_ context.Context, record *models.Language) error {
	r.recordAnalysis(record.FileID, "language", record.Status)
	return nil
}

func (r *fakeRepo) UpsertSummarization(_ context.Context, record *models.Summarization) error {
	r.recordAnalysis(record.FileID, "summarization", record.Status)
	return nil
}

func (r *fakeRepo) UpsertTopicModeling(_ context.Context, record *models.TopicModeling) error {
	r.recordAnalysis(record.FileID, "topic_modeling", record.Status)
	return nil
}

func (r *fakeRepo) UpsertForbiddenPhrases(_ context.Context, record *models.ForbiddenPhrases, _ []models.ForbiddenPhraseDetail) error {
	r.recordAnalysis(record.FileID, "forbidden_phrases", record.Status)
	return nil
}

func (r *fakeRepo) UpsertSpeakerDiarization(_ context.Context, record *models.SpeakerDiarization, _ []models.SpeakerSegment) error {
	r.recordAnalysis(record.FileID, "speaker_diarization", record.Status)
	return nil
}

func newTestOrchestrator(t *testing.T, storage *fakeStorage, transcriber *fakeTranscriber, repo *fakeRepo) *Orchestrator {
	t.Helper()
	orch, err := New(Params{
		Storage:     storage,
		Transcriber: transcriber,
		Repo:        repo,
		Retry: RetryPolicy{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaximumBackoff: 2 * time.Millisecond,
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return orch
}

func TestProcessBatchCompletesAndMoves(t *testing.T) {
	t.Parallel()

	var calls []string
	storage := &fakeStorage{sizes: map[string]int64{"a.mp3": 1024}, calls: &calls}
	transcriber := &fakeTranscriber{results: []transcribeResult{{resp: sampleResponse()}}}
	repo := newFakeRepo(&calls)
	orch := newTestOrchestrator(t, storage, transcriber, repo)

	report, err := orch.ProcessBatch(context.Background(), []string{"a.mp3"})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if len(report.Files) != 1 {
		t.Fatalf("expected 1 file report, got %d", len(report.Files))
	}
	file := report.Files[0]
	if file.Status != FileStatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", file.Status, file.Error)
	}
	if file.FileID != "a" {
		t.Fatalf("expected file id a, got %s", file.FileID)
	}

	asset := repo.assets["a"]
	if asset == nil {
		t.Fatal("asset not created")
	}
	if asset.Status != enums.AssetStatusCompleted {
		t.Fatalf("expected asset completed, got %s", asset.Status)
	}
	if asset.TranscriptText == "" {
		t.Fatal("transcript text not recorded")
	}
	if asset.LanguageDetected != "en" {
		t.Fatalf("expected language en, got %s", asset.LanguageDetected)
	}
	if asset.ProcessedAt == nil {
		t.Fatal("processed timestamp not set")
	}
	if asset.DestinationPath == nil || *asset.DestinationPath != "processed/a.mp3" {
		t.Fatalf("expected destination path recorded, got %v", asset.DestinationPath)
	}

	if got := len(repo.paragraphs["a"]); got != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", got)
	}
	for _, paragraph := range repo.paragraphs["a"] {
		if len(repo.sentences[paragraph.ID]) == 0 {
			t.Fatalf("paragraph %d has no sentences", paragraph.ParagraphIndex)
		}
	}

	modules := repo.analyses["a"]
	if len(modules) != 6 {
		t.Fatalf("expected 6 analysis rows, got %d", len(modules))
	}
	for module, status := range modules {
		if status != enums.AnalysisStatusCompleted {
			t.Fatalf("module %s not completed: %s", module, status)
		}
	}

	// The move must come strictly after the persistence commit.
	persistIdx, moveIdx := -1, -1
	for i, call := range calls {
		switch call {
		case "persist:a":
			persistIdx = i
		case "move:a.mp3":
			moveIdx = i
		}
	}
	if persistIdx == -1 || moveIdx == -1 {
		t.Fatalf("expected persist and move calls, got %v", calls)
	}
	if moveIdx < persistIdx {
		t.Fatalf("move happened before persistence commit: %v", calls)
	}
}

func TestProcessBatchIsolatesPerFileFailures(t *testing.T) {
	t.Parallel()

	var calls []string
	storage := &fakeStorage{sizes: map[string]int64{"a.mp3": 100, "b.mp3": 200}, calls: &calls}
	transcriber := &fakeTranscriber{results: []transcribeResult{
		{resp: sampleResponse()},
		{err: apperrors.New(apperrors.CodeTranscriptionBadAudio, "unsupported codec")},
	}}
	repo := newFakeRepo(&calls)
	orch := newTestOrchestrator(t, storage, transcriber, repo)

	report, err := orch.ProcessBatch(context.Background(), []string{"a.mp3", "b.mp3"})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if report.Aborted {
		t.Fatal("batch should not abort on a per-file error")
	}
	if report.Files[0].Status != FileStatusCompleted {
		t.Fatalf("expected a.mp3 completed, got %s (%s)", report.Files[0].Status, report.Files[0].Error)
	}
	if report.Files[1].Status != FileStatusError {
		t.Fatalf("expected b.mp3 error, got %s", report.Files[1].Status)
	}
	if !strings.Contains(report.Files[1].Error, "unsupported codec") {
		t.Fatalf("expected classification detail in report, got %q", report.Files[1].Error)
	}

	if repo.assets["b"].Status != enums.AssetStatusError {
		t.Fatalf("expected b asset error, got %s", repo.assets["b"].Status)
	}
	for _, call := range calls {
		if call == "move:b.mp3" {
			t.Fatal("failed file must not be moved")
		}
	}
}

func TestProcessBatchAbortsOnFatalAuthError(t *testing.T) {
	t.Parallel()

	storage := &fakeStorage{sizes: map[string]int64{"a.mp3": 100, "b.mp3": 200, "c.mp3": 300}}
	transcriber := &fakeTranscriber{results: []transcribeResult{
		{err: apperrors.New(apperrors.CodeTranscriptionAuth, "invalid credentials")},
	}}
	repo := newFakeRepo(nil)
	orch := newTestOrchestrator(t, storage, transcriber, repo)

	report, err := orch.ProcessBatch(context.Background(), []string{"a.mp3", "b.mp3", "c.mp3"})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if !report.Aborted {
		t.Fatal("expected batch abort")
	}
	if len(report.Files) != 3 {
		t.Fatalf("report must list every requested file, got %d", len(report.Files))
	}
	if report.Files[0].Status != FileStatusError {
		t.Fatalf("expected first file error, got %s", report.Files[0].Status)
	}
	for _, file := range report.Files[1:] {
		if file.Status != FileStatusSkipped {
			t.Fatalf("expected %s skipped, got %s", file.Filename, file.Status)
		}
	}
	if got := transcriber.callCount(); got != 1 {
		t.Fatalf("auth errors must not be retried, got %d calls", got)
	}
}

func TestTranscribeRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	storage := &fakeStorage{sizes: map[string]int64{"a.mp3": 100}}
	transcriber := &fakeTranscriber{results: []transcribeResult{
		{err: apperrors.New(apperrors.CodeTranscriptionTransient, "rate limited")},
		{err: apperrors.New(apperrors.CodeTranscriptionTransient, "rate limited")},
		{resp: sampleResponse()},
	}}
	repo := newFakeRepo(nil)
	orch := newTestOrchestrator(t, storage, transcriber, repo)

	report, err := orch.ProcessBatch(context.Background(), []string{"a.mp3"})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if report.Files[0].Status != FileStatusCompleted {
		t.Fatalf("expected completed after retries, got %s (%s)", report.Files[0].Status, report.Files[0].Error)
	}
	if got := transcriber.callCount(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestTranscribeRetryBudgetExhausted(t *testing.T) {
	t.Parallel()

	storage := &fakeStorage{sizes: map[string]int64{"a.mp3": 100}}
	transcriber := &fakeTranscriber{results: []transcribeResult{
		{err: apperrors.New(apperrors.CodeTranscriptionTransient, "upstream unavailable")},
	}}
	repo := newFakeRepo(nil)
	orch := newTestOrchestrator(t, storage, transcriber, repo)

	report, err := orch.ProcessBatch(context.Background(), []string{"a.mp3"})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if report.Files[0].Status != FileStatusError {
		t.Fatalf("expected error after retry budget, got %s", report.Files[0].Status)
	}
	if got := transcriber.callCount(); got != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", got)
	}
	if repo.assets["a"].Status != enums.AssetStatusError {
		t.Fatalf("expected asset marked error, got %s", repo.assets["a"].Status)
	}
}

func TestBadAudioNotRetried(t *testing.T) {
	t.Parallel()

	storage := &fakeStorage{sizes: map[string]int64{"a.mp3": 100}}
	transcriber := &fakeTranscriber{results: []transcribeResult{
		{err: apperrors.New(apperrors.CodeTranscriptionBadAudio, "corrupted file")},
	}}
	repo := newFakeRepo(nil)
	orch := newTestOrchestrator(t, storage, transcriber, repo)

	report, err := orch.ProcessBatch(context.Background(), []string{"a.mp3"})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if report.Files[0].Status != FileStatusError {
		t.Fatalf("expected error, got %s", report.Files[0].Status)
	}
	if got := transcriber.callCount(); got != 1 {
		t.Fatalf("bad audio must not be retried, got %d calls", got)
	}
}

func TestWhitespaceOnlyTranscriptIsRecordedAsFailure(t *testing.T) {
	t.Parallel()

	resp := &transcription.Response{
		Results: transcription.Results{
			Channels: []transcription.Channel{{
				Alternatives: []transcription.Alternative{{Transcript: "   \n\t", Confidence: 0.1}},
			}},
		},
	}
	var calls []string
	storage := &fakeStorage{sizes: map[string]int64{"silent.mp3": 40}, calls: &calls}
	transcriber := &fakeTranscriber{results: []transcribeResult{{resp: resp}}}
	repo := newFakeRepo(&calls)
	orch := newTestOrchestrator(t, storage, transcriber, repo)

	report, err := orch.ProcessBatch(context.Background(), []string{"silent.mp3"})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if report.Files[0].Status != FileStatusError {
		t.Fatalf("expected error, got %s", report.Files[0].Status)
	}
	if repo.assets["silent"].Status != enums.AssetStatusError {
		t.Fatalf("expected asset error, got %s", repo.assets["silent"].Status)
	}
	for _, call := range calls {
		if call == "move:silent.mp3" {
			t.Fatal("blob must not move for an empty transcript")
		}
	}
	if got := transcriber.callCount(); got != 1 {
		t.Fatalf("empty transcript must not be retried, got %d calls", got)
	}
}

func TestPersistenceFailurePreventsMove(t *testing.T) {
	t.Parallel()

	var calls []string
	storage := &fakeStorage{sizes: map[string]int64{"a.mp3": 100}, calls: &calls}
	transcriber := &fakeTranscriber{results: []transcribeResult{{resp: sampleResponse()}}}
	repo := newFakeRepo(&calls)
	repo.resultErr = apperrors.New(apperrors.CodePersistenceTransient, "connection reset")
	orch := newTestOrchestrator(t, storage, transcriber, repo)

	report, err := orch.ProcessBatch(context.Background(), []string{"a.mp3"})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if report.Files[0].Status != FileStatusError {
		t.Fatalf("expected error, got %s", report.Files[0].Status)
	}

	persistAttempts := 0
	for _, call := range calls {
		if call == "move:a.mp3" {
			t.Fatal("blob must not move when the result did not commit")
		}
		if call == "persist:a" {
			persistAttempts++
		}
	}
	if persistAttempts != 3 {
		t.Fatalf("expected 3 persistence attempts, got %d", persistAttempts)
	}
}

func TestMoveFailureAfterCommitIsErrorPartial(t *testing.T) {
	t.Parallel()

	storage := &fakeStorage{
		sizes:   map[string]int64{"a.mp3": 100},
		moveErr: apperrors.New(apperrors.CodeStorageUnavailable, "copy timed out"),
	}
	transcriber := &fakeTranscriber{results: []transcribeResult{{resp: sampleResponse()}}}
	repo := newFakeRepo(nil)
	orch := newTestOrchestrator(t, storage, transcriber, repo)

	report, err := orch.ProcessBatch(context.Background(), []string{"a.mp3"})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if report.Files[0].Status != FileStatusErrorPartial {
		t.Fatalf("expected error-partial, got %s", report.Files[0].Status)
	}
	// The persisted result survives a failed move.
	if repo.assets["a"].Status != enums.AssetStatusCompleted {
		t.Fatalf("expected asset to stay completed, got %s", repo.assets["a"].Status)
	}
	if repo.assets["a"].DestinationPath != nil {
		t.Fatal("destination path must not be recorded for a failed move")
	}
}

func TestMissingBlobReportsErrorWithoutAsset(t *testing.T) {
	t.Parallel()

	storage := &fakeStorage{sizes: map[string]int64{}}
	transcriber := &fakeTranscriber{results: []transcribeResult{{resp: sampleResponse()}}}
	repo := newFakeRepo(nil)
	orch := newTestOrchestrator(t, storage, transcriber, repo)

	report, err := orch.ProcessBatch(context.Background(), []string{"ghost.mp3"})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if report.Files[0].Status != FileStatusError {
		t.Fatalf("expected error, got %s", report.Files[0].Status)
	}
	if _, ok := repo.assets["ghost"]; ok {
		t.Fatal("missing blob must not create an asset")
	}
	if got := transcriber.callCount(); got != 0 {
		t.Fatalf("transcriber must not run for a missing blob, got %d calls", got)
	}
}

func TestProcessBatchRejectsEmptyInput(t *testing.T) {
	t.Parallel()

	orch := newTestOrchestrator(t, &fakeStorage{}, &fakeTranscriber{results: []transcribeResult{{}}}, newFakeRepo(nil))
	if _, err := orch.ProcessBatch(context.Background(), nil); err == nil {
		t.Fatal("expected validation error for empty batch")
	}
}

func TestFileIDFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"a.mp3", "a"},
		{"Call Recording (Final).wav", "call-recording-final"},
		{"nested/path/2025-01-03_call.mp3", "2025-01-03-call"},
		{"UPPER_case.m4a", "upper-case"},
		{"trailing---.mp3", "trailing"},
	}
	for _, tc := range cases {
		if got := FileIDFor(tc.in); got != tc.want {
			t.Errorf("FileIDFor(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSpeakerNumber(t *testing.T) {
	t.Parallel()

	if got := speakerNumber("speaker_3"); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := speakerNumber("narrator"); got != -1 {
		t.Fatalf("expected -1 for unlabeled speaker, got %d", got)
	}
}
