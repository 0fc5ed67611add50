package scan

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/marisolvega/callinsights-backend/internal/pipeline"
	"github.com/marisolvega/callinsights-backend/pkg/logger"
	"github.com/marisolvega/callinsights-backend/pkg/storage/azblob"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "scan-test", Output: io.Discard})
}

type fakeLister struct {
	blobs []azblob.BlobInfo
	err   error
}

func (f *fakeLister) ListSourceBlobs(context.Context) ([]azblob.BlobInfo, error) {
	return f.blobs, f.err
}

type fakeChecker struct {
	existing map[string]bool
}

func (f *fakeChecker) AssetExists(_ context.Context, fileID string) (bool, error) {
	return f.existing[fileID], nil
}

type fakeProcessor struct {
	batches [][]string
	err     error
}

func (f *fakeProcessor) ProcessBatch(_ context.Context, filenames []string) (*pipeline.BatchReport, error) {
	f.batches = append(f.batches, filenames)
	if f.err != nil {
		return nil, f.err
	}
	report := &pipeline.BatchReport{}
	for _, filename := range filenames {
		report.Files = append(report.Files, pipeline.FileReport{
			FileID:   pipeline.FileIDFor(filename),
			Filename: filename,
			Status:   pipeline.FileStatusCompleted,
		})
	}
	return report, nil
}

type heldLock struct{}

func (heldLock) Acquire(context.Context) (bool, error) { return false, nil }
func (heldLock) Release(context.Context) error         { return nil }

func newTestService(t *testing.T, lister *fakeLister, checker *fakeChecker, processor *fakeProcessor, batchSize int) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Logger:    testLogger(),
		Storage:   lister,
		Repo:      checker,
		Pipeline:  processor,
		BatchSize: batchSize,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return service
}

func TestScanSkipsKnownAssets(t *testing.T) {
	lister := &fakeLister{blobs: []azblob.BlobInfo{
		{Name: "a.mp3"},
		{Name: "b.mp3"},
		{Name: "c.mp3"},
	}}
	checker := &fakeChecker{existing: map[string]bool{"b": true}}
	processor := &fakeProcessor{}
	service := newTestService(t, lister, checker, processor, 10)

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if len(processor.batches) != 1 {
		t.Fatalf("expected one batch, got %d", len(processor.batches))
	}
	got := processor.batches[0]
	if len(got) != 2 || got[0] != "a.mp3" || got[1] != "c.mp3" {
		t.Fatalf("expected [a.mp3 c.mp3], got %v", got)
	}
}

func TestScanHonorsBatchSize(t *testing.T) {
	lister := &fakeLister{blobs: []azblob.BlobInfo{
		{Name: "a.mp3"},
		{Name: "b.mp3"},
		{Name: "c.mp3"},
	}}
	processor := &fakeProcessor{}
	service := newTestService(t, lister, &fakeChecker{}, processor, 2)

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if len(processor.batches) != 1 || len(processor.batches[0]) != 2 {
		t.Fatalf("expected one batch of 2, got %v", processor.batches)
	}
}

func TestScanNoNewRecordings(t *testing.T) {
	lister := &fakeLister{blobs: []azblob.BlobInfo{{Name: "a.mp3"}}}
	checker := &fakeChecker{existing: map[string]bool{"a": true}}
	processor := &fakeProcessor{}
	service := newTestService(t, lister, checker, processor, 10)

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if len(processor.batches) != 0 {
		t.Fatalf("expected no batches, got %v", processor.batches)
	}
}

func TestScanListFailureSurfaces(t *testing.T) {
	lister := &fakeLister{err: errors.New("container unreachable")}
	processor := &fakeProcessor{}
	service := newTestService(t, lister, &fakeChecker{}, processor, 10)

	if err := service.runCycle(context.Background()); err == nil {
		t.Fatal("expected listing error to surface")
	}
	if len(processor.batches) != 0 {
		t.Fatalf("expected no batches after list failure, got %v", processor.batches)
	}
}

func TestScanSkipsCycleWhenLockHeld(t *testing.T) {
	lister := &fakeLister{blobs: []azblob.BlobInfo{{Name: "a.mp3"}}}
	processor := &fakeProcessor{}
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Storage:  lister,
		Repo:     &fakeChecker{},
		Pipeline: processor,
		Lock:     heldLock{},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if len(processor.batches) != 0 {
		t.Fatalf("expected skipped cycle, got %v", processor.batches)
	}
}
