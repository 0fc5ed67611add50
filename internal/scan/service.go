// Package scan polls the source container on a fixed cadence and feeds any
// recordings without an asset row into the processing pipeline.
package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/marisolvega/callinsights-backend/internal/pipeline"
	"github.com/marisolvega/callinsights-backend/pkg/logger"
	"github.com/marisolvega/callinsights-backend/pkg/metrics"
	"github.com/marisolvega/callinsights-backend/pkg/storage/azblob"
)

const (
	jobName = "source_container_scan"

	defaultInterval  = time.Minute
	defaultBatchSize = 10
)

type blobLister interface {
	ListSourceBlobs(ctx context.Context) ([]azblob.BlobInfo, error)
}

type assetChecker interface {
	AssetExists(ctx context.Context, fileID string) (bool, error)
}

type batchProcessor interface {
	ProcessBatch(ctx context.Context, filenames []string) (*pipeline.BatchReport, error)
}

// ServiceParams configure the scan service.
type ServiceParams struct {
	Logger    *logger.Logger
	Storage   blobLister
	Repo      assetChecker
	Pipeline  batchProcessor
	Lock      Lock
	Metrics   *metrics.CronJobMetrics
	Interval  time.Duration
	BatchSize int
}

// Service discovers unprocessed recordings and hands them to the pipeline.
type Service struct {
	logg      *logger.Logger
	storage   blobLister
	repo      assetChecker
	pipeline  batchProcessor
	lock      Lock
	metrics   *metrics.CronJobMetrics
	interval  time.Duration
	batchSize int
}

// NewService builds a scan service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Storage == nil {
		return nil, fmt.Errorf("blob lister required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if params.Pipeline == nil {
		return nil, fmt.Errorf("pipeline required")
	}
	lock := params.Lock
	if lock == nil {
		lock = NewLocalLock()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Service{
		logg:      params.Logger,
		storage:   params.Storage,
		repo:      params.Repo,
		pipeline:  params.Pipeline,
		lock:      lock,
		metrics:   params.Metrics,
		interval:  interval,
		batchSize: batchSize,
	}, nil
}

// Run starts the scan loop until the context is canceled. The first cycle
// runs immediately so a restart picks up backlog without waiting a full
// interval.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.runCycle(ctx); err != nil {
		s.logg.Error(ctx, "scan cycle failed", err)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "scan service context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := s.runCycle(ctx); err != nil {
				s.logg.Error(ctx, "scan cycle failed", err)
			}
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "another scan instance is running; skipping this cycle")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release scan lock", relErr)
		}
	}()

	start := time.Now()
	err = s.scanOnce(ctx)
	s.observeDuration(time.Since(start))
	if err != nil {
		s.recordFailure()
		return err
	}
	s.recordSuccess()
	return nil
}

// scanOnce lists the source container and processes up to one batch of
// recordings that have no asset row yet. Anything beyond the batch size
// waits for the next cycle.
func (s *Service) scanOnce(ctx context.Context) error {
	blobs, err := s.storage.ListSourceBlobs(ctx)
	if err != nil {
		return fmt.Errorf("listing source container: %w", err)
	}

	pending := make([]string, 0, s.batchSize)
	for _, blob := range blobs {
		if len(pending) == s.batchSize {
			break
		}
		exists, err := s.repo.AssetExists(ctx, pipeline.FileIDFor(blob.Name))
		if err != nil {
			return fmt.Errorf("checking asset for %s: %w", blob.Name, err)
		}
		if exists {
			continue
		}
		pending = append(pending, blob.Name)
	}

	if len(pending) == 0 {
		s.logg.Info(ctx, "no new recordings found")
		return nil
	}

	s.logg.Info(ctx, fmt.Sprintf("processing %d new recordings", len(pending)))
	report, err := s.pipeline.ProcessBatch(ctx, pending)
	if err != nil {
		return fmt.Errorf("processing batch: %w", err)
	}
	for status, count := range report.Counts() {
		s.logg.Info(ctx, fmt.Sprintf("scan batch: %d %s", count, status))
	}
	return nil
}

func (s *Service) observeDuration(duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(jobName, duration)
}

func (s *Service) recordSuccess() {
	if s.metrics == nil {
		return
	}
	s.metrics.IncSuccess(jobName)
}

func (s *Service) recordFailure() {
	if s.metrics == nil {
		return
	}
	s.metrics.IncFailure(jobName)
}
