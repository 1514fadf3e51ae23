package drive

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"

	driveRepo "cloudfiles/internal/domain/repositories/drive"
	driveSvc "cloudfiles/internal/domain/services/drive"
	"cloudfiles/internal/storage/blob"
)

const (
	defaultOrphanGracePeriod = time.Hour
	sweepTimeout             = 10 * time.Minute
)

// SweepResult summarises one reconciliation pass
type SweepResult struct {
	Scanned int `json:"scanned"`
	Deleted int `json:"deleted"`
}

// OrphanSweeper deletes stored blobs that no file record references. These
// are left behind when a record write fails after its upload, when a file
// record is deleted but its blob delete failed, or when a re-upload into a
// renamed folder moves a file to a new key.
type OrphanSweeper struct {
	fileRepo driveRepo.FileRepository
	blobs    driveSvc.BlobStore
	grace    time.Duration
	now      func() time.Time
	cron     *cron.Cron
	logger   *slog.Logger
}

// SweeperOption customises an OrphanSweeper
type SweeperOption func(*OrphanSweeper)

// WithGracePeriod skips blobs younger than d, which may belong to an upload
// whose record has not been written yet
func WithGracePeriod(d time.Duration) SweeperOption {
	return func(s *OrphanSweeper) {
		if d > 0 {
			s.grace = d
		}
	}
}

// WithClock overrides the clock used for the grace period
func WithClock(now func() time.Time) SweeperOption {
	return func(s *OrphanSweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// NewOrphanSweeper creates a sweeper
func NewOrphanSweeper(fileRepo driveRepo.FileRepository, blobs driveSvc.BlobStore, logger *slog.Logger, opts ...SweeperOption) *OrphanSweeper {
	s := &OrphanSweeper{
		fileRepo: fileRepo,
		blobs:    blobs,
		grace:    defaultOrphanGracePeriod,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep lists every uploaded blob and deletes the unreferenced ones.
// Individual failures do not stop the pass; they are returned together.
func (s *OrphanSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	objects, err := s.blobs.List(ctx, blob.KeyPrefix)
	if err != nil {
		return result, fmt.Errorf("list blobs: %w", err)
	}

	cutoff := s.now().Add(-s.grace)
	var errs error
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return result, multierr.Append(errs, err)
		}
		result.Scanned++

		if obj.ModifiedAt.After(cutoff) {
			continue
		}

		referenced, err := s.fileRepo.ExistsByURL(ctx, obj.URL)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("check blob %s: %w", obj.Key, err))
			continue
		}
		if referenced {
			continue
		}

		if err := s.blobs.Delete(ctx, obj.URL); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete blob %s: %w", obj.Key, err))
			continue
		}
		result.Deleted++
		s.logger.Info("deleted orphaned blob", "key", obj.Key, "size", obj.Size)
	}

	return result, errs
}

// Start runs Sweep on the cron schedule spec (e.g. "@hourly")
func (s *OrphanSweeper) Start(spec string) error {
	c := cron.New(cron.WithLogger(cron.DiscardLogger))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()

		result, err := s.Sweep(ctx)
		if err != nil {
			s.logger.Warn("orphan sweep finished with errors",
				"scanned", result.Scanned,
				"deleted", result.Deleted,
				"error", err,
			)
			return
		}
		s.logger.Info("orphan sweep finished",
			"scanned", result.Scanned,
			"deleted", result.Deleted,
		)
	})
	if err != nil {
		return fmt.Errorf("invalid orphan sweep schedule %q: %w", spec, err)
	}

	s.cron = c
	c.Start()
	s.logger.Info("orphan sweep scheduled", "schedule", spec, "grace_period", s.grace)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish
func (s *OrphanSweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
