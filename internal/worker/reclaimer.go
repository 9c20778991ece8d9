// Package worker runs background media jobs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/soundtech/meeting-backend/internal/models"
	"github.com/soundtech/meeting-backend/pkg/apperr"
	"github.com/soundtech/meeting-backend/pkg/queue"
	"github.com/soundtech/meeting-backend/pkg/storage"
)

// JobQueue is the slice of the job queue the reclaimer consumes.
type JobQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// RecordingLookup reports whether a recording row still exists.
type RecordingLookup interface {
	GetRecording(ctx context.Context, id string) (*models.Recording, error)
}

// BlobReclaimer deletes blobs whose recording rows were removed while the media
// store was unavailable.
type BlobReclaimer struct {
	queue   JobQueue
	media   storage.MediaStore
	lookup  RecordingLookup
	logger  *zap.Logger
	poll    time.Duration
	backoff time.Duration
}

// NewBlobReclaimer creates a reclaimer. lookup may be nil.
func NewBlobReclaimer(q JobQueue, media storage.MediaStore, lookup RecordingLookup, logger *zap.Logger) *BlobReclaimer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlobReclaimer{
		queue:   q,
		media:   media,
		lookup:  lookup,
		logger:  logger,
		poll:    5 * time.Second,
		backoff: queue.RetryBackoff,
	}
}

// Process executes one blob reclaim job. A blob whose recording row exists again is left alone.
func (r *BlobReclaimer) Process(ctx context.Context, job *queue.Job) error {
	p, err := job.BlobReclaim()
	if err != nil {
		return err
	}
	if r.lookup != nil && p.RecordingID != "" {
		_, err := r.lookup.GetRecording(ctx, p.RecordingID)
		switch {
		case err == nil:
			r.logger.Info("recording row present, keeping blob", zap.String("recording_id", p.RecordingID), zap.String("path", p.Key))
			return nil
		case !errors.Is(err, apperr.ErrNotFound):
			return fmt.Errorf("lookup recording: %w", err)
		}
	}
	if err := r.media.Delete(ctx, p.Key); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	r.logger.Info("blob reclaimed", zap.String("recording_id", p.RecordingID), zap.String("path", p.Key))
	return nil
}

// Run dequeues and processes jobs until ctx is done. Failed jobs are retried and
// end up in the DLQ after queue.MaxRetries attempts.
func (r *BlobReclaimer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			r.logger.Info("blob reclaimer stopping")
			return
		}

		job, err := r.queue.Dequeue(ctx, r.poll)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			r.logger.Warn("dequeue error", zap.Error(err))
			r.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		r.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := r.Process(ctx, job); err != nil {
			r.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := r.queue.Retry(context.WithoutCancel(ctx), job); reErr != nil {
				r.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			r.sleep(ctx)
		}
	}
}

func (r *BlobReclaimer) sleep(ctx context.Context) {
	t := time.NewTimer(r.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
