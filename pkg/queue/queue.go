// Package queue is a Redis list backed job queue for out-of-band media work.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueBlobReclaim is the Redis list key for orphaned blob deletions.
	QueueBlobReclaim = "worker:blob_reclaim"
	// QueueDLQ is the dead-letter queue for jobs that exhausted their retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of attempts before a job moves to the DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
)

// JobType identifies the job kind.
type JobType string

const JobTypeBlobReclaim JobType = "blob_reclaim"

// BlobReclaimPayload names a blob whose recording row is gone.
type BlobReclaimPayload struct {
	RecordingID string `json:"recording_id"`
	Key         string `json:"key"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewJob wraps payload in an envelope of the given type.
func NewJob(typ JobType, payload any, now time.Time) (*Job, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Job{ID: uuid.NewString(), Type: typ, Payload: body, CreatedAt: now}, nil
}

// BlobReclaim decodes the payload of a blob reclaim job.
func (j *Job) BlobReclaim() (BlobReclaimPayload, error) {
	var p BlobReclaimPayload
	if j.Type != JobTypeBlobReclaim {
		return p, fmt.Errorf("unexpected job type: %s", j.Type)
	}
	if err := json.Unmarshal(j.Payload, &p); err != nil {
		return p, fmt.Errorf("unmarshal payload: %w", err)
	}
	if p.Key == "" {
		return p, errors.New("blob reclaim job without key")
	}
	return p, nil
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// EnqueueBlobReclaim enqueues deletion of a blob left behind by a recording delete.
func (q *Queue) EnqueueBlobReclaim(ctx context.Context, recordingID, key string) error {
	job, err := NewJob(JobTypeBlobReclaim, BlobReclaimPayload{RecordingID: recordingID, Key: key}, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := q.push(ctx, QueueBlobReclaim, job); err != nil {
		return err
	}
	q.logger.Debug("enqueued blob reclaim job", zap.String("job_id", job.ID), zap.String("recording_id", recordingID))
	return nil
}

func (q *Queue) push(ctx context.Context, key string, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for a job. It returns nil, nil when none arrived
// or the entry could not be decoded.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, QueueBlobReclaim).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// Retry re-enqueues a job with incremented attempt. At MaxRetries it goes to the DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	if job.Attempt >= MaxRetries {
		if err := q.push(ctx, QueueDLQ, job); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	if err := q.push(ctx, QueueBlobReclaim, job); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}

// RequeueDead moves up to limit dead jobs back to the work queue with a fresh attempt count.
func (q *Queue) RequeueDead(ctx context.Context, limit int) (int, error) {
	moved := 0
	for moved < limit {
		raw, err := q.client.LPop(ctx, QueueDLQ).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return moved, fmt.Errorf("lpop: %w", err)
		}
		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			q.logger.Warn("dropping undecodable dead job", zap.String("raw", raw), zap.Error(err))
			continue
		}
		job.Attempt = 0
		if err := q.push(ctx, QueueBlobReclaim, &job); err != nil {
			return moved, err
		}
		moved++
	}
	if moved > 0 {
		q.logger.Info("requeued dead jobs", zap.Int("count", moved))
	}
	return moved, nil
}
