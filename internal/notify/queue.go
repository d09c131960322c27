// Package notify delivers task notifications to assignees outside the request
// path. Jobs are queued after the triggering write commits and delivered at
// most once by a Worker.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/yukikurage/collab-miniapp-api/internal/models"
)

var (
	// ErrQueueFull is returned when the in-memory buffer has no room.
	ErrQueueFull = errors.New("notification queue is full")
	// ErrQueueClosed is returned by a closed queue.
	ErrQueueClosed = errors.New("notification queue is closed")
)

// Job asks for one task event to be delivered to the task's assignees.
type Job struct {
	ID         string                   `json:"id"`
	TaskID     uint64                   `json:"task_id"`
	Event      models.NotificationEvent `json:"event"`
	ActorID    uint64                   `json:"actor_id"`
	EnqueuedAt time.Time                `json:"enqueued_at"`
}

// NewJob stamps a job with a fresh id.
func NewJob(taskID uint64, event models.NotificationEvent, actorID uint64) Job {
	return Job{
		ID:         uuid.NewString(),
		TaskID:     taskID,
		Event:      event,
		ActorID:    actorID,
		EnqueuedAt: time.Now().UTC(),
	}
}

// Queue hands jobs from request handlers to workers.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	// Dequeue blocks until a job is available or ctx is done.
	Dequeue(ctx context.Context) (Job, error)
	Close() error
}

// MemoryQueue is a bounded in-process queue. Enqueue never blocks.
type MemoryQueue struct {
	jobs   chan Job
	closed chan struct{}
}

// NewMemoryQueue creates a queue holding up to size jobs.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 1
	}
	return &MemoryQueue{
		jobs:   make(chan Job, size),
		closed: make(chan struct{}),
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, job Job) error {
	select {
	case <-q.closed:
		return ErrQueueClosed
	default:
	}

	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (Job, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-q.closed:
		return Job{}, ErrQueueClosed
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// Close stops further enqueues and wakes blocked consumers. Safe to call once.
func (q *MemoryQueue) Close() error {
	close(q.closed)
	return nil
}

// DefaultRedisKey is the list holding pending jobs.
const DefaultRedisKey = "collab:notify:jobs"

// redisPollInterval bounds each BRPOP so cancellation is noticed promptly.
const redisPollInterval = time.Second

// RedisQueue stores jobs in a Redis list so they survive a process restart
// and can be shared by several workers.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue connects to redisURL (redis://host:port/db) and verifies the
// connection.
func NewRedisQueue(ctx context.Context, redisURL string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisQueueWithClient(client, DefaultRedisKey), nil
}

// NewRedisQueueWithClient wraps an existing client.
func NewRedisQueueWithClient(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisQueue{client: client, key: key}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("redis lpush: %w", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Job{}, err
		}

		res, err := q.client.BRPop(ctx, redisPollInterval, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Job{}, ctxErr
			}
			if errors.Is(err, redis.ErrClosed) {
				return Job{}, ErrQueueClosed
			}
			return Job{}, fmt.Errorf("redis brpop: %w", err)
		}

		// res is [key, value]
		var job Job
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return Job{}, fmt.Errorf("decode job: %w", err)
		}
		return job, nil
	}
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
