package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

type JobType string

const (
	JobTypeContactSales JobType = "contact_sales"
)

const (
	MaxRetries = 5

	baseRetryDelay = 15 * time.Second
)

type Job struct {
	ID         string                 `json:"id"`
	Type       JobType                `json:"type"`
	Data       map[string]interface{} `json:"data"`
	CreatedAt  time.Time              `json:"created_at"`
	RetryCount int                    `json:"retry_count"`

	// raw is the payload as stored in Redis, needed to LREM it exactly.
	raw string
}

// String returns the job data value for key, or "" when absent.
func (j *Job) String(key string) string {
	s, _ := j.Data[key].(string)
	return s
}

func (j *Job) Bool(key string) bool {
	b, _ := j.Data[key].(bool)
	return b
}

type Queue struct {
	client     *redis.Client
	queueName  string
	processing string
	failed     string
	delayed    string
	now        func() time.Time
}

func NewQueue(redisURL, queueName string) (*Queue, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewQueueWithClient(client, queueName), nil
}

func NewQueueWithClient(client *redis.Client, queueName string) *Queue {
	return &Queue{
		client:     client,
		queueName:  queueName,
		processing: queueName + ":processing",
		failed:     queueName + ":failed",
		delayed:    queueName + ":delayed",
		now:        time.Now,
	}
}

func (q *Queue) Enqueue(ctx context.Context, jobType JobType, data map[string]interface{}) (*Job, error) {
	job := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Data:      data,
		CreatedAt: q.now(),
	}

	jobJSON, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := q.client.RPush(ctx, q.queueName, jobJSON).Err(); err != nil {
		return nil, fmt.Errorf("failed to push job to queue: %w", err)
	}

	slog.Info("enqueued job", "job_id", job.ID, "type", job.Type)
	return job, nil
}

// Dequeue blocks up to timeout for a job and moves it to the processing list.
// It returns nil, nil when nothing arrived.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job from queue: %w", err)
	}

	if len(result) < 2 {
		return nil, fmt.Errorf("unexpected BLPOP result format")
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	job.raw = result[1]
	if job.Data == nil {
		job.Data = map[string]interface{}{}
	}

	if err := q.client.RPush(ctx, q.processing, result[1]).Err(); err != nil {
		slog.Warn("failed to move job to processing list", "job_id", job.ID, "error", err)
	}

	return &job, nil
}

func (q *Queue) CompleteJob(ctx context.Context, job *Job) error {
	if err := q.client.LRem(ctx, q.processing, 1, job.raw).Err(); err != nil {
		return fmt.Errorf("failed to remove job from processing list: %w", err)
	}

	slog.Info("completed job", "job_id", job.ID, "type", job.Type)
	return nil
}

// FailJob schedules the job for another attempt with exponential backoff, or
// moves it to the failed list once MaxRetries is exhausted.
func (q *Queue) FailJob(ctx context.Context, job *Job, jobErr error) error {
	if err := q.client.LRem(ctx, q.processing, 1, job.raw).Err(); err != nil {
		slog.Warn("failed to remove job from processing list", "job_id", job.ID, "error", err)
	}

	job.RetryCount++
	job.Data["last_error"] = jobErr.Error()

	if job.RetryCount <= MaxRetries {
		delay := RetryDelay(job.RetryCount)
		retryAt := q.now().Add(delay)

		jobJSON, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("failed to marshal job: %w", err)
		}

		if err := q.client.ZAdd(ctx, q.delayed, &redis.Z{
			Score:  float64(retryAt.Unix()),
			Member: jobJSON,
		}).Err(); err != nil {
			slog.Warn("failed to schedule retry, moving job to failed list", "job_id", job.ID, "error", err)
			return q.pushFailed(ctx, jobJSON)
		}

		slog.Info("scheduled job retry",
			"job_id", job.ID,
			"type", job.Type,
			"attempt", job.RetryCount,
			"max", MaxRetries,
			"delay", delay,
		)
		return nil
	}

	job.Data["all_retries_exhausted"] = true
	jobJSON, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.pushFailed(ctx, jobJSON); err != nil {
		return err
	}

	slog.Error("job moved to failed list", "job_id", job.ID, "type", job.Type, "retries", job.RetryCount)
	return nil
}

func (q *Queue) pushFailed(ctx context.Context, jobJSON []byte) error {
	if err := q.client.RPush(ctx, q.failed, jobJSON).Err(); err != nil {
		return fmt.Errorf("failed to push job to failed list: %w", err)
	}
	return nil
}

// RetryDelay is 15s doubled per attempt: 15s, 30s, 1m, 2m, 4m.
func RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return baseRetryDelay * time.Duration(1<<(attempt-1))
}

// promoteScript moves one member from the delayed set to the queue. RPUSH runs
// before ZREM so a failed push leaves the job scheduled, and a member another
// worker already moved is skipped.
var promoteScript = redis.NewScript(`
if not redis.call('ZSCORE', KEYS[1], ARGV[1]) then
	return 0
end
redis.call('RPUSH', KEYS[2], ARGV[1])
redis.call('ZREM', KEYS[1], ARGV[1])
return 1
`)

// ProcessDelayedJobs moves due retries back onto the main queue.
func (q *Queue) ProcessDelayedJobs(ctx context.Context) (int, error) {
	jobs, err := q.client.ZRangeByScore(ctx, q.delayed, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", q.now().Unix()),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get delayed jobs: %w", err)
	}

	moved := 0
	for _, jobJSON := range jobs {
		ok, err := promoteScript.Run(ctx, q.client, []string{q.delayed, q.queueName}, jobJSON).Int()
		if err != nil {
			slog.Warn("failed to requeue delayed job, leaving it scheduled", "error", err)
			continue
		}
		if ok == 1 {
			moved++
		}
	}

	return moved, nil
}

// Len reports the number of jobs waiting on the main queue.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueName).Result()
}

func (q *Queue) FailedLen(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.failed).Result()
}

func (q *Queue) Client() *redis.Client {
	return q.client
}

func (q *Queue) Close() error {
	return q.client.Close()
}
