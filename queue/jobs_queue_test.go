package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewQueueWithClient(client, "test_jobs"), mr
}

func TestNewQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	q, err := NewQueue("redis://"+mr.Addr()+"/0", "jobs")
	require.NoError(t, err)
	defer q.Close()

	_, err = NewQueue("not a url", "jobs")
	assert.Error(t, err)
}

func TestEnqueueDequeueComplete(t *testing.T) {
	ctx := context.Background()
	q, mr := newTestQueue(t)

	job, err := q.Enqueue(ctx, JobTypeContactSales, map[string]interface{}{"email": "jane@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)

	got, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, JobTypeContactSales, got.Type)
	assert.Equal(t, "jane@example.com", got.String("email"))
	assert.Equal(t, "", got.String("missing"))

	processing, err := mr.List("test_jobs:processing")
	require.NoError(t, err)
	assert.Len(t, processing, 1)

	require.NoError(t, q.CompleteJob(ctx, got))
	assert.Equal(t, int64(0), q.Client().LLen(ctx, "test_jobs:processing").Val())
}

func TestDequeue_Empty(t *testing.T) {
	q, _ := newTestQueue(t)
	job, err := q.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestFailJob_SchedulesRetry(t *testing.T) {
	ctx := context.Background()
	q, mr := newTestQueue(t)
	now := time.Unix(1_700_000_000, 0)
	q.now = func() time.Time { return now }

	_, err := q.Enqueue(ctx, JobTypeContactSales, map[string]interface{}{"email": "a@example.com"})
	require.NoError(t, err)
	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)

	require.NoError(t, q.FailJob(ctx, job, errors.New("smtp down")))
	assert.Equal(t, int64(0), q.Client().LLen(ctx, "test_jobs:processing").Val())

	members, err := mr.ZMembers("test_jobs:delayed")
	require.NoError(t, err)
	require.Len(t, members, 1)

	moved, err := q.ProcessDelayedJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, moved, "retry is not due yet")

	q.now = func() time.Time { return now.Add(RetryDelay(1)) }
	moved, err = q.ProcessDelayedJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	again, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, job.ID, again.ID)
	assert.Equal(t, 1, again.RetryCount)
	assert.Equal(t, "smtp down", again.String("last_error"))
}

func TestProcessDelayedJobs_FailedPushKeepsJobScheduled(t *testing.T) {
	ctx := context.Background()
	q, mr := newTestQueue(t)
	now := time.Unix(1_700_000_000, 0)
	q.now = func() time.Time { return now }

	payload := `{"id":"job-1","type":"contact_sales","data":{}}`
	require.NoError(t, q.Client().ZAdd(ctx, "test_jobs:delayed", &redis.Z{
		Score:  float64(now.Add(-time.Second).Unix()),
		Member: payload,
	}).Err())

	// A key of the wrong type makes RPUSH fail inside the move.
	require.NoError(t, mr.Set("test_jobs", "not-a-list"))

	moved, err := q.ProcessDelayedJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, moved)

	members, err := mr.ZMembers("test_jobs:delayed")
	require.NoError(t, err)
	assert.Equal(t, []string{payload}, members, "job must survive a failed push")

	mr.Del("test_jobs")
	moved, err = q.ProcessDelayedJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)
	assert.Zero(t, q.Client().ZCard(ctx, "test_jobs:delayed").Val())

	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "job-1", job.ID)

	moved, err = q.ProcessDelayedJobs(ctx)
	require.NoError(t, err)
	assert.Zero(t, moved)
}

func TestFailJob_ExhaustsRetries(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	_, err := q.Enqueue(ctx, JobTypeContactSales, map[string]interface{}{})
	require.NoError(t, err)
	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)

	job.RetryCount = MaxRetries
	require.NoError(t, q.FailJob(ctx, job, errors.New("permanent")))

	n, err := q.FailedLen(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 15*time.Second, RetryDelay(0))
	assert.Equal(t, 15*time.Second, RetryDelay(1))
	assert.Equal(t, 30*time.Second, RetryDelay(2))
	assert.Equal(t, 4*time.Minute, RetryDelay(5))
}
