package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/jobs"
)

type fakeEnqueuer struct {
	tasks  []*asynq.Task
	closed bool
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "t-1", Type: task.Type(), Queue: jobs.QueueDefault}, nil
}

func (f *fakeEnqueuer) Close() error {
	f.closed = true
	return nil
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f *fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return f.info, f.err }

func (f *fakeInspector) ListScheduledTasks(string, ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	return nil, f.err
}

func (f *fakeInspector) Close() error { return nil }

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTriggerBuildsTasks(t *testing.T) {
	q := &fakeEnqueuer{}
	cli := &JobsCLI{client: q}
	ctx := context.Background()

	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	info, err := cli.Trigger(ctx, TriggerRequest{Name: triggerDailySales, Day: day})
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskDailySales, info.Type)

	var payload jobs.DailySalesPayload
	require.NoError(t, json.Unmarshal(q.tasks[0].Payload(), &payload))
	assert.Equal(t, "2026-06-01", payload.Date)

	_, err = cli.Trigger(ctx, TriggerRequest{Name: triggerBill, Arg: "bill-9"})
	require.NoError(t, err)
	var bill jobs.BillMailPayload
	require.NoError(t, json.Unmarshal(q.tasks[1].Payload(), &bill))
	assert.Equal(t, "bill-9", bill.BillID)

	_, err = cli.Trigger(ctx, TriggerRequest{Name: triggerLowStock})
	require.Error(t, err)
	_, err = cli.Trigger(ctx, TriggerRequest{Name: "reindex"})
	require.Error(t, err)
	assert.Len(t, q.tasks, 2)

	require.NoError(t, cli.Close())
	assert.True(t, q.closed)
}

func TestInspectQueue(t *testing.T) {
	cli := &JobsCLI{inspector: &fakeInspector{info: &asynq.QueueInfo{Pending: 4, Retry: 1}}}
	stats, err := cli.InspectQueue()
	require.NoError(t, err)
	assert.Equal(t, QueueStats{Queue: jobs.QueueDefault, Pending: 4, Retry: 1}, stats)

	failing := &JobsCLI{inspector: &fakeInspector{err: errors.New("redis down")}}
	_, err = failing.InspectQueue()
	require.Error(t, err)

	_, err = (&JobsCLI{}).ListScheduled(5)
	require.Error(t, err)
}

func TestRedisAddrPrefersFlag(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis.internal:6379")
	addr, err := redisAddr("")
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6379", addr)

	addr, err = redisAddr("localhost:6380")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6380", addr)
}

func TestScheduleCommand(t *testing.T) {
	out, err := run(t, "jobs", "schedule", "--tz", "UTC", "--from", "2026-06-06T21:00:00Z", "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "daily sales report")
	assert.Contains(t, out, "2026-06-07T20:00:00Z")
	assert.Contains(t, out, "2026-06-07T02:00:00Z")

	_, err = run(t, "jobs", "schedule", "--tz", "Nowhere/Else")
	require.Error(t, err)
}

func TestBarcodeCommands(t *testing.T) {
	out, err := run(t, "barcode", "generate", "-n", "3")
	require.NoError(t, err)
	lines := strings.Fields(out)
	require.Len(t, lines, 3)
	for _, code := range lines {
		assert.Regexp(t, regexp.MustCompile(`^[1-9]\d{12}$`), code)
	}

	out, err = run(t, "barcode", "svg", "8901234567890")
	require.NoError(t, err)
	assert.Contains(t, out, "<svg")
	assert.Contains(t, out, "8901234567890")

	_, err = run(t, "barcode", "svg", "café")
	require.Error(t, err)
}

func TestTriggerRejectsBadDate(t *testing.T) {
	_, err := run(t, "jobs", "trigger", "daily-sales", "--date", "07/06/2026", "--redis", "127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--date")
}

func TestFormatCounts(t *testing.T) {
	assert.Equal(t, "bills=2 products=5 shop=1", formatCounts(map[string]int{"shop": 1, "products": 5, "bills": 2}))
	assert.Equal(t, "", formatCounts(nil))
}
