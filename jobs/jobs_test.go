package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/backup"
	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
	"github.com/odyssey-erp/odyssey-pos/internal/notify"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/mailer"
)

type fakeNotifier struct {
	bills []string
	stock []string
	days  []time.Time
	err   error
}

func (f *fakeNotifier) SendBill(_ context.Context, id string) error {
	f.bills = append(f.bills, id)
	return f.err
}

func (f *fakeNotifier) SendLowStock(_ context.Context, id string) error {
	f.stock = append(f.stock, id)
	return f.err
}

func (f *fakeNotifier) SendDailyReport(_ context.Context, day time.Time) error {
	f.days = append(f.days, day)
	return f.err
}

type fakeBackups struct {
	cutoff time.Time
}

func (f *fakeBackups) Run(context.Context) (backup.Entry, error) {
	return backup.Entry{ID: "bk1"}, nil
}

func (f *fakeBackups) Prune(_ context.Context, cutoff time.Time) (int, error) {
	f.cutoff = cutoff
	return 2, nil
}

type fakeMail struct{ sent []mailer.Message }

func (f *fakeMail) Send(_ context.Context, msg mailer.Message) error {
	f.sent = append(f.sent, msg)
	return nil
}

var ist = time.FixedZone("IST", 5*3600+1800)

func newHandlers() (*Handlers, *fakeNotifier) {
	n := &fakeNotifier{}
	h := &Handlers{
		Notifier: n,
		Location: ist,
		Metrics:  jobmetrics.NewMetrics(prometheus.NewRegistry()),
		clock:    func() time.Time { return time.Date(2026, 6, 7, 14, 30, 0, 0, time.UTC) },
	}
	return h, n
}

func TestInvalidPayloadsSkipRetry(t *testing.T) {
	h, _ := newHandlers()
	for _, th := range h.TaskHandlers() {
		err := th.Handler(context.Background(), asynq.NewTask(th.Type, []byte("{not json")))
		require.ErrorIs(t, err, asynq.SkipRetry, th.Type)
	}
	err := h.HandleBillMail(context.Background(), asynq.NewTask(TaskBillMail, []byte(`{}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestBillAndLowStockTasks(t *testing.T) {
	h, n := newHandlers()
	task, err := NewBillMailTask("b-1")
	require.NoError(t, err)
	require.NoError(t, h.HandleBillMail(context.Background(), task))

	task, err = NewLowStockTask("p-1")
	require.NoError(t, err)
	require.NoError(t, h.HandleLowStock(context.Background(), task))

	assert.Equal(t, []string{"b-1"}, n.bills)
	assert.Equal(t, []string{"p-1"}, n.stock)
}

func TestMissingShopEmailIsNotAFailure(t *testing.T) {
	h, n := newHandlers()
	n.err = notify.ErrNoRecipient
	task, _ := NewLowStockTask("p-1")
	require.NoError(t, h.HandleLowStock(context.Background(), task))

	n.err = mailer.ErrNotConfigured
	require.ErrorIs(t, h.HandleLowStock(context.Background(), task), asynq.SkipRetry)

	n.err = errors.New("smtp timeout")
	err := h.HandleLowStock(context.Background(), task)
	require.Error(t, err)
	require.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestDailySalesUsesReportTimezone(t *testing.T) {
	h, n := newHandlers()
	task, err := NewDailySalesTask(time.Time{})
	require.NoError(t, err)
	require.NoError(t, h.HandleDailySales(context.Background(), task))
	require.Len(t, n.days, 1)
	assert.Equal(t, "2026-06-07", n.days[0].Format(time.DateOnly))
	assert.Equal(t, ist, n.days[0].Location())

	task, err = NewDailySalesTask(time.Date(2026, 6, 1, 0, 0, 0, 0, ist))
	require.NoError(t, err)
	require.NoError(t, h.HandleDailySales(context.Background(), task))
	assert.Equal(t, "2026-06-01", n.days[1].Format(time.DateOnly))

	bad := asynq.NewTask(TaskDailySales, []byte(`{"date":"06/01/2026"}`))
	require.ErrorIs(t, h.HandleDailySales(context.Background(), bad), asynq.SkipRetry)
}

func TestBackupPrunesWithRetention(t *testing.T) {
	h, _ := newHandlers()
	b := &fakeBackups{}
	h.Backups = b
	task, err := NewBackupTask(time.Time{})
	require.NoError(t, err)
	require.NoError(t, h.HandleBackup(context.Background(), task))
	assert.True(t, h.clock().Add(-backup.DefaultRetention).Equal(b.cutoff))

	h.Backups = nil
	require.ErrorIs(t, h.HandleBackup(context.Background(), task), asynq.SkipRetry)
}

func TestSendEmailTask(t *testing.T) {
	h, _ := newHandlers()
	task, err := NewSendEmailTask(SendEmailPayload{To: "a@b.test", Subject: "Hi", Body: "<p>x</p>"})
	require.NoError(t, err)
	require.ErrorIs(t, h.HandleSendEmail(context.Background(), task), asynq.SkipRetry)

	mail := &fakeMail{}
	h.Mail = mail
	require.NoError(t, h.HandleSendEmail(context.Background(), task))
	require.Len(t, mail.sent, 1)
	assert.Equal(t, []string{"a@b.test"}, mail.sent[0].To)
}

func TestSchedules(t *testing.T) {
	regs, err := CronRegistrations(DefaultSchedules)
	require.NoError(t, err)
	require.Len(t, regs, 2)
	assert.Equal(t, TaskDailySales, regs[0].Task.Type())

	from := time.Date(2026, 6, 7, 21, 0, 0, 0, ist)
	runs, err := NextRuns("0 20 * * *", ist, from, 2)
	require.NoError(t, err)
	assert.True(t, time.Date(2026, 6, 8, 20, 0, 0, 0, ist).Equal(runs[0]), runs[0])
	assert.True(t, time.Date(2026, 6, 9, 20, 0, 0, 0, ist).Equal(runs[1]), runs[1])

	runs, err = NextRuns("0 2 * * 0", ist, from, 1)
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, runs[0].Weekday())

	_, err = CronRegistrations([]Schedule{{Name: "bad", Spec: "every day", TaskType: TaskDailySales}})
	require.Error(t, err)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }

func TestHealthEndpoint(t *testing.T) {
	h := NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3}}, nil, ist)
	rec := httptest.NewRecorder()
	h.health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Pending)
	assert.Len(t, body.Schedules, 2)

	h = NewHandler(stubInspector{err: errors.New("redis down")}, nil, ist)
	rec = httptest.NewRecorder()
	h.health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
