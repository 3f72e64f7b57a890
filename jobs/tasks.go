package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail sends an arbitrary transactional email.
	TaskTypeSendEmail = "mail:send"
	// TaskBillMail emails the shop about a completed sale.
	TaskBillMail = "mail:bill"
	// TaskLowStockAlert emails the shop about a product running low.
	TaskLowStockAlert = "stock:low-alert"
	// TaskDailySales emails the end-of-day report.
	TaskDailySales = "report:daily-sales"
	// TaskWeeklyBackup snapshots the store and prunes old backups.
	TaskWeeklyBackup = "backup:weekly"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// BillMailPayload names the bill to announce.
type BillMailPayload struct {
	BillID string `json:"bill_id"`
}

// LowStockPayload names the product to alert on.
type LowStockPayload struct {
	ProductID string `json:"product_id"`
}

// DailySalesPayload optionally pins the report day (YYYY-MM-DD). Empty means today.
type DailySalesPayload struct {
	Date string `json:"date,omitempty"`
}

// BackupPayload carries scheduling metadata.
type BackupPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

func newTask(taskType string, payload any, opts ...asynq.Option) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body, append([]asynq.Option{asynq.Queue(QueueDefault)}, opts...)...), nil
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	return newTask(TaskTypeSendEmail, payload)
}

// NewBillMailTask constructs the new-sale email task.
func NewBillMailTask(billID string) (*asynq.Task, error) {
	return newTask(TaskBillMail, BillMailPayload{BillID: billID}, asynq.MaxRetry(5))
}

// NewLowStockTask constructs the low-stock alert task.
func NewLowStockTask(productID string) (*asynq.Task, error) {
	return newTask(TaskLowStockAlert, LowStockPayload{ProductID: productID}, asynq.MaxRetry(5))
}

// NewDailySalesTask constructs the daily report task. A zero day means "today" at run time.
func NewDailySalesTask(day time.Time) (*asynq.Task, error) {
	payload := DailySalesPayload{}
	if !day.IsZero() {
		payload.Date = day.Format(time.DateOnly)
	}
	return newTask(TaskDailySales, payload, asynq.MaxRetry(3))
}

// NewBackupTask constructs the backup task.
func NewBackupTask(at time.Time) (*asynq.Task, error) {
	return newTask(TaskWeeklyBackup, BackupPayload{ScheduledFor: at}, asynq.MaxRetry(2), asynq.Timeout(10*time.Minute))
}
