package jobs

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
)

// Schedule is a recurring task.
type Schedule struct {
	Name     string `json:"name"`
	Spec     string `json:"spec"`
	TaskType string `json:"task"`
}

// DefaultSchedules are the daily report at 20:00 and the Sunday backup at 02:00.
var DefaultSchedules = []Schedule{
	{Name: "daily sales report", Spec: "0 20 * * *", TaskType: TaskDailySales},
	{Name: "weekly backup", Spec: "0 2 * * 0", TaskType: TaskWeeklyBackup},
}

var specParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// NextRuns returns the next n activations of spec after from, evaluated in loc.
func NextRuns(spec string, loc *time.Location, from time.Time, n int) ([]time.Time, error) {
	sched, err := specParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("jobs: cron %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	out := make([]time.Time, 0, n)
	t := from.In(loc)
	for i := 0; i < n; i++ {
		t = sched.Next(t)
		out = append(out, t)
	}
	return out, nil
}

// CronRegistrations validates schedules and builds the scheduler entries.
func CronRegistrations(schedules []Schedule) ([]CronRegistration, error) {
	regs := make([]CronRegistration, 0, len(schedules))
	for _, s := range schedules {
		if _, err := specParser.Parse(s.Spec); err != nil {
			return nil, fmt.Errorf("jobs: schedule %q: %w", s.Name, err)
		}
		var (
			task *asynq.Task
			err  error
		)
		switch s.TaskType {
		case TaskDailySales:
			task, err = NewDailySalesTask(time.Time{})
		case TaskWeeklyBackup:
			task, err = NewBackupTask(time.Time{})
		default:
			return nil, fmt.Errorf("jobs: schedule %q: unsupported task %q", s.Name, s.TaskType)
		}
		if err != nil {
			return nil, err
		}
		regs = append(regs, CronRegistration{Spec: s.Spec, Task: task})
	}
	return regs, nil
}
