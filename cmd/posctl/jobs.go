package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hibiken/asynq"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-pos/jobs"
)

// Trigger names accepted by "posctl jobs trigger".
const (
	triggerDailySales = "daily-sales"
	triggerBackup     = "backup"
	triggerBill       = "bill"
	triggerLowStock   = "low-stock"
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

type queueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
	Close() error
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    enqueuer
	inspector queueInspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) *JobsCLI {
	opt := asynq.RedisClientOpt{Addr: redisAddr}
	return &JobsCLI{client: asynq.NewClient(opt), inspector: asynq.NewInspector(opt)}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var errs []error
	if c.inspector != nil {
		errs = append(errs, c.inspector.Close())
	}
	if c.client != nil {
		errs = append(errs, c.client.Close())
	}
	return errors.Join(errs...)
}

// TriggerRequest selects a job and its argument.
type TriggerRequest struct {
	Name string
	// Arg is the bill id or product id for bill and low-stock.
	Arg string
	// Day pins the daily sales report; zero means today at run time.
	Day time.Time
}

// Trigger enqueues a supported job.
func (c *JobsCLI) Trigger(ctx context.Context, req TriggerRequest) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	var (
		task *asynq.Task
		err  error
	)
	switch req.Name {
	case triggerDailySales:
		task, err = jobs.NewDailySalesTask(req.Day)
	case triggerBackup:
		task, err = jobs.NewBackupTask(time.Now().UTC())
	case triggerBill:
		if req.Arg == "" {
			return nil, errors.New("jobs cli: bill id required")
		}
		task, err = jobs.NewBillMailTask(req.Arg)
	case triggerLowStock:
		if req.Arg == "" {
			return nil, errors.New("jobs cli: product id required")
		}
		task, err = jobs.NewLowStockTask(req.Arg)
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", req.Name)
	}
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task)
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
	Archived  int
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue() (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}

// ListScheduled returns scheduled task infos for observability.
func (c *JobsCLI) ListScheduled(size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}

type redisEnv struct {
	Addr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
}

// redisAddr prefers the flag and falls back to REDIS_ADDR so job commands work without the full config.
func redisAddr(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	var env redisEnv
	if err := envconfig.Process("", &env); err != nil {
		return "", err
	}
	return env.Addr, nil
}

func newJobsCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Trigger and inspect background jobs",
	}
	cmd.PersistentFlags().StringVar(&addr, "redis", "", "Redis address (defaults to REDIS_ADDR)")

	open := func() (*JobsCLI, error) {
		resolved, err := redisAddr(addr)
		if err != nil {
			return nil, err
		}
		return NewJobsCLI(resolved), nil
	}

	var date string
	trigger := &cobra.Command{
		Use:       "trigger <daily-sales|backup|bill|low-stock> [id]",
		Short:     "Enqueue a job now",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{triggerDailySales, triggerBackup, triggerBill, triggerLowStock},
		RunE: func(cmd *cobra.Command, args []string) error {
			req := TriggerRequest{Name: args[0]}
			if len(args) > 1 {
				req.Arg = strings.TrimSpace(args[1])
			}
			if date != "" {
				day, err := time.Parse(time.DateOnly, date)
				if err != nil {
					return fmt.Errorf("--date: %w", err)
				}
				req.Day = day
			}
			cli, err := open()
			if err != nil {
				return err
			}
			defer cli.Close()
			info, err := cli.Trigger(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
	trigger.Flags().StringVar(&date, "date", "", "report day for daily-sales (YYYY-MM-DD)")

	inspect := &cobra.Command{
		Use:   "inspect",
		Short: "Show queue counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cli, err := open()
			if err != nil {
				return err
			}
			defer cli.Close()
			stats, err := cli.InspectQueue()
			if err != nil {
				return err
			}
			printStats(cmd, stats)
			return nil
		},
	}

	var size int
	scheduled := &cobra.Command{
		Use:   "scheduled",
		Short: "List tasks waiting for their process time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cli, err := open()
			if err != nil {
				return err
			}
			defer cli.Close()
			tasks, err := cli.ListScheduled(size)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tNEXT")
			for _, t := range tasks {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", t.ID, t.Type, t.NextProcessAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	scheduled.Flags().IntVar(&size, "size", 10, "page size")

	cmd.AddCommand(trigger, inspect, scheduled, newScheduleCmd())
	return cmd
}

func printStats(cmd *cobra.Command, stats QueueStats) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tARCHIVED")
	fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
	_ = tw.Flush()
}

// newScheduleCmd previews cron activations without touching Redis.
func newScheduleCmd() *cobra.Command {
	var (
		count int
		zone  string
		from  string
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Preview the next runs of the recurring jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := time.LoadLocation(zone)
			if err != nil {
				return fmt.Errorf("--tz: %w", err)
			}
			start := time.Now()
			if from != "" {
				if start, err = time.Parse(time.RFC3339, from); err != nil {
					return fmt.Errorf("--from: %w", err)
				}
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSPEC\tNEXT")
			for _, s := range jobs.DefaultSchedules {
				runs, err := jobs.NextRuns(s.Spec, loc, start, count)
				if err != nil {
					return err
				}
				for _, at := range runs {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, s.Spec, at.Format(time.RFC3339))
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 3, "runs to show per schedule")
	cmd.Flags().StringVar(&zone, "tz", "Asia/Kolkata", "timezone the schedules run in")
	cmd.Flags().StringVar(&from, "from", "", "preview start (RFC3339), defaults to now")
	return cmd
}
