package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-pos/internal/app"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// operator is the principal recorded for changes made through posctl.
var operator = shared.Principal{UserID: "posctl", Name: "posctl", Role: string(rbac.RoleAdmin)}

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list, restore and prune backups",
	}

	run := &cobra.Command{
		Use:   "run",
		Short: "Snapshot the store now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, func(svc *app.Services) error {
				entry, err := svc.Backups.Run(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "backup %s written to %s (%d bytes)\n", entry.ID, entry.Key, entry.Size)
				return nil
			})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, func(svc *app.Services) error {
				entries, err := svc.Backups.List(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTIMESTAMP\tSIZE\tCOUNTS")
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", e.ID, e.Timestamp.Format(time.RFC3339), e.Size, formatCounts(e.Counts))
				}
				return tw.Flush()
			})
		},
	}

	restore := &cobra.Command{
		Use:   "restore <id>",
		Short: "Merge a backup into the live stores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(svc *app.Services) error {
				counts, err := svc.Backups.Restore(cmd.Context(), operator, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "restored %s: %s\n", args[0], formatCounts(counts))
				return nil
			})
		},
	}

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete backups older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, func(svc *app.Services) error {
				retention := olderThan
				if retention <= 0 {
					retention = svc.Config.BackupRetention
				}
				removed, err := svc.Backups.Prune(cmd.Context(), time.Now().Add(-retention))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "pruned %d backups older than %s\n", removed, retention)
				return nil
			})
		},
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 0, "retention window (defaults to BACKUP_RETENTION)")

	cmd.AddCommand(run, list, restore, prune)
	return cmd
}

func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}
