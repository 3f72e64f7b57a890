// Command posctl is the operator CLI for the POS backend.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-pos/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "posctl",
		Short:         "posctl manages the POS backend",
		Long:          "posctl triggers background jobs, manages backups, moves data in and out of the store and bootstraps admin accounts.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.AddCommand(newJobsCmd())
	root.AddCommand(newBackupCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newImportCmd())
	root.AddCommand(newBarcodeCmd())
	root.AddCommand(newUsersCmd())
	return root
}

// bootServices loads configuration and wires the same object graph the server uses.
func bootServices(ctx context.Context) (*app.Services, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := app.NewLogger(cfg).With("component", "posctl")
	return app.Build(ctx, cfg, logger)
}

// withServices runs fn against a freshly built object graph and closes it afterwards.
func withServices(cmd *cobra.Command, fn func(svc *app.Services) error) error {
	svc, err := bootServices(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(svc)
}
