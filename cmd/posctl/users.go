package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-pos/internal/app"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/users"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage staff accounts",
	}

	var name, email, password string
	createAdmin := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an Admin account",
		Long:  "Creates an Admin account. The password comes from --password or POSCTL_ADMIN_PASSWORD.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("POSCTL_ADMIN_PASSWORD")
			}
			if password == "" {
				return errors.New("a password is required")
			}
			return withServices(cmd, func(svc *app.Services) error {
				in := users.Input{Name: name, Email: email, Role: string(rbac.RoleAdmin)}
				u, err := svc.Users.Add(cmd.Context(), operator.UserID, in, password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", u.Email, u.ID)
				return nil
			})
		},
	}
	createAdmin.Flags().StringVar(&name, "name", "Administrator", "display name")
	createAdmin.Flags().StringVar(&email, "email", "", "login email")
	createAdmin.Flags().StringVar(&password, "password", "", "initial password")
	_ = createAdmin.MarkFlagRequired("email")

	cmd.AddCommand(createAdmin)
	return cmd
}
