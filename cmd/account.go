package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	statusadapter "github.com/bnema/zepp-steps-cli/internal/adapters/render/status"
	"github.com/bnema/zepp-steps-cli/internal/application"
)

const statusStaleAfter = 24 * time.Hour

func newAccountCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage stored accounts",
	}

	cmd.AddCommand(
		newAccountAddCmd(app),
		newAccountListCmd(app),
		newAccountShowCmd(app),
		newAccountRemoveCmd(app),
		newAccountRenameCmd(app),
		newAccountSetPasswordCmd(app),
	)

	return cmd
}

func newAccountAddCmd(app *app) *cobra.Command {
	var identity, password, name string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Store an existing account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			account, err := app.accounts.Add(cmd.Context(), application.AddAccountCommand{
				Name:     name,
				Identity: identity,
				Password: password,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added account %s (%s)\n", account.Identity.Masked(), account.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&identity, "identity", "", "Email address or phone number")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.Flags().StringVar(&name, "name", "", "Display name (defaults to the masked identity)")
	_ = cmd.MarkFlagRequired("identity")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newAccountListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored accounts with their schedules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			statuses, err := app.accounts.GetStatusAll(cmd.Context())
			if err != nil {
				return err
			}

			return writeStatuses(cmd, app, statuses)
		},
	}
}

func newAccountShowCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <account>",
		Short: "Show one account's state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveAccountID(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}

			status, err := app.accounts.GetStatus(cmd.Context(), id)
			if err != nil {
				return err
			}

			return writeStatuses(cmd, app, []application.Status{status})
		},
	}
}

func newAccountRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <account>",
		Short: "Remove an account's credential and session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveAccountID(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}

			if err := app.accounts.Remove(cmd.Context(), id); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed credentials for account %s\n", id)
			return nil
		},
	}
}

func newAccountRenameCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <account> <name>",
		Short: "Change an account's display name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveAccountID(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}

			return app.accounts.SetName(cmd.Context(), id, args[1])
		},
	}
}

func newAccountSetPasswordCmd(app *app) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "set-password <account>",
		Short: "Rotate an account's stored password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveAccountID(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}

			if err := app.accounts.SetPassword(cmd.Context(), id, password); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Password updated for account %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "New password")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func writeStatuses(cmd *cobra.Command, app *app, statuses []application.Status) error {
	rendered, err := app.statusRenderer(statuses, statusadapter.RenderOptions{
		Now:        app.now(),
		StaleAfter: statusStaleAfter,
	})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
