package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/zepp-steps-cli/internal/application"
	"github.com/bnema/zepp-steps-cli/internal/domain"
)

func newScheduleCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage daily step schedules",
	}

	cmd.AddCommand(
		newScheduleCreateCmd(app),
		newScheduleShowCmd(app),
		newScheduleSetTargetCmd(app),
		newScheduleStatusCmd(app, "pause", "Pause a schedule", "paused", app.schedules.Pause),
		newScheduleStatusCmd(app, "resume", "Resume a paused schedule", "resumed", app.schedules.Resume),
		newScheduleStatusCmd(app, "cancel", "Cancel a schedule for good", "cancelled", app.schedules.Cancel),
	)

	return cmd
}

func newScheduleCreateCmd(app *app) *cobra.Command {
	var account string
	var target, start, end int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create or replace an account's schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := resolveAccountID(cmd.Context(), app, account)
			if err != nil {
				return err
			}

			schedule, err := app.schedules.Create(cmd.Context(), application.CreateScheduleCommand{
				AccountID:   id,
				TargetSteps: target,
				StartHour:   start,
				EndHour:     end,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Scheduled %d steps/day over %02d-%02dh for account %s\n",
				schedule.TargetSteps, schedule.StartHour, schedule.EndHour, id)
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Account ID, identity, or name")
	cmd.Flags().IntVar(&target, "target", 0, "Daily step target")
	cmd.Flags().IntVar(&start, "start", 0, "First delivery hour (default 8)")
	cmd.Flags().IntVar(&end, "end", 0, "Hour the window closes (default 21)")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func newScheduleShowCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <account>",
		Short: "Show an account's schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveAccountID(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}

			schedule, err := app.schedules.Get(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "account: %s\n", schedule.AccountID)
			_, _ = fmt.Fprintf(out, "status: %s\n", schedule.Status)
			_, _ = fmt.Fprintf(out, "target: %d steps over %02d-%02dh\n", schedule.TargetSteps, schedule.StartHour, schedule.EndHour)
			_, _ = fmt.Fprintf(out, "today: %d steps, %d/%d slots\n", schedule.CumulativeSteps, schedule.CompletedSlotIndex, schedule.Hours())
			if !schedule.LastRunAt.IsZero() {
				_, _ = fmt.Fprintf(out, "last run: %s\n", schedule.LastRunAt.Format("15:04 on 02 Jan"))
			}
			return nil
		},
	}
}

func newScheduleSetTargetCmd(app *app) *cobra.Command {
	var target int

	cmd := &cobra.Command{
		Use:   "set-target <account>",
		Short: "Change the daily target, keeping today's progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveAccountID(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}

			schedule, err := app.schedules.SetTarget(cmd.Context(), id, target)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Target for account %s is now %d steps/day\n", id, schedule.TargetSteps)
			return nil
		},
	}

	cmd.Flags().IntVar(&target, "target", 0, "New daily step target")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func newScheduleStatusCmd(app *app, use, short, done string, action func(ctx context.Context, id domain.AccountID) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <account>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveAccountID(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}

			if err := action(cmd.Context(), id); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Schedule for account %s %s\n", id, done)
			return nil
		},
	}
}
