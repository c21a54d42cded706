package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/zepp-steps-cli/internal/domain"
)

func newStepsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "steps",
		Short: "Upload step telemetry",
	}

	cmd.AddCommand(newStepsSubmitCmd(app))

	return cmd
}

func newStepsSubmitCmd(app *app) *cobra.Command {
	var account string
	var steps int

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a step total for today",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := resolveAccountID(cmd.Context(), app, account)
			if err != nil {
				return err
			}
			if !domain.ValidSteps(steps) {
				return fmt.Errorf("steps must be between %d and %d", domain.MinSteps, domain.MaxSteps)
			}

			var submission domain.Submission
			err = runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Submitting steps...", func(ctx context.Context) error {
				var submitErr error
				submission, submitErr = app.submissions.Submit(ctx, id, steps)
				return submitErr
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Submitted %d steps for account %s (%s)\n", submission.Steps, id, submission.Message)
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Account ID, identity, or name")
	cmd.Flags().IntVar(&steps, "steps", 0, "Step total to submit")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("steps")

	return cmd
}
