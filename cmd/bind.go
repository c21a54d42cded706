package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bnema/zepp-steps-cli/internal/adapters/render/qr"
)

func newBindCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bind",
		Short: "Pair an account with the messaging platform",
	}

	cmd.AddCommand(newBindTicketCmd(app), newBindStatusCmd(app))

	return cmd
}

func newBindTicketCmd(app *app) *cobra.Command {
	var showQR bool
	var out string

	cmd := &cobra.Command{
		Use:   "ticket <account>",
		Short: "Fetch a pairing ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveAccountID(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}

			ticket, err := app.submissions.BindTicket(cmd.Context(), id)
			if err != nil {
				return err
			}

			if out != "" {
				png, err := qr.Generate(ticket, qr.DefaultSize)
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, png, 0o644); err != nil {
					return fmt.Errorf("save qr code: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "QR code saved to %s\n", out)
			}

			if showQR {
				rendered, err := qr.Terminal(ticket)
				if err != nil {
					// The raw ticket still lets the operator pair by hand.
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "qr rendering failed: %v\n", err)
				} else {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), rendered)
				}
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "ticket: %s\n", ticket)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showQR, "qr", false, "Render the ticket as a QR code in the terminal")
	cmd.Flags().StringVar(&out, "out", "", "Save the ticket QR code as a PNG file")

	return cmd
}

func newBindStatusCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <account>",
		Short: "Check whether pairing completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveAccountID(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}

			bound, err := app.submissions.RefreshBindStatus(cmd.Context(), id)
			if err != nil {
				return err
			}

			if bound {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Account %s is paired\n", id)
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Account %s is not paired yet\n", id)
			}
			return nil
		},
	}
}
