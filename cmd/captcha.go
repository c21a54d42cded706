package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newCaptchaCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "captcha",
		Short: "Fetch and solve image challenges",
	}

	cmd.AddCommand(newCaptchaFetchCmd(app))

	return cmd
}

func newCaptchaFetchCmd(app *app) *cobra.Command {
	var kind, out string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch a challenge and try to solve it automatically",
		RunE: func(cmd *cobra.Command, _ []string) error {
			challenge, err := app.resolver.Resolve(cmd.Context(), kind)
			if err != nil {
				return err
			}

			app.challenges.Put(*challenge)

			if out != "" {
				if err := os.WriteFile(out, challenge.Image, 0o644); err != nil {
					return fmt.Errorf("save challenge image: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Image saved to %s\n", out)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "key: %s\n", challenge.Key)
			if challenge.Solved() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "code: %s\n", challenge.Code)
				return nil
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "code: unsolved, read the image and pass --key/--code to the next command")
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "register", "Challenge kind")
	cmd.Flags().StringVar(&out, "out", "", "Write the challenge image to this file")

	return cmd
}
