package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bnema/zepp-steps-cli/internal/application"
)

func newRegisterCmd(app *app) *cobra.Command {
	var identity, password, name, key, code, imageOut string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new remote account and store it",
		Long:  "register creates the account on the remote service, which requires a solved image challenge. Without --key/--code a challenge is fetched and run through the recognizer first; if it stays unsolved, the image is saved so the code can be supplied manually.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if key == "" && code == "" {
				challenge, err := app.resolver.Resolve(cmd.Context(), "register")
				if err != nil {
					return err
				}

				if !challenge.Solved() {
					app.challenges.Put(*challenge)
					if err := os.WriteFile(imageOut, challenge.Image, 0o644); err != nil {
						return fmt.Errorf("save challenge image: %w", err)
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(),
						"Challenge could not be solved automatically.\nImage saved to %s, key %s.\nRe-run with --key %s --code <code from image>.\n",
						imageOut, challenge.Key, challenge.Key)
					return nil
				}

				key, code = challenge.Key, challenge.Code
			}
			if key == "" || code == "" {
				return fmt.Errorf("--key and --code must be supplied together")
			}
			app.challenges.Take(key)

			account, err := app.accounts.Register(cmd.Context(), application.RegisterAccountCommand{
				Name:          name,
				Identity:      identity,
				Password:      password,
				ChallengeKey:  key,
				ChallengeCode: code,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Registered account %s (%s)\n", account.Identity.Masked(), account.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&identity, "identity", "", "Email address or phone number")
	cmd.Flags().StringVar(&password, "password", "", "Password for the new account")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&key, "key", "", "Challenge key from a previous captcha fetch")
	cmd.Flags().StringVar(&code, "code", "", "Solved challenge code")
	cmd.Flags().StringVar(&imageOut, "image-out", "captcha.png", "Where to save an unsolved challenge image")
	_ = cmd.MarkFlagRequired("identity")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
