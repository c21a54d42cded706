package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "zs",
		Short:         "Zepp step automation: accounts, schedules, submissions",
		Long:          "zs manages Zepp Life accounts, uploads step telemetry, and paces hourly deliveries toward a daily target from the terminal or as a daemon.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newAccountCmd(app),
		newRegisterCmd(app),
		newCaptchaCmd(app),
		newStepsCmd(app),
		newScheduleCmd(app),
		newBindCmd(app),
		newDaemonCmd(app),
	)

	return rootCmd
}
