package cli

import (
	"github.com/spf13/cobra"

	"github.com/wickidcool/create-aws-project/internal/logging"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "create-aws-project",
	Short: "Multi-account AWS environment provisioning for generated projects",
	Long: `create-aws-project provisions the AWS side of a generated project:

  • One organization member account per environment (dev, stage, prod)
  • A least-privilege deployment IAM user with access keys in each account
  • GitHub Actions environment secrets holding those credentials

Every step is recorded in the project config file, so an interrupted run
can simply be re-run and resumes where it left off.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logLevel)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(secretsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}
