package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wickidcool/create-aws-project/internal/environment"
	"github.com/wickidcool/create-aws-project/internal/provision"
)

var provisionEmails map[string]string

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Provision accounts, users, and credentials for every environment",
	Long: `Runs the full provisioning sequence against the project in the current
directory. The run is resumable: every completed step is persisted, and a
re-run skips everything that already exists.`,
	RunE: runProvision,
}

func init() {
	provisionCmd.Flags().StringToStringVar(&provisionEmails, "email", nil,
		"Root email per environment for accounts that need creating (format: env=address)")
}

func runProvision(cmd *cobra.Command, args []string) error {
	store, cfg, err := openStore()
	if err != nil {
		return err
	}

	if err := store.Lock(); err != nil {
		return err
	}
	defer store.Unlock()

	ctx := cmd.Context()
	factory, err := provision.LoadAWSClientFactory(ctx, cfg.AWSRegion)
	if err != nil {
		return fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	orch := &provision.Orchestrator{
		Project: cfg.ProjectName,
		Store:   store,
		Factory: factory,
		Emails:  emailProvider(cfg.ProjectName),
		Events:  reportEvent,
	}

	if err := orch.Run(ctx); err != nil {
		return fmt.Errorf("provisioning failed: %w", err)
	}

	fmt.Println("\nProvisioning complete. Run 'create-aws-project secrets <env>' to publish CI credentials.")
	return nil
}

// emailProvider resolves root emails from the --email flag, falling back to
// an interactive prompt for accounts that are actually missing.
func emailProvider(project string) provision.EmailProvider {
	return func(env environment.Environment) (string, error) {
		if email, ok := provisionEmails[string(env)]; ok {
			return email, nil
		}
		fmt.Printf("Root email for the %s account: ", env.AccountName(project))
		var email string
		if _, err := fmt.Scanln(&email); err != nil {
			return "", fmt.Errorf("failed to read email for %s: %w", env, err)
		}
		email = strings.TrimSpace(email)
		if email == "" {
			return "", fmt.Errorf("no email supplied for %s", env)
		}
		return email, nil
	}
}
