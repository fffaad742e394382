package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wickidcool/create-aws-project/internal/environment"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what provisioning has completed so far",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	_, cfg, err := openStore()
	if err != nil {
		return err
	}

	fmt.Printf("Project: %s (region %s)\n", cfg.ProjectName, cfg.AWSRegion)
	if cfg.AdminUser != nil {
		fmt.Printf("Admin user: %s (key %s)\n", cfg.AdminUser.UserName, cfg.AdminUser.AccessKeyID)
	} else {
		fmt.Println("Admin user: not provisioned")
	}

	fmt.Println()
	for _, env := range environment.All() {
		fmt.Printf("%s:\n", env)
		if id, ok := cfg.AccountID(env); ok {
			fmt.Printf("  account:     %s\n", id)
		} else {
			fmt.Println("  account:     missing")
		}
		if user, ok := cfg.DeploymentUsers[env]; ok {
			fmt.Printf("  deploy user: %s\n", user)
		} else {
			fmt.Println("  deploy user: missing")
		}
		if cred, ok := cfg.DeploymentCredentials[env]; ok {
			fmt.Printf("  credentials: %s\n", cred.AccessKeyID)
		} else {
			fmt.Println("  credentials: missing")
		}
	}
	return nil
}
