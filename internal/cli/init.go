package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wickidcool/create-aws-project/internal/config"
)

var (
	initName      string
	initRegion    string
	initPlatforms []string
	initRepo      string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the project config file into the current directory",
	Long: `Creates the project config file that provisioning reads and writes.
The file records generation metadata (project name, region, platforms) and,
as provisioning progresses, account ids, deployment users, and credentials.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initName, "name", "", "Project name (required)")
	initCmd.Flags().StringVar(&initRegion, "region", "us-east-1", "AWS region for deployments")
	initCmd.Flags().StringSliceVar(&initPlatforms, "platform", nil, "Target platforms for the generated project")
	initCmd.Flags().StringVar(&initRepo, "github-repo", "", "GitHub repository (owner/name) for CI secrets")
	initCmd.MarkFlagRequired("name")
}

func runInit(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	path := filepath.Join(wd, config.DefaultFileName)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists; refusing to overwrite", path)
	}

	store := config.NewStore(path)
	if err := store.Write(&config.ProjectConfig{
		ProjectName: initName,
		AWSRegion:   initRegion,
		Platforms:   initPlatforms,
		GitHubRepo:  initRepo,
	}); err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", path)
	return nil
}
