package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wickidcool/create-aws-project/internal/environment"
	"github.com/wickidcool/create-aws-project/internal/secrets"
)

var secretsRepo string

var secretsCmd = &cobra.Command{
	Use:   "secrets <environment>",
	Short: "Publish an environment's deployment credentials to GitHub Actions",
	Long: `Reads the deployment credentials provisioning issued for the given
environment and publishes them as GitHub Actions environment secrets,
encrypted against the environment's public key. Requires a GITHUB_TOKEN
with repo and environment scopes.`,
	Args: cobra.ExactArgs(1),
	RunE: runSecrets,
}

func init() {
	secretsCmd.Flags().StringVar(&secretsRepo, "repo", "", "GitHub repository (owner/name); defaults to the one recorded at init")
}

func runSecrets(cmd *cobra.Command, args []string) error {
	env, err := environment.Parse(args[0])
	if err != nil {
		return err
	}

	_, cfg, err := openStore()
	if err != nil {
		return err
	}

	cred, ok := cfg.DeploymentCredentials[env]
	if !ok {
		return fmt.Errorf("no deployment credentials recorded for %s. Run 'create-aws-project provision' first", env)
	}

	repoName := secretsRepo
	if repoName == "" {
		repoName = cfg.GitHubRepo
	}
	if repoName == "" {
		return fmt.Errorf("no GitHub repository configured; pass --repo owner/name or set it at init time")
	}
	repo, err := secrets.ParseRepo(repoName)
	if err != nil {
		return err
	}

	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return fmt.Errorf("GITHUB_TOKEN is not set; generate a token with repo and environment scopes")
	}

	publisher := &secrets.Publisher{API: secrets.NewGitHubClient(token)}
	if err := publisher.Publish(cmd.Context(), repo, string(env), cred); err != nil {
		return err
	}

	fmt.Printf("Published %s credentials to %s environment %q\n", cred.UserName, repo, env)
	return nil
}
