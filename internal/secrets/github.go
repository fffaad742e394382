package secrets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v68/github"
)

// GitHubClient implements EnvironmentSecretsAPI against the real GitHub
// REST API.
type GitHubClient struct {
	client *github.Client

	// repoIDs caches repository ids; the environment secrets endpoints are
	// keyed by numeric id rather than owner/name.
	repoIDs map[Repo]int64
}

// NewGitHubClient builds a client authenticated with a personal access
// token or an Actions token.
func NewGitHubClient(token string) *GitHubClient {
	return &GitHubClient{
		client:  github.NewClient(nil).WithAuthToken(token),
		repoIDs: make(map[Repo]int64),
	}
}

func (g *GitHubClient) repoID(ctx context.Context, repo Repo) (int64, error) {
	if id, ok := g.repoIDs[repo]; ok {
		return id, nil
	}
	r, _, err := g.client.Repositories.Get(ctx, repo.Owner, repo.Name)
	if err != nil {
		return 0, mapAuthError(err)
	}
	g.repoIDs[repo] = r.GetID()
	return r.GetID(), nil
}

func (g *GitHubClient) EnsureEnvironment(ctx context.Context, repo Repo, envName string) error {
	// Create-or-update is idempotent on the GitHub side.
	_, _, err := g.client.Repositories.CreateUpdateEnvironment(ctx, repo.Owner, repo.Name, envName, &github.CreateUpdateEnvironment{})
	if err != nil {
		return mapAuthError(err)
	}
	return nil
}

func (g *GitHubClient) EnvironmentPublicKey(ctx context.Context, repo Repo, envName string) (PublicKey, error) {
	id, err := g.repoID(ctx, repo)
	if err != nil {
		return PublicKey{}, err
	}

	key, _, err := g.client.Actions.GetEnvPublicKey(ctx, int(id), envName)
	if err != nil {
		return PublicKey{}, mapAuthError(err)
	}

	raw, err := base64.StdEncoding.DecodeString(key.GetKey())
	if err != nil {
		return PublicKey{}, fmt.Errorf("malformed environment public key: %w", err)
	}
	if len(raw) != 32 {
		return PublicKey{}, fmt.Errorf("environment public key has unexpected length %d", len(raw))
	}

	pk := PublicKey{ID: key.GetKeyID()}
	copy(pk.Key[:], raw)
	return pk, nil
}

func (g *GitHubClient) PutSecret(ctx context.Context, repo Repo, envName, secretName, encryptedValue, keyID string) error {
	id, err := g.repoID(ctx, repo)
	if err != nil {
		return err
	}

	_, err = g.client.Actions.CreateOrUpdateEnvSecret(ctx, int(id), envName, &github.EncryptedSecret{
		Name:           secretName,
		KeyID:          keyID,
		EncryptedValue: encryptedValue,
	})
	if err != nil {
		return mapAuthError(err)
	}
	return nil
}

// mapAuthError surfaces invalid or under-scoped tokens as AuthError so the
// CLI can give the operator actionable guidance instead of retrying.
func mapAuthError(err error) error {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &AuthError{Cause: err}
		}
	}
	return err
}
