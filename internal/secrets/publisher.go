// Package secrets publishes issued deployment credentials to GitHub Actions
// environment secrets. Values are encrypted client-side with the
// environment's public key using libsodium's sealed-box scheme; GitHub
// never sees plaintext.
package secrets

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/nacl/box"

	"github.com/wickidcool/create-aws-project/internal/config"
)

// Secret names the deployment workflow reads.
const (
	SecretAccessKeyID     = "AWS_ACCESS_KEY_ID"
	SecretSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
)

// Repo is a GitHub repository coordinate.
type Repo struct {
	Owner string
	Name  string
}

// ParseRepo parses an "owner/name" coordinate.
func ParseRepo(s string) (Repo, error) {
	owner, name, ok := strings.Cut(s, "/")
	if !ok || owner == "" || name == "" {
		return Repo{}, fmt.Errorf("invalid repository %q (expected owner/name)", s)
	}
	return Repo{Owner: owner, Name: name}, nil
}

func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// PublicKey is an environment's secret-encryption key.
type PublicKey struct {
	ID  string
	Key [32]byte
}

// EnvironmentSecretsAPI is the slice of the GitHub API the publisher needs.
type EnvironmentSecretsAPI interface {
	EnsureEnvironment(ctx context.Context, repo Repo, envName string) error
	EnvironmentPublicKey(ctx context.Context, repo Repo, envName string) (PublicKey, error)
	PutSecret(ctx context.Context, repo Repo, envName, secretName, encryptedValue, keyID string) error
}

// AuthError means the GitHub token was rejected. Retrying cannot help; the
// operator has to fix the token.
type AuthError struct {
	Cause error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("GitHub rejected the access token: %v. "+
		"Generate a token with repo and environment scopes and export it as GITHUB_TOKEN", e.Cause)
}

func (e *AuthError) Unwrap() error { return e.Cause }

// Publisher pushes credentials into per-environment GitHub secrets.
type Publisher struct {
	API EnvironmentSecretsAPI
}

// Publish ensures the named environment exists in the repository and writes
// the credential pair under the fixed secret names.
func (p *Publisher) Publish(ctx context.Context, repo Repo, envName string, cred config.DeploymentCredential) error {
	if err := p.API.EnsureEnvironment(ctx, repo, envName); err != nil {
		return fmt.Errorf("failed to ensure environment %s in %s: %w", envName, repo, err)
	}

	key, err := p.API.EnvironmentPublicKey(ctx, repo, envName)
	if err != nil {
		return fmt.Errorf("failed to fetch public key for environment %s in %s: %w", envName, repo, err)
	}

	pairs := map[string]string{
		SecretAccessKeyID:     cred.AccessKeyID,
		SecretSecretAccessKey: cred.SecretAccessKey,
	}
	for _, name := range []string{SecretAccessKeyID, SecretSecretAccessKey} {
		sealed, err := seal(pairs[name], key.Key)
		if err != nil {
			return fmt.Errorf("failed to encrypt secret %s: %w", name, err)
		}
		if err := p.API.PutSecret(ctx, repo, envName, name, sealed, key.ID); err != nil {
			return fmt.Errorf("failed to publish secret %s to environment %s in %s: %w", name, envName, repo, err)
		}
	}
	return nil
}

// seal encrypts value for recipient using an anonymous sealed box and
// returns it base64-encoded, the format the GitHub secrets API expects.
func seal(value string, recipient [32]byte) (string, error) {
	sealed, err := box.SealAnonymous(nil, []byte(value), &recipient, rand.Reader)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}
