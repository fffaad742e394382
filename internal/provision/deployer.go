package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/wickidcool/create-aws-project/internal/config"
	"github.com/wickidcool/create-aws-project/internal/environment"
	"github.com/wickidcool/create-aws-project/internal/retry"
)

// deployPolicyDocument is the least-privilege policy for a deployment user:
// it may only assume the CDK bootstrap roles of its own account. The CDK
// roles carry the actual deployment permissions.
const deployPolicyDocument = `{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Effect": "Allow",
      "Action": "sts:AssumeRole",
      "Resource": "arn:aws:iam::%s:role/cdk-*"
    }
  ]
}`

// DeployProvisioner creates or adopts the per-environment deployment IAM
// user inside its member account, attaches the scoped deploy policy, and
// issues access keys.
type DeployProvisioner struct {
	Broker  *AccessBroker
	Factory ClientFactory
	Project string
	Retry   retry.Policy
	Events  EventSink
}

// Ensure provisions the deployment user for env inside accountID, reaching
// the account through the cross-account role chained from base credentials.
// Each sub-step persists before the next one runs.
func (p *DeployProvisioner) Ensure(ctx context.Context, store *config.Store, env environment.Environment, accountID string, base aws.CredentialsProvider) error {
	// Role propagation into a fresh account can lag, so assumption is
	// retried.
	creds, err := retry.Do(ctx, p.Retry, func() (aws.Credentials, error) {
		return p.Broker.Assume(ctx, base, accountID)
	})
	if err != nil {
		return err
	}
	client := p.Factory.IAM(StaticCredentials(creds))

	userName, err := p.ensureUser(ctx, client, env)
	if err != nil {
		p.Events.emit(Event{Stage: StageDeployUser, Status: StatusFailed, Environment: env, Err: err})
		return err
	}
	if _, err := store.Update(func(c *config.ProjectConfig) error {
		c.SetDeploymentUser(env, userName)
		return nil
	}); err != nil {
		return err
	}
	p.Events.emit(Event{Stage: StageDeployUser, Status: StatusCompleted, Environment: env, Detail: userName})

	if err := p.ensurePolicy(ctx, client, env, accountID, userName); err != nil {
		p.Events.emit(Event{Stage: StageDeployUser, Status: StatusFailed, Environment: env, Err: err})
		return err
	}
	if _, err := store.Update(func(c *config.ProjectConfig) error {
		c.SetDeploymentUser(env, userName)
		return nil
	}); err != nil {
		return err
	}

	return p.ensureCredentials(ctx, store, client, env, userName)
}

// ensureUser returns the deployment user name, creating the user if it does
// not exist. An existing user is adopted as-is: a partially completed prior
// run is exactly this situation.
func (p *DeployProvisioner) ensureUser(ctx context.Context, client IAMAPI, env environment.Environment) (string, error) {
	userName := env.DeployUserName(p.Project)

	_, err := client.GetUser(ctx, &iam.GetUserInput{UserName: aws.String(userName)})
	if err == nil {
		return userName, nil
	}
	if !isNoSuchEntity(err) {
		return "", fmt.Errorf("failed to look up IAM user %s: %w", userName, err)
	}

	_, err = client.CreateUser(ctx, &iam.CreateUserInput{
		UserName: aws.String(userName),
		Path:     aws.String(iamUserPath),
		Tags:     managedTags(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create IAM user %s: %w", userName, err)
	}
	return userName, nil
}

// ensurePolicy creates the deploy policy under its deterministic name and
// attaches it. Re-runs reuse the existing policy by its deterministic ARN
// instead of creating duplicates.
func (p *DeployProvisioner) ensurePolicy(ctx context.Context, client IAMAPI, env environment.Environment, accountID, userName string) error {
	policyName := env.DeployPolicyName(p.Project)
	policyARN := fmt.Sprintf("arn:aws:iam::%s:policy/%s", accountID, policyName)

	out, err := client.CreatePolicy(ctx, &iam.CreatePolicyInput{
		PolicyName:     aws.String(policyName),
		PolicyDocument: aws.String(fmt.Sprintf(deployPolicyDocument, accountID)),
	})
	switch {
	case err == nil:
		policyARN = aws.ToString(out.Policy.Arn)
	case isEntityAlreadyExists(err):
		// Reuse by deterministic ARN.
	default:
		return fmt.Errorf("failed to create policy %s: %w", policyName, err)
	}

	_, err = client.AttachUserPolicy(ctx, &iam.AttachUserPolicyInput{
		UserName:  aws.String(userName),
		PolicyArn: aws.String(policyARN),
	})
	if err != nil {
		return fmt.Errorf("failed to attach policy %s to user %s: %w", policyName, userName, err)
	}
	return nil
}

// ensureCredentials issues an access key unless one is already recorded for
// this environment. Unlike the admin user, the deployment user is owned
// exclusively by this tool, so re-keying it carries no operator risk; the
// skip exists purely for idempotence.
func (p *DeployProvisioner) ensureCredentials(ctx context.Context, store *config.Store, client IAMAPI, env environment.Environment, userName string) error {
	cfg, err := store.Read()
	if err != nil {
		return err
	}
	if _, ok := cfg.DeploymentCredentials[env]; ok {
		p.Events.emit(Event{Stage: StageCredentials, Status: StatusSkipped, Environment: env, Detail: userName})
		return nil
	}

	out, err := retry.Do(ctx, p.Retry, func() (*iam.CreateAccessKeyOutput, error) {
		return client.CreateAccessKey(ctx, &iam.CreateAccessKeyInput{UserName: aws.String(userName)})
	})
	if err != nil {
		p.Events.emit(Event{Stage: StageCredentials, Status: StatusFailed, Environment: env, Err: err})
		return fmt.Errorf("failed to create access key for IAM user %s: %w", userName, err)
	}

	if _, err := store.Update(func(c *config.ProjectConfig) error {
		c.SetDeploymentCredential(env, config.DeploymentCredential{
			UserName:        userName,
			AccessKeyID:     aws.ToString(out.AccessKey.AccessKeyId),
			SecretAccessKey: aws.ToString(out.AccessKey.SecretAccessKey),
		})
		return nil
	}); err != nil {
		return err
	}
	p.Events.emit(Event{Stage: StageCredentials, Status: StatusCompleted, Environment: env, Detail: userName})
	return nil
}

func isEntityAlreadyExists(err error) bool {
	var eae *iamtypes.EntityAlreadyExistsException
	return errors.As(err, &eae)
}
