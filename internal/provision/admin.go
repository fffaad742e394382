package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/wickidcool/create-aws-project/internal/config"
	"github.com/wickidcool/create-aws-project/internal/retry"
)

const (
	// ManagedByTagKey and ManagedByTagValue mark IAM resources created by
	// this tool. Adoption of a pre-existing resource requires this tag.
	ManagedByTagKey   = "ManagedBy"
	ManagedByTagValue = "create-aws-project"

	// adminPolicyARN is the AWS managed policy attached to the admin user.
	adminPolicyARN = "arn:aws:iam::aws:policy/AdministratorAccess"

	iamUserPath = "/create-aws-project/"
)

// AdminUserName returns the management-account admin user name for project.
func AdminUserName(project string) string {
	return project + "-admin"
}

// AdminCredentials is the result of admin provisioning. The secret key
// lives only in this struct for the duration of the run; persistence keeps
// just the user name and access key id.
type AdminCredentials struct {
	UserName        string
	AccessKeyID     string
	SecretAccessKey string
	Adopted         bool
}

// Provider returns a credentials provider backed by the admin access key,
// for chaining privileged cross-account calls.
func (c *AdminCredentials) Provider() aws.CredentialsProvider {
	return StaticCredentials(aws.Credentials{
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
	})
}

// AdminProvisioner creates or adopts the management-account admin IAM user.
// It is entered only when the caller is the root identity and no admin user
// is recorded yet.
type AdminProvisioner struct {
	IAM     IAMAPI
	Project string
	Retry   retry.Policy
	Events  EventSink
}

// Ensure looks up the {project}-admin user, creating it if absent or
// adopting it if this tool owns it, and issues an access key. The user name
// and key id are persisted before returning so a crash immediately after
// cannot orphan an unrecorded admin user.
func (p *AdminProvisioner) Ensure(ctx context.Context, store *config.Store) (*AdminCredentials, error) {
	userName := AdminUserName(p.Project)
	p.Events.emit(Event{Stage: StageAdminUser, Status: StatusStarted, Detail: userName})

	existing, err := p.IAM.GetUser(ctx, &iam.GetUserInput{UserName: aws.String(userName)})

	var creds *AdminCredentials
	switch {
	case err == nil:
		creds, err = p.adopt(ctx, existing.User)
	case isNoSuchEntity(err):
		creds, err = p.create(ctx, userName)
	default:
		err = fmt.Errorf("failed to look up IAM user %s: %w", userName, err)
	}
	if err != nil {
		p.Events.emit(Event{Stage: StageAdminUser, Status: StatusFailed, Err: err})
		return nil, err
	}

	if _, err := store.Update(func(cfg *config.ProjectConfig) error {
		cfg.AdminUser = &config.AdminUser{UserName: creds.UserName, AccessKeyID: creds.AccessKeyID}
		return nil
	}); err != nil {
		return nil, err
	}

	p.Events.emit(Event{Stage: StageAdminUser, Status: StatusCompleted, Detail: userName})
	return creds, nil
}

func (p *AdminProvisioner) create(ctx context.Context, userName string) (*AdminCredentials, error) {
	_, err := p.IAM.CreateUser(ctx, &iam.CreateUserInput{
		UserName: aws.String(userName),
		Path:     aws.String(iamUserPath),
		Tags:     managedTags(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create IAM user %s: %w", userName, err)
	}

	_, err = p.IAM.AttachUserPolicy(ctx, &iam.AttachUserPolicyInput{
		UserName:  aws.String(userName),
		PolicyArn: aws.String(adminPolicyARN),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to attach policy to IAM user %s: %w", userName, err)
	}

	key, err := p.issueKey(ctx, userName)
	if err != nil {
		return nil, err
	}
	key.Adopted = false
	return key, nil
}

// adopt takes over a pre-existing admin user. It must carry this tool's
// ManagedBy tag and have zero access keys: AWS never returns a secret key
// after creation, so an existing key is unusable to us.
func (p *AdminProvisioner) adopt(ctx context.Context, user *iamtypes.User) (*AdminCredentials, error) {
	userName := aws.ToString(user.UserName)

	tags, err := p.IAM.ListUserTags(ctx, &iam.ListUserTagsInput{UserName: aws.String(userName)})
	if err != nil {
		return nil, fmt.Errorf("failed to list tags for IAM user %s: %w", userName, err)
	}
	if !hasManagedTag(tags.Tags) {
		return nil, &UnmanagedIdentityError{UserName: userName}
	}

	keys, err := p.IAM.ListAccessKeys(ctx, &iam.ListAccessKeysInput{UserName: aws.String(userName)})
	if err != nil {
		return nil, fmt.Errorf("failed to list access keys for IAM user %s: %w", userName, err)
	}
	if len(keys.AccessKeyMetadata) > 0 {
		return nil, &CredentialUnrecoverableError{UserName: userName}
	}

	key, err := p.issueKey(ctx, userName)
	if err != nil {
		return nil, err
	}
	key.Adopted = true
	return key, nil
}

// issueKey creates an access key with retry: key creation immediately after
// user creation can race IAM propagation.
func (p *AdminProvisioner) issueKey(ctx context.Context, userName string) (*AdminCredentials, error) {
	out, err := retry.Do(ctx, p.Retry, func() (*iam.CreateAccessKeyOutput, error) {
		return p.IAM.CreateAccessKey(ctx, &iam.CreateAccessKeyInput{UserName: aws.String(userName)})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create access key for IAM user %s: %w", userName, err)
	}
	return &AdminCredentials{
		UserName:        userName,
		AccessKeyID:     aws.ToString(out.AccessKey.AccessKeyId),
		SecretAccessKey: aws.ToString(out.AccessKey.SecretAccessKey),
	}, nil
}

func managedTags() []iamtypes.Tag {
	return []iamtypes.Tag{{
		Key:   aws.String(ManagedByTagKey),
		Value: aws.String(ManagedByTagValue),
	}}
}

func hasManagedTag(tags []iamtypes.Tag) bool {
	for _, tag := range tags {
		if aws.ToString(tag.Key) == ManagedByTagKey && aws.ToString(tag.Value) == ManagedByTagValue {
			return true
		}
	}
	return false
}

func isNoSuchEntity(err error) bool {
	var nse *iamtypes.NoSuchEntityException
	return errors.As(err, &nse)
}
