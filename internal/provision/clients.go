package provision

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// OrganizationsAPI is the slice of the AWS Organizations API that account
// provisioning needs.
type OrganizationsAPI interface {
	DescribeOrganization(ctx context.Context, params *organizations.DescribeOrganizationInput, optFns ...func(*organizations.Options)) (*organizations.DescribeOrganizationOutput, error)
	CreateOrganization(ctx context.Context, params *organizations.CreateOrganizationInput, optFns ...func(*organizations.Options)) (*organizations.CreateOrganizationOutput, error)
	ListAccounts(ctx context.Context, params *organizations.ListAccountsInput, optFns ...func(*organizations.Options)) (*organizations.ListAccountsOutput, error)
	CreateAccount(ctx context.Context, params *organizations.CreateAccountInput, optFns ...func(*organizations.Options)) (*organizations.CreateAccountOutput, error)
	DescribeCreateAccountStatus(ctx context.Context, params *organizations.DescribeCreateAccountStatusInput, optFns ...func(*organizations.Options)) (*organizations.DescribeCreateAccountStatusOutput, error)
}

// IAMAPI is the slice of the IAM API that identity provisioning needs.
type IAMAPI interface {
	GetUser(ctx context.Context, params *iam.GetUserInput, optFns ...func(*iam.Options)) (*iam.GetUserOutput, error)
	CreateUser(ctx context.Context, params *iam.CreateUserInput, optFns ...func(*iam.Options)) (*iam.CreateUserOutput, error)
	ListUserTags(ctx context.Context, params *iam.ListUserTagsInput, optFns ...func(*iam.Options)) (*iam.ListUserTagsOutput, error)
	AttachUserPolicy(ctx context.Context, params *iam.AttachUserPolicyInput, optFns ...func(*iam.Options)) (*iam.AttachUserPolicyOutput, error)
	CreatePolicy(ctx context.Context, params *iam.CreatePolicyInput, optFns ...func(*iam.Options)) (*iam.CreatePolicyOutput, error)
	CreateAccessKey(ctx context.Context, params *iam.CreateAccessKeyInput, optFns ...func(*iam.Options)) (*iam.CreateAccessKeyOutput, error)
	ListAccessKeys(ctx context.Context, params *iam.ListAccessKeysInput, optFns ...func(*iam.Options)) (*iam.ListAccessKeysOutput, error)
}

// STSAPI is the slice of the STS API used for identity detection and
// cross-account role assumption.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

// ClientFactory builds service clients bound to a credential set. A nil
// credentials provider means the ambient credentials the process started
// with. The orchestrator uses this to chain calls through admin or assumed
// credentials without components knowing how clients are constructed.
type ClientFactory interface {
	IAM(creds aws.CredentialsProvider) IAMAPI
	Organizations(creds aws.CredentialsProvider) OrganizationsAPI
	STS(creds aws.CredentialsProvider) STSAPI
}

// AWSClientFactory builds real SDK clients from a base aws.Config.
type AWSClientFactory struct {
	Config aws.Config
}

// LoadAWSClientFactory resolves the ambient SDK configuration for region.
func LoadAWSClientFactory(ctx context.Context, region string) (*AWSClientFactory, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &AWSClientFactory{Config: cfg}, nil
}

func (f *AWSClientFactory) config(creds aws.CredentialsProvider) aws.Config {
	cfg := f.Config.Copy()
	if creds != nil {
		cfg.Credentials = creds
	}
	return cfg
}

func (f *AWSClientFactory) IAM(creds aws.CredentialsProvider) IAMAPI {
	return iam.NewFromConfig(f.config(creds))
}

func (f *AWSClientFactory) Organizations(creds aws.CredentialsProvider) OrganizationsAPI {
	return organizations.NewFromConfig(f.config(creds))
}

func (f *AWSClientFactory) STS(creds aws.CredentialsProvider) STSAPI {
	return sts.NewFromConfig(f.config(creds))
}

// StaticCredentials wraps a fixed credential triple as a provider, for
// chaining clients through admin or assumed-role credentials.
func StaticCredentials(c aws.Credentials) aws.CredentialsProvider {
	return credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, c.SessionToken)
}
