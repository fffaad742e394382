package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/google/uuid"
)

// CrossAccountRoleName is the role AWS Organizations provisions in every
// member account it creates, trusted by the management account.
const CrossAccountRoleName = "OrganizationAccountAccessRole"

// DefaultSessionDuration keeps assumed sessions short; provisioning a
// single account never takes longer than this.
const DefaultSessionDuration = 15 * time.Minute

// AccessBroker exchanges a base credential set for temporary credentials
// scoped to a member account by assuming its cross-account role. It holds
// no state: the result is a pure function of (credentials, account id).
type AccessBroker struct {
	Factory         ClientFactory
	SessionDuration time.Duration
}

// Assume returns temporary credentials for accountID, derived from base.
// A nil base means the ambient credentials. Newly created accounts may not
// have propagated their default role yet, so callers retry AssumeRoleError.
func (b *AccessBroker) Assume(ctx context.Context, base aws.CredentialsProvider, accountID string) (aws.Credentials, error) {
	duration := b.SessionDuration
	if duration <= 0 {
		duration = DefaultSessionDuration
	}

	roleARN := fmt.Sprintf("arn:aws:iam::%s:role/%s", accountID, CrossAccountRoleName)
	sessionName := "create-aws-project-" + uuid.NewString()[:8]

	out, err := b.Factory.STS(base).AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(roleARN),
		RoleSessionName: aws.String(sessionName),
		DurationSeconds: aws.Int32(int32(duration.Seconds())),
	})
	if err != nil {
		return aws.Credentials{}, &AssumeRoleError{RoleARN: roleARN, Cause: err}
	}

	creds := out.Credentials
	return aws.Credentials{
		AccessKeyID:     aws.ToString(creds.AccessKeyId),
		SecretAccessKey: aws.ToString(creds.SecretAccessKey),
		SessionToken:    aws.ToString(creds.SessionToken),
		CanExpire:       true,
		Expires:         aws.ToTime(creds.Expiration),
	}, nil
}
