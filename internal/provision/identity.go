package provision

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// rootARNSuffix is the final path segment of a root identity ARN
// (arn:aws:iam::123456789012:root).
const rootARNSuffix = ":root"

// CallerIdentity describes the credentials the process is running with.
type CallerIdentity struct {
	ARN       string
	AccountID string
	UserID    string
}

// IsRoot reports whether the identity is the account's root user rather
// than an IAM principal.
func (c CallerIdentity) IsRoot() bool {
	return strings.HasSuffix(c.ARN, rootARNSuffix)
}

// IdentityDetector resolves the caller identity of the active credentials.
type IdentityDetector struct {
	STS STSAPI
}

// Detect calls STS GetCallerIdentity. Failure is fatal and unretried: it
// means the credentials themselves are missing or malformed.
func (d *IdentityDetector) Detect(ctx context.Context) (CallerIdentity, error) {
	out, err := d.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return CallerIdentity{}, &IdentityResolutionError{Cause: err}
	}
	return CallerIdentity{
		ARN:       aws.ToString(out.Arn),
		AccountID: aws.ToString(out.Account),
		UserID:    aws.ToString(out.UserId),
	}, nil
}
