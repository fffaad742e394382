package provision

import (
	"fmt"
	"time"
)

// IdentityResolutionError means the caller's ambient credentials could not
// be resolved. This indicates a configuration problem, not a transient
// fault, and is never retried.
type IdentityResolutionError struct {
	Cause error
}

func (e *IdentityResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve caller identity: %v. "+
		"Check that AWS credentials are configured (environment, shared config, or instance profile)", e.Cause)
}

func (e *IdentityResolutionError) Unwrap() error { return e.Cause }

// UnmanagedIdentityError means an IAM user with a name this tool wants to
// own already exists but was not created by this tool. Touching it could
// break whatever does own it, so provisioning stops.
type UnmanagedIdentityError struct {
	UserName string
}

func (e *UnmanagedIdentityError) Error() string {
	return fmt.Sprintf("IAM user %q already exists but is not managed by create-aws-project. "+
		"Rename the project or delete the user manually, then retry", e.UserName)
}

// CredentialUnrecoverableError means a managed user already has an access
// key whose secret value cannot be read back from AWS. The operator has to
// delete the existing key before provisioning can issue a fresh one.
type CredentialUnrecoverableError struct {
	UserName string
}

func (e *CredentialUnrecoverableError) Error() string {
	return fmt.Sprintf("IAM user %q already has an access key whose secret cannot be recovered. "+
		"Delete the existing key in the IAM console, then retry", e.UserName)
}

// AssumeRoleError means assuming the cross-account role into a member
// account failed. Freshly created accounts may not have propagated their
// default role yet, so callers retry this.
type AssumeRoleError struct {
	RoleARN string
	Cause   error
}

func (e *AssumeRoleError) Error() string {
	return fmt.Sprintf("failed to assume role %s: %v", e.RoleARN, e.Cause)
}

func (e *AssumeRoleError) Unwrap() error { return e.Cause }

// AccountCreationFailedError carries the provider's failure reason verbatim.
type AccountCreationFailedError struct {
	AccountName string
	Reason      string
}

func (e *AccountCreationFailedError) Error() string {
	return fmt.Sprintf("account creation for %q failed: %s", e.AccountName, e.Reason)
}

// AccountCreationTimeoutError means the creation request never reached a
// terminal state within the polling deadline. The account may still appear
// later; a re-run's discovery step will pick it up by name.
type AccountCreationTimeoutError struct {
	AccountName string
	Waited      time.Duration
}

func (e *AccountCreationTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for account %q to be created. "+
		"Re-run provisioning: if the account finished in the background it will be adopted", e.Waited, e.AccountName)
}

// DuplicateEmailError means the same root email was supplied for more than
// one account. AWS rejects duplicate account-owner emails, so this is
// caught before any creation request is issued.
type DuplicateEmailError struct {
	Email string
}

func (e *DuplicateEmailError) Error() string {
	return fmt.Sprintf("root email %q was supplied for more than one account; every account needs a unique email", e.Email)
}
