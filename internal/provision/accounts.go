package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	orgtypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"
	"github.com/samber/lo"

	"github.com/wickidcool/create-aws-project/internal/config"
	"github.com/wickidcool/create-aws-project/internal/environment"
	"github.com/wickidcool/create-aws-project/internal/logging"
	"github.com/wickidcool/create-aws-project/internal/retry"
)

const (
	// DefaultPollInterval is how often an in-flight account creation
	// request is checked.
	DefaultPollInterval = 5 * time.Second

	// DefaultPollTimeout bounds how long a single account creation may
	// stay non-terminal before the run gives up.
	DefaultPollTimeout = 5 * time.Minute
)

// EmailProvider supplies the root email address for a member account that
// is about to be created. It is only consulted for missing environments.
type EmailProvider func(env environment.Environment) (string, error)

// AccountProvisioner ensures the organization exists and that every
// environment has a member account, creating missing ones strictly
// sequentially. AWS rate-limits account creation and concurrent requests
// produce partial results that are hard to reconcile.
type AccountProvisioner struct {
	Orgs         OrganizationsAPI
	Project      string
	Retry        retry.Policy
	PollInterval time.Duration
	PollTimeout  time.Duration
	Events       EventSink
}

// EnsureOrganization makes sure the caller's account belongs to an
// organization, creating one if needed, and returns the organization id.
// A concurrent setup racing us to create it is resolved, not failed.
func (p *AccountProvisioner) EnsureOrganization(ctx context.Context) (string, error) {
	p.Events.emit(Event{Stage: StageOrganization, Status: StatusStarted})

	describe, err := p.Orgs.DescribeOrganization(ctx, &organizations.DescribeOrganizationInput{})
	if err == nil {
		id := aws.ToString(describe.Organization.Id)
		p.Events.emit(Event{Stage: StageOrganization, Status: StatusSkipped, Detail: id})
		return id, nil
	}
	var notInUse *orgtypes.AWSOrganizationsNotInUseException
	if !errors.As(err, &notInUse) {
		return "", fmt.Errorf("failed to describe organization: %w", err)
	}

	created, err := p.Orgs.CreateOrganization(ctx, &organizations.CreateOrganizationInput{
		FeatureSet: orgtypes.OrganizationFeatureSetAll,
	})
	if err != nil {
		var already *orgtypes.AlreadyInOrganizationException
		if errors.As(err, &already) {
			describe, descErr := p.Orgs.DescribeOrganization(ctx, &organizations.DescribeOrganizationInput{})
			if descErr != nil {
				return "", fmt.Errorf("failed to resolve existing organization: %w", descErr)
			}
			id := aws.ToString(describe.Organization.Id)
			p.Events.emit(Event{Stage: StageOrganization, Status: StatusSkipped, Detail: id})
			return id, nil
		}
		return "", fmt.Errorf("failed to create organization: %w", err)
	}

	id := aws.ToString(created.Organization.Id)
	p.Events.emit(Event{Stage: StageOrganization, Status: StatusCompleted, Detail: id})
	return id, nil
}

// Ensure reconciles member accounts against the {project}-{env} naming
// convention and creates any missing ones. Each account id is persisted
// immediately after its creation succeeds, so a crash mid-batch only
// re-attempts the unfinished accounts on the next run.
func (p *AccountProvisioner) Ensure(ctx context.Context, store *config.Store, emails EmailProvider) error {
	discovered, err := p.discover(ctx)
	if err != nil {
		return err
	}

	cfg, err := store.Read()
	if err != nil {
		return err
	}

	// Reconcile: the provider is the source of truth. Local state that
	// names an account the provider no longer returns is stale.
	var missing []environment.Environment
	for _, env := range environment.All() {
		name := env.AccountName(p.Project)
		id, found := discovered[name]

		if recorded, ok := cfg.AccountID(env); ok && !found {
			p.Events.emit(Event{
				Stage:       StageAccounts,
				Status:      StatusWarning,
				Environment: env,
				Detail:      fmt.Sprintf("account %s (%s) is recorded locally but no longer exists in the organization", name, recorded),
			})
			logging.Warn("recorded account missing from organization", "account", name, "id", recorded)
		}

		if found {
			if _, err := store.Update(func(c *config.ProjectConfig) error {
				c.SetAccountID(env, id)
				return nil
			}); err != nil {
				return err
			}
			p.Events.emit(Event{Stage: StageAccounts, Status: StatusSkipped, Environment: env, Detail: id})
			continue
		}
		missing = append(missing, env)
	}

	if len(missing) == 0 {
		return nil
	}

	// Collect root emails for the missing accounts only, and reject
	// duplicates before any creation request goes out.
	emailByEnv := make(map[environment.Environment]string, len(missing))
	for _, env := range missing {
		email, err := emails(env)
		if err != nil {
			return fmt.Errorf("failed to obtain root email for %s: %w", env, err)
		}
		emailByEnv[env] = email
	}
	if err := validateUniqueEmails(emailByEnv); err != nil {
		return err
	}

	// Strictly sequential: one request in flight at a time.
	for _, env := range missing {
		if err := p.createAccount(ctx, store, env, emailByEnv[env]); err != nil {
			return err
		}
	}
	return nil
}

// discover lists every member account and maps display name to account id.
func (p *AccountProvisioner) discover(ctx context.Context) (map[string]string, error) {
	var all []orgtypes.Account
	var next *string
	for {
		out, err := p.Orgs.ListAccounts(ctx, &organizations.ListAccountsInput{NextToken: next})
		if err != nil {
			return nil, fmt.Errorf("failed to list organization accounts: %w", err)
		}
		all = append(all, out.Accounts...)
		if out.NextToken == nil {
			break
		}
		next = out.NextToken
	}

	return lo.SliceToMap(all, func(a orgtypes.Account) (string, string) {
		return aws.ToString(a.Name), aws.ToString(a.Id)
	}), nil
}

func (p *AccountProvisioner) createAccount(ctx context.Context, store *config.Store, env environment.Environment, email string) error {
	name := env.AccountName(p.Project)
	p.Events.emit(Event{Stage: StageAccounts, Status: StatusStarted, Environment: env, Detail: name})

	out, err := retry.Do(ctx, p.Retry, func() (*organizations.CreateAccountOutput, error) {
		return p.Orgs.CreateAccount(ctx, &organizations.CreateAccountInput{
			AccountName: aws.String(name),
			Email:       aws.String(email),
		})
	})
	if err != nil {
		p.Events.emit(Event{Stage: StageAccounts, Status: StatusFailed, Environment: env, Err: err})
		return fmt.Errorf("failed to request account creation for %s: %w", name, err)
	}

	id, err := p.waitForCreation(ctx, name, aws.ToString(out.CreateAccountStatus.Id))
	if err != nil {
		p.Events.emit(Event{Stage: StageAccounts, Status: StatusFailed, Environment: env, Err: err})
		return err
	}

	if _, err := store.Update(func(c *config.ProjectConfig) error {
		c.SetAccountID(env, id)
		return nil
	}); err != nil {
		return err
	}
	p.Events.emit(Event{Stage: StageAccounts, Status: StatusCompleted, Environment: env, Detail: id})
	return nil
}

// waitForCreation polls the creation request until it reaches a terminal
// state or the deadline passes.
func (p *AccountProvisioner) waitForCreation(ctx context.Context, name, requestID string) (string, error) {
	interval := p.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	timeout := p.PollTimeout
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	deadline := time.Now().Add(timeout)

	for {
		out, err := p.Orgs.DescribeCreateAccountStatus(ctx, &organizations.DescribeCreateAccountStatusInput{
			CreateAccountRequestId: aws.String(requestID),
		})
		if err != nil {
			return "", fmt.Errorf("failed to check creation status for %s: %w", name, err)
		}

		status := out.CreateAccountStatus
		switch status.State {
		case orgtypes.CreateAccountStateSucceeded:
			return aws.ToString(status.AccountId), nil
		case orgtypes.CreateAccountStateFailed:
			return "", &AccountCreationFailedError{AccountName: name, Reason: string(status.FailureReason)}
		}

		if time.Now().After(deadline) {
			return "", &AccountCreationTimeoutError{AccountName: name, Waited: timeout}
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(interval):
		}
	}
}

func validateUniqueEmails(emailByEnv map[environment.Environment]string) error {
	seen := make(map[string]bool, len(emailByEnv))
	for _, env := range environment.All() {
		email, ok := emailByEnv[env]
		if !ok {
			continue
		}
		if seen[email] {
			return &DuplicateEmailError{Email: email}
		}
		seen[email] = true
	}
	return nil
}
