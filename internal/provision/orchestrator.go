package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/wickidcool/create-aws-project/internal/config"
	"github.com/wickidcool/create-aws-project/internal/environment"
	"github.com/wickidcool/create-aws-project/internal/logging"
	"github.com/wickidcool/create-aws-project/internal/retry"
)

// Orchestrator sequences the full provisioning run: identity detection,
// admin user, organization and member accounts, then one deployment user
// per environment. Every sub-step either completes and persists its result
// or fails the whole run; it never continues past a failed step.
type Orchestrator struct {
	Project string
	Store   *config.Store
	Factory ClientFactory
	Emails  EmailProvider
	Events  EventSink
	Retry   retry.Policy

	// Polling knobs for account creation; zero values use the defaults.
	PollInterval    time.Duration
	PollTimeout     time.Duration
	SessionDuration time.Duration
}

// Run executes the provisioning sequence. It is safe to re-run after any
// failure: completed steps are detected from persisted state and from what
// already exists in AWS, and are skipped.
func (o *Orchestrator) Run(ctx context.Context) error {
	detector := &IdentityDetector{STS: o.Factory.STS(nil)}

	o.Events.emit(Event{Stage: StageIdentity, Status: StatusStarted})
	identity, err := detector.Detect(ctx)
	if err != nil {
		o.Events.emit(Event{Stage: StageIdentity, Status: StatusFailed, Err: err})
		return err
	}
	o.Events.emit(Event{Stage: StageIdentity, Status: StatusCompleted, Detail: identity.ARN})
	logging.Debug("caller identity resolved", "arn", identity.ARN, "account", identity.AccountID, "root", identity.IsRoot())

	cfg, err := o.Store.Read()
	if err != nil {
		return err
	}

	// base is the credential set privileged cross-account calls chain
	// through: admin credentials when this run created them, otherwise the
	// ambient caller credentials. A previously recorded admin user is of
	// no use here because its secret key was never persisted.
	var base aws.CredentialsProvider
	if identity.IsRoot() {
		if cfg.AdminUser == nil {
			admin := &AdminProvisioner{
				IAM:     o.Factory.IAM(nil),
				Project: o.Project,
				Retry:   o.Retry,
				Events:  o.Events,
			}
			creds, err := admin.Ensure(ctx, o.Store)
			if err != nil {
				return err
			}
			base = creds.Provider()
		} else {
			o.Events.emit(Event{Stage: StageAdminUser, Status: StatusSkipped, Detail: cfg.AdminUser.UserName})
		}
	}

	accounts := &AccountProvisioner{
		Orgs:         o.Factory.Organizations(base),
		Project:      o.Project,
		Retry:        o.Retry,
		PollInterval: o.PollInterval,
		PollTimeout:  o.PollTimeout,
		Events:       o.Events,
	}
	if _, err := accounts.EnsureOrganization(ctx); err != nil {
		o.Events.emit(Event{Stage: StageOrganization, Status: StatusFailed, Err: err})
		return err
	}
	if err := accounts.Ensure(ctx, o.Store, o.Emails); err != nil {
		return err
	}

	cfg, err = o.Store.Read()
	if err != nil {
		return err
	}

	deployer := &DeployProvisioner{
		Broker: &AccessBroker{
			Factory:         o.Factory,
			SessionDuration: o.SessionDuration,
		},
		Factory: o.Factory,
		Project: o.Project,
		Retry:   o.Retry,
		Events:  o.Events,
	}
	for _, env := range environment.All() {
		accountID, ok := cfg.AccountID(env)
		if !ok {
			return fmt.Errorf("no account recorded for environment %s after account provisioning", env)
		}
		if err := deployer.Ensure(ctx, o.Store, env, accountID, base); err != nil {
			return err
		}
	}

	return nil
}
