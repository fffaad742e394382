package provision

import "github.com/wickidcool/create-aws-project/internal/environment"

// Stage identifies a provisioning phase in the progress event stream.
type Stage string

const (
	StageIdentity     Stage = "identity"
	StageAdminUser    Stage = "admin-user"
	StageOrganization Stage = "organization"
	StageAccounts     Stage = "accounts"
	StageDeployUser   Stage = "deploy-user"
	StageCredentials  Stage = "credentials"
)

// Status is the outcome of a progress event.
type Status string

const (
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusWarning   Status = "warning"
	StatusFailed    Status = "failed"
)

// Event is one entry in the structured progress stream the orchestrator
// yields. The core never writes to a terminal; a presentation layer renders
// these however it likes.
type Event struct {
	Stage       Stage
	Status      Status
	Environment environment.Environment // empty for stages that are not per-environment
	Detail      string
	Err         error
}

// EventSink receives progress events. A nil sink is valid and discards.
type EventSink func(Event)

func (s EventSink) emit(e Event) {
	if s != nil {
		s(e)
	}
}
