package cli

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"

	"github.com/wickidcool/create-aws-project/internal/provision"
)

// stageLabels maps event stages to the verbs shown to the operator.
var stageLabels = map[provision.Stage]string{
	provision.StageIdentity:     "Resolving caller identity",
	provision.StageAdminUser:    "Provisioning admin user",
	provision.StageOrganization: "Ensuring organization",
	provision.StageAccounts:     "Provisioning account",
	provision.StageDeployUser:   "Provisioning deployment user",
	provision.StageCredentials:  "Issuing credentials",
}

// reportEvent renders one orchestrator progress event to the terminal. The
// core emits structured events and never prints; this is the only place
// provisioning output is formatted.
func reportEvent(e provision.Event) {
	label := stageLabels[e.Stage]
	if label == "" {
		label = string(e.Stage)
	}
	scope := ""
	if e.Environment != "" {
		scope = fmt.Sprintf(" [%s]", e.Environment)
	}

	switch e.Status {
	case provision.StatusStarted:
		fmt.Printf("%s%s...\n", label, scope)
	case provision.StatusCompleted:
		fmt.Printf("%s%s: OK %s\n", label, scope, e.Detail)
	case provision.StatusSkipped:
		fmt.Printf("%s%s: already done %s\n", label, scope, e.Detail)
	case provision.StatusWarning:
		fmt.Printf("WARNING%s: %s\n", scope, e.Detail)
	case provision.StatusFailed:
		fmt.Printf("%s%s: FAILED%s\n", label, scope, apiErrorCode(e.Err))
	}
}

// apiErrorCode pulls the AWS service error code out of a failure, when one
// exists, so the operator sees e.g. "(AccessDenied)" without a stack of
// wrapped messages.
func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return " (" + apiErr.ErrorCode() + ")"
	}
	return ""
}
