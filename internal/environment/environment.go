// Package environment defines the closed set of deployment environments a
// generated project is provisioned with. The set is fixed and ordered:
// dev, then stage, then prod. Account, user, and policy names are all
// derived deterministically from the project name and the environment so
// that re-runs can reconcile against what already exists in AWS.
package environment

import "fmt"

// Environment is one of the fixed deployment environments.
type Environment string

const (
	Dev   Environment = "dev"
	Stage Environment = "stage"
	Prod  Environment = "prod"
)

// All returns every environment in provisioning order.
func All() []Environment {
	return []Environment{Dev, Stage, Prod}
}

// Parse converts a user-supplied string into an Environment.
func Parse(s string) (Environment, error) {
	switch Environment(s) {
	case Dev, Stage, Prod:
		return Environment(s), nil
	}
	return "", fmt.Errorf("unknown environment %q (expected dev, stage, or prod)", s)
}

// AccountName returns the display name of the member account for this
// environment, following the {project}-{env} convention.
func (e Environment) AccountName(project string) string {
	return fmt.Sprintf("%s-%s", project, e)
}

// DeployUserName returns the name of the deployment IAM user for this
// environment.
func (e Environment) DeployUserName(project string) string {
	return fmt.Sprintf("%s-%s-deploy", project, e)
}

// DeployPolicyName returns the name of the least-privilege deployment
// policy for this environment.
func (e Environment) DeployPolicyName(project string) string {
	return fmt.Sprintf("%s-%s-cdk-deploy", project, e)
}

func (e Environment) String() string {
	return string(e)
}
