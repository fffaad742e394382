// Package config manages the persisted project configuration file. The file
// is created at project-generation time and is the single source of truth
// across provisioning runs: every successful sub-step merges its result back
// into it, so an interrupted run resumes from the last completed step.
package config

import (
	"github.com/wickidcool/create-aws-project/internal/environment"
)

// DefaultFileName is the config file written into the project directory.
const DefaultFileName = "create-aws-project.json"

// AdminUser references the management-account administrative IAM user.
// Only the access key id is recorded; the secret key is held in memory for
// the run that created it and is never written to disk.
type AdminUser struct {
	UserName    string `json:"userName"`
	AccessKeyID string `json:"accessKeyId"`
}

// DeploymentCredential is an issued access key for a deployment user.
// The secret value exists nowhere else: AWS does not return it again after
// creation, so losing this file means re-keying the user.
type DeploymentCredential struct {
	UserName        string `json:"userName"`
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
}

// ProjectConfig is the on-disk record of everything provisioning has done.
type ProjectConfig struct {
	ProjectName string   `json:"projectName"`
	Platforms   []string `json:"platforms,omitempty"`
	AWSRegion   string   `json:"awsRegion,omitempty"`
	GitHubRepo  string   `json:"githubRepo,omitempty"`

	Accounts              map[environment.Environment]string               `json:"accounts,omitempty"`
	AdminUser             *AdminUser                                       `json:"adminUser,omitempty"`
	DeploymentUsers       map[environment.Environment]string               `json:"deploymentUsers,omitempty"`
	DeploymentCredentials map[environment.Environment]DeploymentCredential `json:"deploymentCredentials,omitempty"`
}

// AccountID returns the recorded member account id for env, if any.
func (c *ProjectConfig) AccountID(env environment.Environment) (string, bool) {
	id, ok := c.Accounts[env]
	return id, ok
}

// SetAccountID records the member account id for env.
func (c *ProjectConfig) SetAccountID(env environment.Environment, id string) {
	if c.Accounts == nil {
		c.Accounts = make(map[environment.Environment]string)
	}
	c.Accounts[env] = id
}

// SetDeploymentUser records the deployment user name for env.
func (c *ProjectConfig) SetDeploymentUser(env environment.Environment, name string) {
	if c.DeploymentUsers == nil {
		c.DeploymentUsers = make(map[environment.Environment]string)
	}
	c.DeploymentUsers[env] = name
}

// SetDeploymentCredential records an issued access key for env.
func (c *ProjectConfig) SetDeploymentCredential(env environment.Environment, cred DeploymentCredential) {
	if c.DeploymentCredentials == nil {
		c.DeploymentCredentials = make(map[environment.Environment]DeploymentCredential)
	}
	c.DeploymentCredentials[env] = cred
}
