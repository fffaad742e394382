package environment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAll_Order(t *testing.T) {
	// dev before stage before prod is a sequencing guarantee, not a detail.
	assert.Equal(t, []Environment{Dev, Stage, Prod}, All())
}

func TestParse(t *testing.T) {
	env, err := Parse("stage")
	require.NoError(t, err)
	assert.Equal(t, Stage, env)

	_, err = Parse("production")
	assert.Error(t, err)
}

func TestNaming(t *testing.T) {
	assert.Equal(t, "acme-dev", Dev.AccountName("acme"))
	assert.Equal(t, "acme-prod-deploy", Prod.DeployUserName("acme"))
	assert.Equal(t, "acme-stage-cdk-deploy", Stage.DeployPolicyName("acme"))
}
