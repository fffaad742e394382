package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wickidcool/create-aws-project/internal/environment"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), DefaultFileName))
}

func TestStore_ReadMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Read()
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist), "missing file must surface as not-exist")
}

func TestStore_WriteReadRoundtrip(t *testing.T) {
	store := newTestStore(t)

	cfg := &ProjectConfig{ProjectName: "acme", AWSRegion: "eu-west-1"}
	cfg.SetAccountID(environment.Dev, "111111111111")
	cfg.SetDeploymentCredential(environment.Dev, DeploymentCredential{
		UserName:        "acme-dev-deploy",
		AccessKeyID:     "AKIA123",
		SecretAccessKey: "shh",
	})
	require.NoError(t, store.Write(cfg))

	// Secrets live in this file; it must not be group or world readable.
	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestStore_UpdateReadsCurrentDiskContent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Write(&ProjectConfig{ProjectName: "acme"}))

	// An earlier sub-step persisted the dev account...
	_, err := store.Update(func(c *ProjectConfig) error {
		c.SetAccountID(environment.Dev, "111111111111")
		return nil
	})
	require.NoError(t, err)

	// ...and a later sub-step adding stage must not clobber it.
	_, err = store.Update(func(c *ProjectConfig) error {
		c.SetAccountID(environment.Stage, "222222222222")
		return nil
	})
	require.NoError(t, err)

	got, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, "111111111111", got.Accounts[environment.Dev])
	assert.Equal(t, "222222222222", got.Accounts[environment.Stage])
}

func TestStore_UpdateErrorLeavesFileUntouched(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Write(&ProjectConfig{ProjectName: "acme"}))

	_, err := store.Update(func(c *ProjectConfig) error {
		c.ProjectName = "mutated"
		return assert.AnError
	})
	require.Error(t, err)

	got, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, "acme", got.ProjectName)
}

func TestStore_Lock(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Lock())
	assert.Error(t, store.Lock(), "second lock must fail while held")
	require.NoError(t, store.Unlock())
	assert.NoError(t, store.Lock())
	require.NoError(t, store.Unlock())
}
