package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStateMachine(t *testing.T) {
	job := FabricJob{Status: StatusPending}

	job.StartValidation()
	assert.Equal(t, StatusValidating, job.Status)
	require.NotNil(t, job.LastValidationStartedAt)

	job.MarkSuccess()
	assert.Equal(t, StatusReady, job.Status)
	assert.Nil(t, job.LastError)
	require.NotNil(t, job.LastValidationFinishedAt)

	job.StartValidation()
	job.MarkFailure("login refused")
	assert.Equal(t, StatusFailed, job.Status)
	require.NotNil(t, job.LastError)
	assert.Equal(t, "login refused", *job.LastError)

	// a later success clears the failure
	job.StartValidation()
	job.MarkSuccess()
	assert.Equal(t, StatusReady, job.Status)
	assert.Nil(t, job.LastError)
}

func TestHasCredentials(t *testing.T) {
	job := FabricJob{}
	assert.False(t, job.HasCredentials())
	job.PasswordSecret = []byte{0x01}
	assert.True(t, job.HasCredentials())
}

func TestRoleFromRaw(t *testing.T) {
	assert.Equal(t, RoleLeaf, RoleFromRaw("leaf"))
	assert.Equal(t, RoleLeaf, RoleFromRaw("Tier-2-Leaf"))
	assert.Equal(t, RoleSpine, RoleFromRaw(" spine "))
	assert.Equal(t, RoleController, RoleFromRaw("controller"))
	assert.Equal(t, RoleController, RoleFromRaw("apic"))
	assert.Equal(t, RoleUnspecified, RoleFromRaw("vleaf"))
	assert.Equal(t, RoleUnspecified, RoleFromRaw(""))
}
