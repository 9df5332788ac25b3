package usermanager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cm "github.com/dockhand/dockhand/dockhand/commandmanager"
)

type mockCommandManager struct {
	results map[string]cm.CommandResult
	errs    map[string]error
	calls   []string
}

func (m *mockCommandManager) Run(ctx context.Context, config cm.CommandConfig) (cm.CommandResult, error) {
	line := config.Line()
	m.calls = append(m.calls, line)
	return m.results[line], m.errs[line]
}

func TestInGroup(t *testing.T) {
	mock := &mockCommandManager{
		results: map[string]cm.CommandResult{
			"id -nG alice": {STDOUT: "alice adm sudo docker\n"},
			"id -nG bob":   {STDOUT: "bob users\n"},
		},
	}
	um := &LinuxUserManager{CommandManager: mock}
	ctx := context.Background()

	member, err := um.InGroup(ctx, "alice", "docker")
	require.NoError(t, err)
	assert.True(t, member)

	member, err = um.InGroup(ctx, "bob", "docker")
	require.NoError(t, err)
	assert.False(t, member)
}

func TestAddToGroup(t *testing.T) {
	mock := &mockCommandManager{}
	um := &LinuxUserManager{CommandManager: mock}

	err := um.AddToGroup(context.Background(), "alice", "docker")
	require.NoError(t, err)
	assert.Equal(t, []string{"usermod -aG docker alice"}, mock.calls)
}

func TestEnsureGroupIsIdempotent(t *testing.T) {
	mock := &mockCommandManager{}
	um := &LinuxUserManager{CommandManager: mock}

	err := um.EnsureGroup(context.Background(), "docker")
	require.NoError(t, err)
	assert.Equal(t, []string{"groupadd -f docker"}, mock.calls)
}
