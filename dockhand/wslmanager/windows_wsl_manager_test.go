package wslmanager

import (
	"context"
	"errors"
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

func TestStripNulls(t *testing.T) {
	in := "U\x00b\x00u\x00n\x00t\x00u\x00\r\n"
	assert.Equal(t, "Ubuntu\n", stripNulls(in))
}

func TestListDistributionsStripsEncodingQuirks(t *testing.T) {
	mock := &mockCommandManager{
		results: map[string]cm.CommandResult{
			"wsl.exe --list --quiet": {STDOUT: "U\x00b\x00u\x00n\x00t\x00u\x00-\x002\x004\x00.\x000\x004\x00\r\nD\x00e\x00b\x00i\x00a\x00n\x00\r\n\r\n"},
		},
	}
	manager := &WindowsWSLManager{CommandManager: mock}

	names, err := manager.ListDistributions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Ubuntu-24.04", "Debian"}, names)
}

func TestListDistributionsEmptyWhenNoneRegistered(t *testing.T) {
	mock := &mockCommandManager{
		results: map[string]cm.CommandResult{
			"wsl.exe --list --quiet": {ExitCode: 1},
		},
		errs: map[string]error{
			"wsl.exe --list --quiet": errors.New("exit status 1"),
		},
	}
	manager := &WindowsWSLManager{CommandManager: mock}

	names, err := manager.ListDistributions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestFindDistributionIsCaseInsensitive(t *testing.T) {
	mock := &mockCommandManager{
		results: map[string]cm.CommandResult{
			"wsl.exe --list --quiet": {STDOUT: "Ubuntu-24.04\n"},
		},
	}
	manager := &WindowsWSLManager{CommandManager: mock}

	registered, found, err := manager.FindDistribution(context.Background(), "ubuntu-24.04")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Ubuntu-24.04", registered)

	_, found, err = manager.FindDistribution(context.Background(), "Debian")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInstalledMapsExitCodeToAbsent(t *testing.T) {
	mock := &mockCommandManager{
		results: map[string]cm.CommandResult{
			"wsl.exe --status": {ExitCode: 1},
		},
		errs: map[string]error{
			"wsl.exe --status": errors.New("exit status 1"),
		},
	}
	manager := &WindowsWSLManager{CommandManager: mock}

	installed, err := manager.Installed(context.Background())
	require.NoError(t, err)
	assert.False(t, installed)

	mock.results["wsl.exe --status"] = cm.CommandResult{STDOUT: "Default Version: 2"}
	delete(mock.errs, "wsl.exe --status")

	installed, err = manager.Installed(context.Background())
	require.NoError(t, err)
	assert.True(t, installed)
}
