package servicemanager

import (
	"context"
	"fmt"
	"strings"

	cm "github.com/dockhand/dockhand/dockhand/commandmanager"
)

// SystemdServiceManager drives systemctl. Mutating operations run with sudo,
// since the verification flow runs as the regular user; probes stay
// unprivileged.
type SystemdServiceManager struct {
	CommandManager cm.CommandManager
}

func (sm *SystemdServiceManager) EnableService(ctx context.Context, serviceName string) error {
	_, err := sm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "systemctl",
		Args:    []string{"enable", serviceName},
		Sudo:    true,
	})
	return err
}

func (sm *SystemdServiceManager) StartService(ctx context.Context, serviceName string) error {
	_, err := sm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "systemctl",
		Args:    []string{"start", serviceName},
		Sudo:    true,
	})
	return err
}

func (sm *SystemdServiceManager) EnableServiceNow(ctx context.Context, serviceName string) error {
	_, err := sm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "systemctl",
		Args:    []string{"enable", "--now", serviceName},
		Sudo:    true,
	})
	return err
}

func (sm *SystemdServiceManager) CheckServiceStatus(ctx context.Context, serviceName string) (ServiceStatus, error) {
	result, err := sm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "systemctl",
		Args:    []string{"is-active", serviceName},
	})
	state := strings.TrimSpace(result.STDOUT)
	switch state {
	case "active":
		return Active, nil
	case "inactive":
		return Inactive, nil
	case "failed":
		return Failed, nil
	}
	if err != nil {
		return "", err
	}
	return "", fmt.Errorf("unexpected service state %q", state)
}

func (sm *SystemdServiceManager) IsServiceEnabled(ctx context.Context, serviceName string) (bool, error) {
	result, err := sm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "systemctl",
		Args:    []string{"is-enabled", serviceName},
	})
	state := strings.TrimSpace(result.STDOUT)
	if state == "enabled" {
		return true, nil
	}
	// is-enabled exits nonzero for "disabled"; that is an answer, not a
	// probe failure.
	if state != "" {
		return false, nil
	}
	return false, err
}

func (sm *SystemdServiceManager) SystemRunning(ctx context.Context) (string, error) {
	// is-system-running exits nonzero for every state except "running",
	// including the perfectly usable "degraded". The state string is the
	// answer either way.
	result, err := sm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "systemctl",
		Args:    []string{"is-system-running"},
	})
	state := strings.TrimSpace(result.STDOUT)
	if state == "" && err != nil {
		return "", err
	}
	return state, nil
}
