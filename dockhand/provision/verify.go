package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	cm "github.com/dockhand/dockhand/dockhand/commandmanager"
	"github.com/dockhand/dockhand/dockhand/servicemanager"
)

// VerifyConfig carries what the post-restart verification pipeline needs.
type VerifyConfig struct {
	Logger         *logrus.Logger
	CommandManager cm.CommandManager
	Services       servicemanager.ServiceManager
}

// NewVerifyConfig wires the default service manager over the given command
// manager.
func NewVerifyConfig(manager cm.CommandManager, log *logrus.Logger) VerifyConfig {
	return VerifyConfig{
		Logger:         log,
		CommandManager: manager,
		Services:       &servicemanager.SystemdServiceManager{CommandManager: manager},
	}
}

// VerifySteps builds the diagnostic pipeline run after the distribution has
// been restarted: systemd up, docker service enabled and started, versions
// reported, hello-world completed.
func VerifySteps(cfg VerifyConfig) []Step {
	log := cfg.Logger

	return []Step{
		{
			Name:      "systemd-running",
			OnFailure: Abort,
			Action: func(ctx context.Context) error {
				state, err := cfg.Services.SystemRunning(ctx)
				if err != nil {
					return err
				}
				switch state {
				case "running", "degraded":
					log.WithField("state", state).Info("systemd is up")
					return nil
				default:
					return fmt.Errorf("systemd is not running (state %q): run 'wsl --shutdown' from Windows, reopen the distribution and retry", state)
				}
			},
		},
		{
			Name:      "docker-service",
			OnFailure: Abort,
			Guard: func(ctx context.Context) (bool, string, error) {
				status, err := cfg.Services.CheckServiceStatus(ctx, "docker")
				if err != nil || status != servicemanager.Active {
					return false, "", nil
				}
				enabled, err := cfg.Services.IsServiceEnabled(ctx, "docker")
				if err != nil {
					return false, "", nil
				}
				return enabled, "docker service already enabled and active", nil
			},
			Action: func(ctx context.Context) error {
				return cfg.Services.EnableServiceNow(ctx, "docker")
			},
		},
		{
			Name:      "versions",
			OnFailure: Warn,
			Action: func(ctx context.Context) error {
				for _, probe := range []cm.CommandConfig{
					{Command: "docker", Args: []string{"--version"}},
					{Command: "docker", Args: []string{"compose", "version"}},
				} {
					result, err := cfg.CommandManager.Run(ctx, probe)
					if err != nil {
						return err
					}
					log.Info(strings.TrimSpace(result.STDOUT))
				}
				return nil
			},
		},
		{
			Name:      "hello-world",
			OnFailure: Abort,
			Action: func(ctx context.Context) error {
				result, err := cfg.CommandManager.Run(ctx, cm.CommandConfig{
					Command: "docker",
					Args:    []string{"run", "--rm", "hello-world"},
				})
				if err != nil {
					return fmt.Errorf("hello-world failed (%s): if this is a permission error, log out and back in so the docker group applies", strings.TrimSpace(result.STDERR))
				}
				fmt.Print(result.STDOUT)
				log.Info("Docker Engine is installed and working")
				return nil
			},
		},
	}
}
