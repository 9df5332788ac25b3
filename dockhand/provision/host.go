package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	cm "github.com/dockhand/dockhand/dockhand/commandmanager"
	"github.com/dockhand/dockhand/dockhand/hostcheck"
	"github.com/dockhand/dockhand/dockhand/wslmanager"
)

const (
	// MinWindowsMajor / MinWindowsBuild gate the host pipeline: WSL2 needs
	// Windows 10 build 19041 (2004) or anything newer.
	MinWindowsMajor = 10
	MinWindowsBuild = 19041

	// DefaultDistribution is the guest image installed when none is named.
	DefaultDistribution = "Ubuntu-24.04"
)

// HostConfig carries everything the Windows-side pipeline needs.
type HostConfig struct {
	Logger       *logrus.Logger
	Checker      *hostcheck.Checker
	WSL          wslmanager.WSLManager
	Distribution string
}

// NewHostConfig wires the default managers over the given command manager.
func NewHostConfig(manager cm.CommandManager, log *logrus.Logger, distribution string) HostConfig {
	if distribution == "" {
		distribution = DefaultDistribution
	}
	return HostConfig{
		Logger:       log,
		Checker:      &hostcheck.Checker{CommandManager: manager},
		WSL:          &wslmanager.WindowsWSLManager{CommandManager: manager},
		Distribution: distribution,
	}
}

// HostSteps builds the Windows-side pipeline: version gate, restart gate,
// WSL install/update, default version, distribution install, default
// distribution.
func HostSteps(cfg HostConfig) []Step {
	log := cfg.Logger

	return []Step{
		{
			Name:      "windows-version",
			OnFailure: Abort,
			Action: func(ctx context.Context) error {
				version, err := cfg.Checker.Version(ctx)
				if err != nil {
					return err
				}
				if !version.Supported(MinWindowsMajor, MinWindowsBuild) {
					return fmt.Errorf("windows %s is too old: need %d.x build %d or newer",
						version, MinWindowsMajor, MinWindowsBuild)
				}
				log.WithField("version", version.String()).Info("Windows version supported")
				return nil
			},
		},
		{
			Name:      "pending-restart",
			OnFailure: Abort,
			Action: func(ctx context.Context) error {
				pending, err := cfg.Checker.RestartPending(ctx)
				if err != nil {
					return err
				}
				if pending {
					log.Info("Windows has a restart pending; installing on top of it is unreliable")
					return fmt.Errorf("%w: restart Windows, then run 'dockhand host' again", ErrRestartRequired)
				}
				return nil
			},
		},
		{
			Name:      "wsl-install",
			OnFailure: Abort,
			Guard: func(ctx context.Context) (bool, string, error) {
				installed, err := cfg.WSL.Installed(ctx)
				return installed, "WSL is already installed", err
			},
			Action: func(ctx context.Context) error {
				if err := cfg.WSL.Install(ctx); err != nil {
					return err
				}
				// The pending-restart flag may not be observable yet this
				// soon after the install call, so the deferral does not
				// depend on it.
				return fmt.Errorf("%w: WSL was installed; restart Windows, then run 'dockhand host' again", ErrRestartRequired)
			},
		},
		{
			Name:      "wsl-update",
			OnFailure: Warn,
			Action: func(ctx context.Context) error {
				return cfg.WSL.Update(ctx)
			},
		},
		{
			Name:      "wsl-default-version",
			OnFailure: Abort,
			Action: func(ctx context.Context) error {
				return cfg.WSL.SetDefaultVersion(ctx, 2)
			},
		},
		{
			Name:      "distro-install",
			OnFailure: Abort,
			Guard: func(ctx context.Context) (bool, string, error) {
				names, err := cfg.WSL.ListDistributions(ctx)
				if err != nil {
					return false, "", err
				}
				for _, name := range names {
					if strings.EqualFold(name, cfg.Distribution) {
						log.WithField("distributions", strings.Join(names, ", ")).Info("Registered distributions")
						return true, fmt.Sprintf("%s is already registered", name), nil
					}
				}
				return false, "", nil
			},
			Action: func(ctx context.Context) error {
				if err := cfg.WSL.InstallDistribution(ctx, cfg.Distribution); err != nil {
					return err
				}
				log.Info("First-run setup (username and password) happens inside the new distribution's window")
				return nil
			},
		},
		{
			Name:      "distro-default",
			OnFailure: Warn,
			Action: func(ctx context.Context) error {
				name := cfg.Distribution
				if registered, found, err := cfg.WSL.FindDistribution(ctx, cfg.Distribution); err == nil && found {
					name = registered
				}
				return cfg.WSL.SetDefaultDistribution(ctx, name)
			},
		},
	}
}
