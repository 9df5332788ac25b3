package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dockhand/dockhand/dockhand/bootconfig"
	cm "github.com/dockhand/dockhand/dockhand/commandmanager"
	"github.com/dockhand/dockhand/dockhand/guestcheck"
	"github.com/dockhand/dockhand/dockhand/packagemanager"
	"github.com/dockhand/dockhand/dockhand/repomanager"
	"github.com/dockhand/dockhand/dockhand/usermanager"
)

// ConflictingPackages are the distro-shipped container packages that clash
// with Docker's own, removed before installation.
var ConflictingPackages = []string{
	"docker.io",
	"docker-doc",
	"docker-compose",
	"docker-compose-v2",
	"podman-docker",
	"containerd",
	"runc",
}

// PrerequisitePackages are needed to register a third-party repository over
// TLS.
var PrerequisitePackages = []string{
	"ca-certificates",
	"curl",
	"gnupg",
	"lsb-release",
}

// DockerPackages is the target set: engine, CLI, runtime and plugins.
var DockerPackages = []string{
	"docker-ce",
	"docker-ce-cli",
	"containerd.io",
	"docker-buildx-plugin",
	"docker-compose-plugin",
}

// DockerGroup is the group whose members may use the daemon socket without
// elevation.
const DockerGroup = "docker"

// GuestConfig carries everything the in-guest pipeline needs. The probe
// funcs default to the real environment and exist so tests can run the
// pipeline anywhere.
type GuestConfig struct {
	Logger         *logrus.Logger
	CommandManager cm.CommandManager
	Packages       packagemanager.PackageManager
	Repo           *repomanager.AptRepoManager
	Users          usermanager.UserManager
	BootConfig     *bootconfig.Editor

	Username   string
	ScriptPath string

	// Confirm asks the user a y/N question; nil means "always no".
	Confirm func(prompt string) bool
	Kernel  func() (guestcheck.Generation, string, error)
	IsRoot  func() bool
}

// NewGuestConfig wires the default managers over the given command manager.
func NewGuestConfig(manager cm.CommandManager, log *logrus.Logger, username, scriptPath string, confirm func(string) bool) GuestConfig {
	return GuestConfig{
		Logger:         log,
		CommandManager: manager,
		Packages:       &packagemanager.AptPackageManager{CommandManager: manager},
		Repo:           repomanager.New(manager),
		Users:          &usermanager.LinuxUserManager{CommandManager: manager},
		BootConfig:     &bootconfig.Editor{Path: bootconfig.DefaultPath},
		Username:       username,
		ScriptPath:     scriptPath,
		Confirm:        confirm,
		Kernel:         guestcheck.Detect,
		IsRoot:         guestcheck.IsRoot,
	}
}

// GuestSteps builds the in-guest pipeline that installs and configures
// Docker Engine.
func GuestSteps(cfg GuestConfig) []Step {
	log := cfg.Logger

	return []Step{
		{
			Name:      "wsl2-kernel",
			OnFailure: Abort,
			Action: func(ctx context.Context) error {
				if !cfg.IsRoot() {
					return errors.New("must run as root: sudo dockhand guest")
				}
				gen, release, err := cfg.Kernel()
				if err != nil {
					return fmt.Errorf("detecting kernel: %w", err)
				}
				switch gen {
				case guestcheck.WSL2:
					log.WithField("kernel", release).Info("Running inside WSL2")
				case guestcheck.WSL1:
					log.WithField("kernel", release).Warn("This looks like WSL1; Docker Engine needs WSL2")
					if cfg.Confirm == nil || !cfg.Confirm("Continue anyway? [y/N]: ") {
						return errors.New("aborted: convert the distribution with 'wsl --set-version <name> 2' and retry")
					}
				default:
					return fmt.Errorf("kernel %q is not a WSL kernel; run this inside the WSL distribution", release)
				}
				return nil
			},
		},
		{
			Name:      "remove-conflicts",
			OnFailure: Warn,
			Guard: func(ctx context.Context) (bool, string, error) {
				installed, err := cfg.Packages.InstalledSubset(ctx, ConflictingPackages)
				if err != nil {
					return false, "", err
				}
				if len(installed) > 0 {
					return false, "", nil
				}
				if snapDockerInstalled(ctx, cfg.CommandManager) {
					return false, "", nil
				}
				return true, "no conflicting packages installed", nil
			},
			Action: func(ctx context.Context) error {
				installed, err := cfg.Packages.InstalledSubset(ctx, ConflictingPackages)
				if err != nil {
					return err
				}
				if len(installed) > 0 {
					log.WithField("packages", strings.Join(installed, ", ")).Info("Removing conflicting packages")
					if err := cfg.Packages.Purge(ctx, installed...); err != nil {
						return err
					}
					if err := cfg.Packages.AutoRemove(ctx); err != nil {
						return err
					}
				}
				if snapDockerInstalled(ctx, cfg.CommandManager) {
					log.Info("Removing snap docker")
					if _, err := cfg.CommandManager.Run(ctx, cm.CommandConfig{
						Command: "snap",
						Args:    []string{"remove", "docker"},
					}); err != nil {
						return fmt.Errorf("removing snap docker: %w", err)
					}
				}
				return nil
			},
		},
		{
			Name:      "system-update",
			OnFailure: Abort,
			// Once the engine is installed, re-runs skip the full upgrade
			// so a second invocation leaves the system untouched.
			Guard: func(ctx context.Context) (bool, string, error) {
				installed, err := cfg.Packages.IsInstalled(ctx, "docker-ce")
				return installed, "engine already installed", err
			},
			Action: func(ctx context.Context) error {
				if err := cfg.Packages.Update(ctx); err != nil {
					return err
				}
				return cfg.Packages.UpgradeAll(ctx)
			},
		},
		{
			Name:      "prerequisites",
			OnFailure: Abort,
			Guard: func(ctx context.Context) (bool, string, error) {
				installed, err := cfg.Packages.InstalledSubset(ctx, PrerequisitePackages)
				if err != nil {
					return false, "", err
				}
				return len(installed) == len(PrerequisitePackages), "prerequisites already installed", nil
			},
			Action: func(ctx context.Context) error {
				return cfg.Packages.Install(ctx, PrerequisitePackages...)
			},
		},
		{
			Name:      "docker-engine",
			OnFailure: Abort,
			Guard: func(ctx context.Context) (bool, string, error) {
				if !cfg.Repo.Registered() {
					return false, "", nil
				}
				installed, err := cfg.Packages.IsInstalled(ctx, "docker-ce")
				return installed, "repository registered and docker-ce installed", err
			},
			Action: func(ctx context.Context) error {
				// The keyring lands before the sources entry so a failure
				// partway never leaves an unverifiable repository trusted.
				if err := cfg.Repo.InstallKey(ctx); err != nil {
					return err
				}
				if err := cfg.Repo.WriteSources(ctx); err != nil {
					return err
				}
				if err := cfg.Packages.Update(ctx); err != nil {
					return err
				}
				return cfg.Packages.Install(ctx, DockerPackages...)
			},
		},
		{
			Name:      "docker-group",
			OnFailure: Abort,
			Guard: func(ctx context.Context) (bool, string, error) {
				member, err := cfg.Users.InGroup(ctx, cfg.Username, DockerGroup)
				return member, fmt.Sprintf("%s is already in the %s group", cfg.Username, DockerGroup), err
			},
			Action: func(ctx context.Context) error {
				if err := cfg.Users.EnsureGroup(ctx, DockerGroup); err != nil {
					return err
				}
				if err := cfg.Users.AddToGroup(ctx, cfg.Username, DockerGroup); err != nil {
					return err
				}
				log.WithField("user", cfg.Username).Warn("Group membership takes effect at the next login session")
				return nil
			},
		},
		{
			Name:      "systemd-enable",
			OnFailure: Abort,
			Guard: func(ctx context.Context) (bool, string, error) {
				enabled, err := cfg.BootConfig.SystemdEnabled()
				return enabled, "systemd already enabled in " + cfg.BootConfig.Path, err
			},
			Action: func(ctx context.Context) error {
				if _, err := cfg.BootConfig.EnableSystemd(); err != nil {
					return err
				}
				log.Info("systemd enabled; run 'wsl --shutdown' from Windows, reopen the distribution, then run the verification script")
				return nil
			},
		},
		{
			Name:      "verify-script",
			OnFailure: Abort,
			Guard: func(ctx context.Context) (bool, string, error) {
				current, err := VerifyScriptUpToDate(cfg.ScriptPath)
				return current, "verification script already in place", err
			},
			Action: func(ctx context.Context) error {
				if err := WriteVerifyScript(cfg.ScriptPath); err != nil {
					return err
				}
				if cfg.Username != "" {
					if _, err := cfg.CommandManager.Run(ctx, cm.CommandConfig{
						Command: "chown",
						Args:    []string{cfg.Username + ":", cfg.ScriptPath},
					}); err != nil {
						return fmt.Errorf("handing the script to %s: %w", cfg.Username, err)
					}
				}
				log.WithField("path", cfg.ScriptPath).Info("Verification script written; run it after restarting the distribution")
				return nil
			},
		},
	}
}

func snapDockerInstalled(ctx context.Context, manager cm.CommandManager) bool {
	_, err := manager.Run(ctx, cm.CommandConfig{
		Command: "snap",
		Args:    []string{"list", "docker"},
	})
	return err == nil
}
