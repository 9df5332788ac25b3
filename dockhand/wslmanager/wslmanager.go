package wslmanager

import "context"

// WSLManager covers the wsl.exe operations the host pipeline drives.
type WSLManager interface {
	// Installed reports whether the WSL subsystem is present at all.
	Installed(ctx context.Context) (bool, error)

	// Install installs the subsystem without any distribution. Completing
	// the installation requires a Windows restart.
	Install(ctx context.Context) error

	// Update updates an already-installed subsystem.
	Update(ctx context.Context) error

	// SetDefaultVersion makes new distributions use the given WSL version.
	SetDefaultVersion(ctx context.Context, version int) error

	// ListDistributions returns the names of all registered distributions.
	ListDistributions(ctx context.Context) ([]string, error)

	// FindDistribution matches name against the registered distributions,
	// tolerating case differences, and returns the registered spelling.
	FindDistribution(ctx context.Context, name string) (string, bool, error)

	// InstallDistribution installs and registers the named distribution.
	InstallDistribution(ctx context.Context, name string) error

	// SetDefaultDistribution makes the named distribution the default.
	SetDefaultDistribution(ctx context.Context, name string) error
}
