package packagemanager

import "context"

// PackageManager covers the package operations the guest pipeline needs.
type PackageManager interface {
	Update(ctx context.Context) error
	UpgradeAll(ctx context.Context) error
	Install(ctx context.Context, pkgs ...string) error
	Purge(ctx context.Context, pkgs ...string) error
	AutoRemove(ctx context.Context) error

	// IsInstalled reports whether the package is currently installed.
	IsInstalled(ctx context.Context, pkg string) (bool, error)

	// InstalledSubset returns the members of pkgs that are installed.
	InstalledSubset(ctx context.Context, pkgs []string) ([]string, error)
}
