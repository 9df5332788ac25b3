package packagemanager

import (
	"context"
	"strings"

	cm "github.com/dockhand/dockhand/dockhand/commandmanager"
)

var nonInteractive = []string{"DEBIAN_FRONTEND=noninteractive"}

var keepConfFiles = []string{
	"-o", "Dpkg::Options::=--force-confdef",
	"-o", "Dpkg::Options::=--force-confold",
}

type AptPackageManager struct {
	CommandManager cm.CommandManager
}

func (apm *AptPackageManager) Update(ctx context.Context) error {
	_, err := apm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "apt-get",
		Args:    []string{"update"},
	})
	return err
}

func (apm *AptPackageManager) UpgradeAll(ctx context.Context) error {
	args := append([]string{"dist-upgrade", "-y"}, keepConfFiles...)
	_, err := apm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "apt-get",
		Env:     nonInteractive,
		Args:    args,
	})
	return err
}

func (apm *AptPackageManager) Install(ctx context.Context, pkgs ...string) error {
	args := append([]string{"install", "-y"}, keepConfFiles...)
	args = append(args, pkgs...)
	_, err := apm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "apt-get",
		Env:     nonInteractive,
		Args:    args,
	})
	return err
}

func (apm *AptPackageManager) Purge(ctx context.Context, pkgs ...string) error {
	args := append([]string{"purge", "-y"}, pkgs...)
	_, err := apm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "apt-get",
		Env:     nonInteractive,
		Args:    args,
	})
	return err
}

func (apm *AptPackageManager) AutoRemove(ctx context.Context) error {
	_, err := apm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "apt-get",
		Env:     nonInteractive,
		Args:    []string{"autoremove", "-y"},
	})
	return err
}

func (apm *AptPackageManager) IsInstalled(ctx context.Context, pkg string) (bool, error) {
	result, err := apm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "dpkg-query",
		Args:    []string{"-W", "-f", "${Status}", pkg},
	})
	if err != nil {
		// dpkg-query exits 1 for unknown packages.
		if result.ExitCode != 0 {
			return false, nil
		}
		return false, err
	}
	return strings.Contains(result.STDOUT, "install ok installed"), nil
}

func (apm *AptPackageManager) InstalledSubset(ctx context.Context, pkgs []string) ([]string, error) {
	var installed []string
	for _, pkg := range pkgs {
		ok, err := apm.IsInstalled(ctx, pkg)
		if err != nil {
			return nil, err
		}
		if ok {
			installed = append(installed, pkg)
		}
	}
	return installed, nil
}
