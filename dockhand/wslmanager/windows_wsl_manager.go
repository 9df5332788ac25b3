package wslmanager

import (
	"context"
	"strconv"
	"strings"

	cm "github.com/dockhand/dockhand/dockhand/commandmanager"
)

// WindowsWSLManager drives wsl.exe. All output handling strips the NUL bytes
// wsl.exe leaves behind when its UTF-16 console output is captured through a
// pipe.
type WindowsWSLManager struct {
	CommandManager cm.CommandManager
}

func (w *WindowsWSLManager) Installed(ctx context.Context) (bool, error) {
	result, err := w.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "wsl.exe",
		Args:    []string{"--status"},
	})
	if err != nil {
		// A nonzero exit means the subsystem is not installed, not that
		// the probe itself broke.
		if result.ExitCode != 0 {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (w *WindowsWSLManager) Install(ctx context.Context) error {
	_, err := w.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "wsl.exe",
		Args:    []string{"--install", "--no-distribution"},
	})
	return err
}

func (w *WindowsWSLManager) Update(ctx context.Context) error {
	_, err := w.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "wsl.exe",
		Args:    []string{"--update"},
	})
	return err
}

func (w *WindowsWSLManager) SetDefaultVersion(ctx context.Context, version int) error {
	_, err := w.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "wsl.exe",
		Args:    []string{"--set-default-version", strconv.Itoa(version)},
	})
	return err
}

func (w *WindowsWSLManager) ListDistributions(ctx context.Context) ([]string, error) {
	result, err := w.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "wsl.exe",
		Args:    []string{"--list", "--quiet"},
	})
	if err != nil {
		// wsl.exe exits nonzero when no distribution is registered yet.
		if result.ExitCode != 0 {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, line := range strings.Split(stripNulls(result.STDOUT), "\n") {
		name := strings.TrimSpace(line)
		if name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func (w *WindowsWSLManager) FindDistribution(ctx context.Context, name string) (string, bool, error) {
	names, err := w.ListDistributions(ctx)
	if err != nil {
		return "", false, err
	}
	for _, registered := range names {
		if strings.EqualFold(registered, name) {
			return registered, true, nil
		}
	}
	return "", false, nil
}

func (w *WindowsWSLManager) InstallDistribution(ctx context.Context, name string) error {
	_, err := w.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "wsl.exe",
		Args:    []string{"--install", "--distribution", name},
	})
	return err
}

func (w *WindowsWSLManager) SetDefaultDistribution(ctx context.Context, name string) error {
	_, err := w.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "wsl.exe",
		Args:    []string{"--set-default", name},
	})
	return err
}

// stripNulls removes the embedded NULs from captured wsl.exe output and
// normalizes Windows line endings.
func stripNulls(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.ReplaceAll(s, "\r\n", "\n")
}
