package usermanager

import (
	"context"
	"strings"

	cm "github.com/dockhand/dockhand/dockhand/commandmanager"
)

type LinuxUserManager struct {
	CommandManager cm.CommandManager
}

func (l *LinuxUserManager) InGroup(ctx context.Context, username, group string) (bool, error) {
	result, err := l.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "id",
		Args:    []string{"-nG", username},
	})
	if err != nil {
		return false, err
	}
	for _, g := range strings.Fields(result.STDOUT) {
		if g == group {
			return true, nil
		}
	}
	return false, nil
}

func (l *LinuxUserManager) AddToGroup(ctx context.Context, username, group string) error {
	_, err := l.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "usermod",
		Args:    []string{"-aG", group, username},
	})
	return err
}

func (l *LinuxUserManager) EnsureGroup(ctx context.Context, group string) error {
	// -f makes groupadd succeed when the group already exists.
	_, err := l.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "groupadd",
		Args:    []string{"-f", group},
	})
	return err
}
