package commandmanager

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// LocalCommandManager runs commands on the machine dockhand itself runs on.
type LocalCommandManager struct {
	Logger *logrus.Logger
}

func (l *LocalCommandManager) Run(ctx context.Context, config CommandConfig) (CommandResult, error) {
	start := time.Now()

	name := config.Command
	args := config.Args
	if config.Sudo {
		args = append([]string{name}, args...)
		name = "sudo"
	}

	cmd := exec.CommandContext(ctx, name, args...)
	if len(config.Env) > 0 {
		cmd.Env = append(os.Environ(), config.Env...)
	}
	if config.Stdin != "" {
		cmd.Stdin = strings.NewReader(config.Stdin)
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if l.Logger != nil {
		l.Logger.WithField("command", config.Line()).Debug("Running command")
	}

	err := cmd.Run()

	result := CommandResult{
		Command:   config.Line(),
		STDOUT:    stdout.String(),
		STDERR:    stderr.String(),
		ExitCode:  getExitCode(err),
		Duration:  time.Since(start),
		Timestamp: start,
	}

	if l.Logger != nil && err != nil {
		l.Logger.WithFields(logrus.Fields{
			"command":  config.Line(),
			"exitCode": result.ExitCode,
			"stderr":   strings.TrimSpace(result.STDERR),
		}).Debug("Command failed")
	}

	return result, err
}

func getExitCode(err error) int {
	if exitError, ok := err.(*exec.ExitError); ok {
		return exitError.ExitCode()
	}
	return 0
}
