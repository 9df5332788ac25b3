package commandmanager

import (
	"context"
	"strings"
	"time"
)

// CommandConfig describes a single external command invocation.
type CommandConfig struct {
	Command string
	Args    []string
	Sudo    bool     // prepend sudo for privileged operations
	Env     []string // extra KEY=VALUE pairs appended to the environment
	Stdin   string
}

// Line renders the invocation the way it would appear in a shell, for logs
// and test fixtures.
func (c CommandConfig) Line() string {
	parts := append([]string{c.Command}, c.Args...)
	return strings.Join(parts, " ")
}

// CommandResult encapsulates the results from a command execution.
type CommandResult struct {
	Command   string
	STDOUT    string
	STDERR    string
	ExitCode  int
	Duration  time.Duration
	Timestamp time.Time
}

// CommandManager executes external commands on behalf of the managers. The
// provisioning pipelines never shell out directly; everything goes through
// this interface so guards can be exercised against scripted results.
type CommandManager interface {
	Run(ctx context.Context, config CommandConfig) (CommandResult, error)
}
