package commandmanager

import (
	"context"
)

// WSLCommandManager executes commands inside a registered WSL distribution
// from the Windows side, via `wsl.exe --distribution <name> -- <command>`.
// It lets the verification pipeline run against a guest without entering it.
type WSLCommandManager struct {
	Distribution string
	Runner       CommandManager // typically a LocalCommandManager
}

func (w *WSLCommandManager) Run(ctx context.Context, config CommandConfig) (CommandResult, error) {
	args := []string{"--distribution", w.Distribution, "--"}
	if config.Sudo {
		args = append(args, "sudo")
	}
	// wsl.exe does not forward arbitrary host variables into the guest, so
	// extra environment goes through env(1).
	if len(config.Env) > 0 {
		args = append(args, "env")
		args = append(args, config.Env...)
	}
	args = append(args, config.Command)
	args = append(args, config.Args...)

	return w.Runner.Run(ctx, CommandConfig{
		Command: "wsl.exe",
		Args:    args,
		Stdin:   config.Stdin,
	})
}
