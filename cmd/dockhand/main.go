// Command dockhand provisions Docker Engine inside a WSL2 Ubuntu
// distribution without Docker Desktop. `dockhand host` prepares the Windows
// side, `dockhand guest` installs the engine inside the distribution, and
// `dockhand verify` checks the result after the required restart.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dockhand/dockhand/dockhand/commandmanager"
	"github.com/dockhand/dockhand/dockhand/provision"
	"github.com/dockhand/dockhand/dockhand/usermanager"
	"github.com/dockhand/dockhand/logger"
)

type options struct {
	debug      bool
	dryRun     bool
	reportPath string
	logFile    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "dockhand",
		Short:         "Provision Docker Engine inside WSL2 without Docker Desktop",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "print the plan without touching anything")
	root.PersistentFlags().StringVar(&opts.reportPath, "report", "", "write a JSON step report to this file")
	root.PersistentFlags().StringVar(&opts.logFile, "log", "", "also append logs to this file")

	root.AddCommand(newHostCmd(opts), newGuestCmd(opts), newVerifyCmd(opts))
	return root
}

func newHostCmd(opts *options) *cobra.Command {
	var distro string

	cmd := &cobra.Command{
		Use:   "host",
		Short: "Prepare Windows: WSL2 subsystem and the Ubuntu distribution",
		RunE: func(cmd *cobra.Command, args []string) error {
			if runtime.GOOS != "windows" {
				return errors.New("dockhand host must run on Windows")
			}
			log, cleanup, err := newLogger(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			manager := &commandmanager.LocalCommandManager{Logger: log}
			cfg := provision.NewHostConfig(manager, log, distro)
			return runPipeline(log, opts, "host", provision.HostSteps(cfg))
		},
	}

	cmd.Flags().StringVar(&distro, "distro", provision.DefaultDistribution, "WSL distribution to install")
	return cmd
}

func newGuestCmd(opts *options) *cobra.Command {
	var (
		username string
		yes      bool
	)

	cmd := &cobra.Command{
		Use:   "guest",
		Short: "Install Docker Engine inside the WSL2 distribution (run with sudo)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if runtime.GOOS != "linux" {
				return errors.New("dockhand guest must run inside the WSL distribution")
			}
			log, cleanup, err := newLogger(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			if username == "" {
				username, err = usermanager.InvokingUser()
				if err != nil {
					return fmt.Errorf("resolving the invoking user: %w", err)
				}
			}
			home, err := usermanager.HomeDir(username)
			if err != nil {
				return fmt.Errorf("resolving %s's home directory: %w", username, err)
			}

			if !opts.dryRun && !yes {
				fmt.Println("dockhand will remove conflicting container packages, register Docker's apt")
				fmt.Println("repository, install Docker Engine, and enable systemd in /etc/wsl.conf.")
				if !confirm("Continue? [y/N]: ") {
					log.Info("Cancelled")
					return nil
				}
			}

			manager := &commandmanager.LocalCommandManager{Logger: log}
			scriptPath := filepath.Join(home, provision.VerifyScriptName)
			cfg := provision.NewGuestConfig(manager, log, username, scriptPath, confirm)
			return runPipeline(log, opts, "guest", provision.GuestSteps(cfg))
		},
	}

	cmd.Flags().StringVar(&username, "user", "", "user granted docker access (default: the invoking user)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newVerifyCmd(opts *options) *cobra.Command {
	var distro string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the installation after restarting the distribution",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, cleanup, err := newLogger(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			var manager commandmanager.CommandManager = &commandmanager.LocalCommandManager{Logger: log}
			if runtime.GOOS == "windows" {
				// From Windows the checks run inside the distribution.
				if distro == "" {
					distro = provision.DefaultDistribution
				}
				manager = &commandmanager.WSLCommandManager{Distribution: distro, Runner: manager}
			}

			cfg := provision.NewVerifyConfig(manager, log)
			return runPipeline(log, opts, "verify", provision.VerifySteps(cfg))
		},
	}

	cmd.Flags().StringVar(&distro, "distro", "", "distribution to verify when running from Windows")
	return cmd
}

func newLogger(opts *options) (*logrus.Logger, func(), error) {
	log := logger.New(opts.debug)
	cleanup := func() {}
	if opts.logFile != "" {
		closer, err := logger.WithFile(log, opts.logFile)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { closer.Close() }
	}
	return log, cleanup, nil
}

func runPipeline(log *logrus.Logger, opts *options, name string, steps []provision.Step) error {
	runner := &provision.Runner{Logger: log, DryRun: opts.dryRun}
	report, err := runner.Run(context.Background(), name, steps)

	if opts.reportPath != "" {
		if werr := report.WriteFile(opts.reportPath); werr != nil {
			log.WithError(werr).Warn("Failed to write report")
		}
	}

	// Deferral is a clean exit; the step already told the user what to do.
	if errors.Is(err, provision.ErrRestartRequired) {
		return nil
	}
	return err
}

func confirm(prompt string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false
	}
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
