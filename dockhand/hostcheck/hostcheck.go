// Package hostcheck holds the read-only probes the host pipeline gates on:
// the Windows version and the various reboot-pending markers. Probes never
// mutate anything; they are recomputed on every run.
package hostcheck

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	multierror "github.com/hashicorp/go-multierror"

	cm "github.com/dockhand/dockhand/dockhand/commandmanager"
)

// Registry locations whose mere presence marks a pending restart.
const (
	cbsRebootPendingKey = `HKLM\SOFTWARE\Microsoft\Windows\CurrentVersion\Component Based Servicing\RebootPending`
	wuRebootRequiredKey = `HKLM\SOFTWARE\Microsoft\Windows\CurrentVersion\WindowsUpdate\Auto Update\RebootRequired`
	sessionManagerKey   = `HKLM\SYSTEM\CurrentControlSet\Control\Session Manager`
	pendingRenamesValue = "PendingFileRenameOperations"
)

var versionPattern = regexp.MustCompile(`\[Version (\d+)\.(\d+)\.(\d+)`)

// WindowsVersion holds the parsed host version numbers.
type WindowsVersion struct {
	Major int
	Minor int
	Build int
}

func (v WindowsVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Build)
}

// Supported reports whether this version meets the required minimum. Windows
// 11 still reports major 10 with a higher build, so anything past the
// minimum major passes outright.
func (v WindowsVersion) Supported(minMajor, minBuild int) bool {
	if v.Major != minMajor {
		return v.Major > minMajor
	}
	return v.Build >= minBuild
}

// Checker answers the host pipeline's precondition questions.
type Checker struct {
	CommandManager cm.CommandManager
}

// Version reads the host version out of `cmd /c ver`.
func (c *Checker) Version(ctx context.Context) (WindowsVersion, error) {
	result, err := c.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "cmd",
		Args:    []string{"/c", "ver"},
	})
	if err != nil {
		return WindowsVersion{}, fmt.Errorf("querying Windows version: %w", err)
	}

	m := versionPattern.FindStringSubmatch(result.STDOUT)
	if m == nil {
		return WindowsVersion{}, fmt.Errorf("unrecognized ver output: %q", result.STDOUT)
	}

	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	build, _ := strconv.Atoi(m[3])
	return WindowsVersion{Major: major, Minor: minor, Build: build}, nil
}

// RestartPending reports whether any of the independent reboot markers is
// set. The flag is never cleared here; only an actual restart clears it.
func (c *Checker) RestartPending(ctx context.Context) (bool, error) {
	var errs *multierror.Error
	pending := false

	for _, key := range []string{cbsRebootPendingKey, wuRebootRequiredKey} {
		exists, err := c.regKeyExists(ctx, key)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		pending = pending || exists
	}

	exists, err := c.regValueExists(ctx, sessionManagerKey, pendingRenamesValue)
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	pending = pending || exists

	return pending, errs.ErrorOrNil()
}

func (c *Checker) regKeyExists(ctx context.Context, key string) (bool, error) {
	return c.regQuery(ctx, []string{"query", key})
}

func (c *Checker) regValueExists(ctx context.Context, key, value string) (bool, error) {
	return c.regQuery(ctx, []string{"query", key, "/v", value})
}

func (c *Checker) regQuery(ctx context.Context, args []string) (bool, error) {
	result, err := c.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "reg",
		Args:    args,
	})
	if err != nil {
		// reg exits 1 when the key or value is absent. That is a clean
		// negative, not a probe failure.
		if result.ExitCode != 0 {
			return false, nil
		}
		return false, fmt.Errorf("reg %v: %w", args, err)
	}
	return true, nil
}
