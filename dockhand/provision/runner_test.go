package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cm "github.com/dockhand/dockhand/dockhand/commandmanager"
)

// fakeCommandManager scripts results per rendered command line and records
// every invocation, so pipeline tests can assert both outcomes and ordering.
type fakeCommandManager struct {
	results map[string]cm.CommandResult
	errs    map[string]error
	calls   []string
}

func newFakeCommandManager() *fakeCommandManager {
	return &fakeCommandManager{
		results: map[string]cm.CommandResult{},
		errs:    map[string]error{},
	}
}

func (f *fakeCommandManager) Run(ctx context.Context, config cm.CommandConfig) (cm.CommandResult, error) {
	line := config.Line()
	f.calls = append(f.calls, line)
	return f.results[line], f.errs[line]
}

// absent scripts a command to exit 1, the way probes report a negative.
func (f *fakeCommandManager) absent(lines ...string) {
	for _, line := range lines {
		f.results[line] = cm.CommandResult{ExitCode: 1}
		f.errs[line] = errors.New("exit status 1")
	}
}

func (f *fakeCommandManager) stdout(line, out string) {
	f.results[line] = cm.CommandResult{STDOUT: out}
	delete(f.errs, line)
}

func (f *fakeCommandManager) fail(line string, err error) {
	f.errs[line] = err
}

func indexOf(t *testing.T, calls []string, want func(string) bool, desc string) int {
	t.Helper()
	for i, call := range calls {
		if want(call) {
			return i
		}
	}
	t.Fatalf("no call matching %s in %v", desc, calls)
	return -1
}

func resultWithStdout(out string, code int) cm.CommandResult {
	return cm.CommandResult{STDOUT: out, ExitCode: code}
}

func resultWithStderr(errOut string, code int) cm.CommandResult {
	return cm.CommandResult{STDERR: errOut, ExitCode: code}
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func stepStatus(t *testing.T, report Report, name string) StepStatus {
	t.Helper()
	for _, s := range report.Steps {
		if s.Name == name {
			return s.Status
		}
	}
	t.Fatalf("step %s not in report %+v", name, report.Steps)
	return ""
}

func TestRunnerSkipsSatisfiedGuards(t *testing.T) {
	ran := false
	steps := []Step{{
		Name: "guarded",
		Guard: func(ctx context.Context) (bool, string, error) {
			return true, "already done", nil
		},
		Action: func(ctx context.Context) error {
			ran = true
			return nil
		},
	}}

	runner := &Runner{Logger: testLogger()}
	report, err := runner.Run(context.Background(), "test", steps)

	require.NoError(t, err)
	assert.False(t, ran)
	assert.Equal(t, StatusSkipped, stepStatus(t, report, "guarded"))
	assert.Equal(t, "already done", report.Steps[0].Message)
}

func TestRunnerAbortsOnHardFailure(t *testing.T) {
	reached := false
	steps := []Step{
		{
			Name:      "breaks",
			OnFailure: Abort,
			Action:    func(ctx context.Context) error { return errors.New("boom") },
		},
		{
			Name:   "unreached",
			Action: func(ctx context.Context) error { reached = true; return nil },
		},
	}

	runner := &Runner{Logger: testLogger()}
	report, err := runner.Run(context.Background(), "test", steps)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "step breaks")
	assert.False(t, reached)
	assert.Equal(t, "failed", report.Status)
	assert.Len(t, report.Steps, 1)
}

func TestRunnerWarnPolicyContinues(t *testing.T) {
	reached := false
	steps := []Step{
		{
			Name:      "flaky",
			OnFailure: Warn,
			Action:    func(ctx context.Context) error { return errors.New("meh") },
		},
		{
			Name:   "next",
			Action: func(ctx context.Context) error { reached = true; return nil },
		},
	}

	runner := &Runner{Logger: testLogger()}
	report, err := runner.Run(context.Background(), "test", steps)

	require.NoError(t, err)
	assert.True(t, reached)
	assert.Equal(t, StatusWarned, stepStatus(t, report, "flaky"))
	assert.Equal(t, "success", report.Status)
}

func TestRunnerDefersOnRestartRequired(t *testing.T) {
	reached := false
	steps := []Step{
		{
			Name: "installs",
			Action: func(ctx context.Context) error {
				return fmt.Errorf("%w: restart first", ErrRestartRequired)
			},
		},
		{
			Name:   "unreached",
			Action: func(ctx context.Context) error { reached = true; return nil },
		},
	}

	runner := &Runner{Logger: testLogger()}
	report, err := runner.Run(context.Background(), "test", steps)

	require.ErrorIs(t, err, ErrRestartRequired)
	assert.False(t, reached)
	assert.Equal(t, "deferred", report.Status)
	assert.Equal(t, StatusDeferred, stepStatus(t, report, "installs"))
}

func TestRunnerGuardErrorAborts(t *testing.T) {
	steps := []Step{{
		Name: "blind",
		Guard: func(ctx context.Context) (bool, string, error) {
			return false, "", errors.New("probe broke")
		},
		Action: func(ctx context.Context) error { return nil },
	}}

	runner := &Runner{Logger: testLogger()}
	report, err := runner.Run(context.Background(), "test", steps)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "evaluating guard")
	assert.Equal(t, "failed", report.Status)
}

func TestRunnerDryRunTouchesNothing(t *testing.T) {
	steps := []Step{{
		Name: "real",
		Guard: func(ctx context.Context) (bool, string, error) {
			t.Fatal("guard evaluated during dry run")
			return false, "", nil
		},
		Action: func(ctx context.Context) error {
			t.Fatal("action ran during dry run")
			return nil
		},
	}}

	runner := &Runner{Logger: testLogger(), DryRun: true}
	report, err := runner.Run(context.Background(), "test", steps)

	require.NoError(t, err)
	assert.Equal(t, StatusPlanned, stepStatus(t, report, "real"))
}

func TestReportWriteFile(t *testing.T) {
	report := Report{Pipeline: "guest", Status: "success"}
	path := filepath.Join(t.TempDir(), "report.json")

	require.NoError(t, report.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"pipeline": "guest"`)
}
