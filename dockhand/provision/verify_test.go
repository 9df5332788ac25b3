package provision

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runVerify(t *testing.T, fake *fakeCommandManager) (Report, error) {
	t.Helper()
	cfg := NewVerifyConfig(fake, testLogger())
	runner := &Runner{Logger: testLogger()}
	return runner.Run(context.Background(), "verify", VerifySteps(cfg))
}

func TestVerifyAcceptsDegradedSystemd(t *testing.T) {
	fake := newFakeCommandManager()
	fake.results["systemctl is-system-running"] = resultWithStdout("degraded\n", 1)
	fake.errs["systemctl is-system-running"] = errors.New("exit status 1")
	fake.stdout("systemctl is-active docker", "active\n")
	fake.stdout("systemctl is-enabled docker", "enabled\n")
	fake.stdout("docker --version", "Docker version 27.0.3\n")
	fake.stdout("docker compose version", "Docker Compose version v2.28.1\n")
	fake.stdout("docker run --rm hello-world", "Hello from Docker!\n")

	report, err := runVerify(t, fake)

	require.NoError(t, err)
	assert.Equal(t, "success", report.Status)
	assert.Equal(t, StatusSkipped, stepStatus(t, report, "docker-service"))
}

func TestVerifyFailsWhenSystemdNotRunning(t *testing.T) {
	fake := newFakeCommandManager()
	fake.results["systemctl is-system-running"] = resultWithStdout("offline\n", 1)
	fake.errs["systemctl is-system-running"] = errors.New("exit status 1")

	report, err := runVerify(t, fake)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "wsl --shutdown")
	assert.Equal(t, "failed", report.Status)
	for _, call := range fake.calls {
		assert.Falsef(t, strings.HasPrefix(call, "docker"), "docker probed before systemd was up: %q", call)
	}
}

func TestVerifyEnablesDockerWhenInactive(t *testing.T) {
	fake := newFakeCommandManager()
	fake.stdout("systemctl is-system-running", "running\n")
	fake.stdout("systemctl is-active docker", "inactive\n")
	fake.stdout("docker --version", "Docker version 27.0.3\n")
	fake.stdout("docker compose version", "Docker Compose version v2.28.1\n")
	fake.stdout("docker run --rm hello-world", "Hello from Docker!\n")

	report, err := runVerify(t, fake)

	require.NoError(t, err)
	assert.Contains(t, fake.calls, "systemctl enable --now docker")
	assert.Equal(t, StatusSuccess, stepStatus(t, report, "docker-service"))
}

func TestVerifySmokeTestFailure(t *testing.T) {
	fake := newFakeCommandManager()
	fake.stdout("systemctl is-system-running", "running\n")
	fake.stdout("systemctl is-active docker", "active\n")
	fake.stdout("systemctl is-enabled docker", "enabled\n")
	fake.stdout("docker --version", "Docker version 27.0.3\n")
	fake.stdout("docker compose version", "Docker Compose version v2.28.1\n")
	fake.results["docker run --rm hello-world"] = resultWithStderr("permission denied", 126)
	fake.errs["docker run --rm hello-world"] = errors.New("exit status 126")

	report, err := runVerify(t, fake)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.Equal(t, "failed", report.Status)
}
