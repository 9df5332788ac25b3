package provision

import (
	"os"
)

// VerifyScriptName is the file written into the invoking user's home.
const VerifyScriptName = "verify-docker.sh"

// verifyScript is the standalone checker the user runs after restarting the
// distribution. It mirrors VerifySteps for people who never touch dockhand
// again.
const verifyScript = `#!/usr/bin/env bash
# verify-docker.sh - written by dockhand; checks the Docker Engine install.
set -u

state="$(systemctl is-system-running 2>/dev/null)"
case "$state" in
    running|degraded)
        echo "systemd is up (state: $state)"
        ;;
    *)
        echo "systemd is not running (state: ${state:-unknown})" >&2
        echo "Restart the distribution first: run 'wsl --shutdown' from Windows, then reopen it." >&2
        exit 1
        ;;
esac

if ! sudo systemctl enable --now docker; then
    echo "Could not enable the docker service; check 'systemctl status docker'." >&2
    exit 1
fi

docker --version
docker compose version

echo "Running the hello-world smoke test..."
if output="$(docker run --rm hello-world 2>&1)"; then
    echo "$output"
    echo
    echo "Docker Engine is installed and working."
    echo "Next steps:"
    echo "  - New shells pick up the docker group automatically; for this one, run 'newgrp docker'."
    echo "  - Try something real: docker run -d -p 8080:80 nginx"
else
    echo "$output" >&2
    echo "hello-world failed." >&2
    echo "If this is a permission error, log out and back in so the docker group applies." >&2
    exit 1
fi
`

// WriteVerifyScript writes the checker to path and marks it executable.
func WriteVerifyScript(path string) error {
	return os.WriteFile(path, []byte(verifyScript), 0o755)
}

// VerifyScriptUpToDate reports whether path already holds the current
// script.
func VerifyScriptUpToDate(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return string(data) == verifyScript, nil
}
