package usermanager

import (
	"context"
	"os"
	"os/user"
)

// UserManager encompasses the account operations the guest pipeline needs.
type UserManager interface {
	// InGroup reports whether username is a member of group.
	InGroup(ctx context.Context, username, group string) (bool, error)

	// AddToGroup adds username to group as a supplementary group.
	AddToGroup(ctx context.Context, username, group string) error

	// EnsureGroup creates group if it does not exist yet.
	EnsureGroup(ctx context.Context, group string) error
}

// InvokingUser resolves the account the provisioner acts on behalf of. Under
// sudo that is the original user, not root.
func InvokingUser() (string, error) {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		return sudoUser, nil
	}
	current, err := user.Current()
	if err != nil {
		return "", err
	}
	return current.Username, nil
}

// HomeDir returns the home directory of the named user.
func HomeDir(username string) (string, error) {
	u, err := user.Lookup(username)
	if err != nil {
		return "", err
	}
	return u.HomeDir, nil
}
