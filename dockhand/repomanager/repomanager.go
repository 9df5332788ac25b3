// Package repomanager registers Docker's apt repository inside the guest:
// trust anchor first, sources entry second, so a failure partway never
// leaves an unverifiable repository trusted.
package repomanager

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/openpgp/armor"
	"gopkg.in/ini.v1"

	cm "github.com/dockhand/dockhand/dockhand/commandmanager"
)

const (
	// DefaultKeyURL is Docker's signing key distribution endpoint.
	DefaultKeyURL = "https://download.docker.com/linux/ubuntu/gpg"

	// DefaultKeyringFile is where the de-armored key is stored.
	DefaultKeyringFile = "/etc/apt/keyrings/docker.gpg"

	// DefaultSourcesFile is the dedicated apt sources entry.
	DefaultSourcesFile = "/etc/apt/sources.list.d/docker.list"

	// DefaultOSReleaseFile identifies the distribution codename.
	DefaultOSReleaseFile = "/etc/os-release"

	publicKeyBlockType = "PGP PUBLIC KEY BLOCK"
)

// AptRepoManager fetches the vendor signing key and composes the repository
// definition for the running distribution.
type AptRepoManager struct {
	CommandManager cm.CommandManager
	HTTPClient     *http.Client

	KeyURL        string
	KeyringFile   string
	SourcesFile   string
	OSReleaseFile string
}

// New returns an AptRepoManager with the standard Docker/Ubuntu locations.
func New(manager cm.CommandManager) *AptRepoManager {
	return &AptRepoManager{
		CommandManager: manager,
		HTTPClient:     http.DefaultClient,
		KeyURL:         DefaultKeyURL,
		KeyringFile:    DefaultKeyringFile,
		SourcesFile:    DefaultSourcesFile,
		OSReleaseFile:  DefaultOSReleaseFile,
	}
}

// Architecture returns the dpkg architecture name (amd64, arm64, ...).
func (r *AptRepoManager) Architecture(ctx context.Context) (string, error) {
	result, err := r.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "dpkg",
		Args:    []string{"--print-architecture"},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.STDOUT), nil
}

// Codename reads the distribution codename out of os-release.
func (r *AptRepoManager) Codename() (string, error) {
	cfg, err := ini.Load(r.OSReleaseFile)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", r.OSReleaseFile, err)
	}
	section := cfg.Section(ini.DefaultSection)
	for _, key := range []string{"VERSION_CODENAME", "UBUNTU_CODENAME"} {
		if section.HasKey(key) {
			if codename := section.Key(key).String(); codename != "" {
				return codename, nil
			}
		}
	}
	return "", fmt.Errorf("no codename in %s", r.OSReleaseFile)
}

// FetchKey downloads the vendor's armored signing key and returns it in
// binary (de-armored) form, ready for the apt keyring.
func (r *AptRepoManager) FetchKey(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.KeyURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching signing key: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching signing key: unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading signing key: %w", err)
	}
	return dearmor(body)
}

// InstallKey fetches the key and writes it world-readable into the keyring
// directory, creating the directory with the permissions apt expects.
func (r *AptRepoManager) InstallKey(ctx context.Context) error {
	key, err := r.FetchKey(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.KeyringFile), 0o755); err != nil {
		return fmt.Errorf("creating keyring directory: %w", err)
	}
	if err := os.WriteFile(r.KeyringFile, key, 0o644); err != nil {
		return fmt.Errorf("writing keyring: %w", err)
	}
	return nil
}

// RepoLine composes the single-line repository definition.
func (r *AptRepoManager) RepoLine(arch, codename string) string {
	return fmt.Sprintf(
		"deb [arch=%s signed-by=%s] https://download.docker.com/linux/ubuntu %s stable",
		arch, r.KeyringFile, codename,
	)
}

// WriteSources probes the architecture and codename and writes the sources
// entry. The keyring must already be in place.
func (r *AptRepoManager) WriteSources(ctx context.Context) error {
	arch, err := r.Architecture(ctx)
	if err != nil {
		return fmt.Errorf("determining architecture: %w", err)
	}
	codename, err := r.Codename()
	if err != nil {
		return err
	}
	line := r.RepoLine(arch, codename) + "\n"
	if err := os.WriteFile(r.SourcesFile, []byte(line), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", r.SourcesFile, err)
	}
	return nil
}

// Registered reports whether both the keyring and the sources entry exist.
func (r *AptRepoManager) Registered() bool {
	for _, path := range []string{r.KeyringFile, r.SourcesFile} {
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	return true
}

func dearmor(data []byte) ([]byte, error) {
	block, err := armor.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding armored key: %w", err)
	}
	if block.Type != publicKeyBlockType {
		return nil, fmt.Errorf("unexpected armor block type %q", block.Type)
	}
	return io.ReadAll(block.Body)
}
