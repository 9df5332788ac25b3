// Package bootconfig edits the WSL boot configuration (/etc/wsl.conf) to
// turn on systemd. The file is third-party owned, so edits go through a
// section/key model instead of line substitution: unrelated sections, keys
// and comments survive the rewrite, and a .backup copy is taken before the
// first modification.
package bootconfig

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

const (
	// DefaultPath is where WSL reads its boot configuration inside the
	// guest.
	DefaultPath = "/etc/wsl.conf"

	bootSection = "boot"
	systemdKey  = "systemd"
)

func init() {
	// wsl.conf is conventionally written without spaces around '='.
	ini.PrettyFormat = false
}

// Editor performs the read-modify-write on the boot configuration file.
type Editor struct {
	Path string
}

// SystemdEnabled reports whether the boot section already requests systemd.
// A missing file or missing key reads as disabled.
func (e *Editor) SystemdEnabled() (bool, error) {
	cfg, exists, err := e.load()
	if err != nil || !exists {
		return false, err
	}
	section, err := cfg.GetSection(bootSection)
	if err != nil {
		return false, nil
	}
	if !section.HasKey(systemdKey) {
		return false, nil
	}
	return strings.EqualFold(section.Key(systemdKey).String(), "true"), nil
}

// EnableSystemd sets systemd=true under [boot], creating the file or the
// section as needed. It reports whether anything was written. The change
// takes effect only after the distribution is restarted (wsl --shutdown).
func (e *Editor) EnableSystemd() (bool, error) {
	enabled, err := e.SystemdEnabled()
	if err != nil {
		return false, err
	}
	if enabled {
		return false, nil
	}

	cfg, exists, err := e.load()
	if err != nil {
		return false, err
	}
	if exists {
		if err := e.backup(); err != nil {
			return false, fmt.Errorf("backing up %s: %w", e.Path, err)
		}
	}

	cfg.Section(bootSection).Key(systemdKey).SetValue("true")
	if err := cfg.SaveTo(e.Path); err != nil {
		return false, fmt.Errorf("writing %s: %w", e.Path, err)
	}
	return true, nil
}

// BackupPath returns where the pre-modification copy lands.
func (e *Editor) BackupPath() string {
	return e.Path + ".backup"
}

func (e *Editor) load() (*ini.File, bool, error) {
	if _, err := os.Stat(e.Path); err != nil {
		if os.IsNotExist(err) {
			return ini.Empty(), false, nil
		}
		return nil, false, err
	}
	cfg, err := ini.Load(e.Path)
	if err != nil {
		return nil, true, fmt.Errorf("parsing %s: %w", e.Path, err)
	}
	return cfg, true, nil
}

// backup copies the current file next to itself once; an existing backup is
// never overwritten, so the copy always reflects the pre-dockhand state.
func (e *Editor) backup() error {
	if _, err := os.Stat(e.BackupPath()); err == nil {
		return nil
	}
	data, err := os.ReadFile(e.Path)
	if err != nil {
		return err
	}
	return os.WriteFile(e.BackupPath(), data, 0o644)
}
