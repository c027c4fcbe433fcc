// Package dotdir manages the .hearth/ and ~/.hearth directories that hold the
// config file and the default SQLite database.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	dirName = ".hearth"

	// DatabaseFile is the default SQLite database name inside the dot directory.
	DatabaseFile = "hearth.db"

	sqliteEnv = "HEARTH_SQLITE"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path to a .hearth/ directory, creating it when
// needed. Order of precedence:
//  1. Provided override
//  2. Local ./.hearth/ dir
//  3. Home ~/.hearth/ dir
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating hearth directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// SQLitePath resolves the database file the service should open when no
// explicit path is configured: HEARTH_SQLITE, then hearth.db inside the
// resolved dot directory.
func (m *Manager) SQLitePath(overrideDir string) (string, error) {
	if envPath := strings.TrimSpace(os.Getenv(sqliteEnv)); envPath != "" {
		return envPath, nil
	}

	target, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}

	return filepath.Join(target, DatabaseFile), nil
}

func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
