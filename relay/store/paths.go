package store

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// NetworkDir returns the on-disk directory for a network under datadir:
//
//	datadir/<network>/
func NetworkDir(datadir string, network string) string {
	return filepath.Join(datadir, network)
}

// LogDir is where the operator CLI keeps rotated logs.
func LogDir(datadir string) string {
	return filepath.Join(datadir, "logs")
}

func ensureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return errors.Wrapf(err, "mkdir %s", path)
	}
	return nil
}
