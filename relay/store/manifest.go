package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const SchemaVersionV1 uint32 = 1

// Manifest describes a relay data directory. The tip fields are a status
// snapshot written by the operator tooling; the journal is authoritative.
type Manifest struct {
	SchemaVersion uint32  `json:"schema_version"`
	Network       string  `json:"network"`
	Backend       Backend `json:"backend"`

	TipHashHex           string `json:"tip_hash,omitempty"`
	TipHeight            uint32 `json:"tip_height,omitempty"`
	TipCumulativeWorkDec string `json:"tip_cumulative_work,omitempty"`
	Records              uint64 `json:"records,omitempty"`
}

func manifestPath(dir string) string {
	return filepath.Join(dir, "MANIFEST.json")
}

func readManifest(dir string) (*Manifest, error) {
	b, err := os.ReadFile(manifestPath(dir))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrap(err, "manifest json")
	}
	return &m, nil
}

// writeManifestAtomic writes MANIFEST.json as a crash-safe commit point:
// write temp -> fsync temp -> rename -> fsync dir.
func writeManifestAtomic(dir string, m *Manifest) error {
	if m == nil {
		return errors.New("manifest: nil")
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "manifest json")
	}
	b = append(b, '\n')

	final := manifestPath(dir)
	tmp := final + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600) // #nosec G304 -- tmp path is derived from operator-controlled datadir.
	if err != nil {
		return errors.Wrap(err, "manifest open tmp")
	}
	_, werr := f.Write(b)
	serr := f.Sync()
	cerr := f.Close()
	if werr != nil {
		return errors.Wrap(werr, "manifest write tmp")
	}
	if serr != nil {
		return errors.Wrap(serr, "manifest fsync tmp")
	}
	if cerr != nil {
		return errors.Wrap(cerr, "manifest close tmp")
	}
	if err := os.Rename(tmp, final); err != nil {
		return errors.Wrap(err, "manifest rename")
	}

	d, err := os.Open(dir) // #nosec G304 -- dir is derived from operator-controlled datadir.
	if err != nil {
		return errors.Wrap(err, "manifest fsync dir open")
	}
	if err := d.Sync(); err != nil {
		_ = d.Close()
		return errors.Wrap(err, "manifest fsync dir")
	}
	return errors.Wrap(d.Close(), "manifest fsync dir close")
}
