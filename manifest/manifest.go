// Package manifest handles hearth.toml driver configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-version"

	"github.com/chazu/hearth/kfun"
)

// FileName is the name of the driver configuration file.
const FileName = "hearth.toml"

// Manifest represents a hearth.toml driver configuration.
type Manifest struct {
	Driver   Driver         `toml:"driver"`
	Table    TableConfig    `toml:"table"`
	Snapshot SnapshotConfig `toml:"snapshot"`
	Log      LogConfig      `toml:"log"`

	// Dir is the directory containing the hearth.toml file (set at load time).
	Dir string `toml:"-"`
}

// Driver identifies the driver build. Snapshot checkpoints are tagged with
// the version.
type Driver struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// TableConfig configures the kfun index space.
type TableConfig struct {
	ExtensionOffset int `toml:"extension-offset"`
	MaxIndex        int `toml:"max-index"`
}

// DefaultKeep is the number of checkpoints kept when keep is unset.
const DefaultKeep = 10

// SnapshotConfig configures the checkpoint store.
type SnapshotConfig struct {
	Store          string `toml:"store"`
	// Keep is nil when hearth.toml does not set it. Zero keeps no
	// checkpoints after a save.
	Keep           *int   `toml:"keep"`
	ReclaimOnStart bool   `toml:"reclaim-on-start"`
}

// KeepCount returns how many checkpoints to keep when pruning.
func (c SnapshotConfig) KeepCount() int {
	if c.Keep == nil {
		return DefaultKeep
	}
	return *c.Keep
}

// LogConfig configures logging.
type LogConfig struct {
	Verbosity int `toml:"verbosity"`
}

// Default returns the configuration used when no hearth.toml exists.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.applyDefaults()
	return m
}

// Load parses a hearth.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a hearth.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

func (m *Manifest) applyDefaults() {
	def := kfun.DefaultLayout()
	if m.Driver.Name == "" {
		m.Driver.Name = "hearth"
	}
	if m.Driver.Version == "" {
		m.Driver.Version = "0.1.0"
	}
	if m.Table.ExtensionOffset == 0 {
		m.Table.ExtensionOffset = def.ExtensionOffset
	}
	if m.Table.MaxIndex == 0 {
		m.Table.MaxIndex = def.MaxIndex
	}
	if m.Snapshot.Store == "" {
		m.Snapshot.Store = filepath.Join(".hearth", "snapshots.db")
	}
}

// Validate checks the configuration for values the driver cannot start
// with. Whether the layout fits the built-ins is checked when the kfun
// table is finalized.
func (m *Manifest) Validate() error {
	if _, err := version.NewVersion(m.Driver.Version); err != nil {
		return fmt.Errorf("driver version %q: %w", m.Driver.Version, err)
	}
	if m.Table.ExtensionOffset < 0 || m.Table.MaxIndex <= m.Table.ExtensionOffset {
		return fmt.Errorf("table: extension-offset %d must lie below max-index %d",
			m.Table.ExtensionOffset, m.Table.MaxIndex)
	}
	if m.Table.MaxIndex > 1<<16 {
		return fmt.Errorf("table: max-index %d exceeds %d", m.Table.MaxIndex, 1<<16)
	}
	if keep := m.Snapshot.KeepCount(); keep < 0 {
		return fmt.Errorf("snapshot: keep must not be negative, got %d", keep)
	}
	return nil
}

// Layout returns the kfun index space layout.
func (m *Manifest) Layout() kfun.Layout {
	return kfun.Layout{
		ExtensionOffset: m.Table.ExtensionOffset,
		MaxIndex:        m.Table.MaxIndex,
	}
}

// StorePath returns the absolute path of the checkpoint database.
func (m *Manifest) StorePath() string {
	if filepath.IsAbs(m.Snapshot.Store) {
		return m.Snapshot.Store
	}
	return filepath.Join(m.Dir, m.Snapshot.Store)
}
