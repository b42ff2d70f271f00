// Package manifest handles lox.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest file looked up by Load and FindAndLoad.
const FileName = "lox.toml"

// Manifest represents a lox.toml project configuration.
type Manifest struct {
	Project Project   `toml:"project"`
	REPL    REPL      `toml:"repl"`
	Log     LogConfig `toml:"log"`

	// Dir is the directory containing the lox.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata and the scripts to run.
type Project struct {
	Name  string `toml:"name"`
	Entry string `toml:"entry"`

	// Prelude scripts run, in order, before the entry or the REPL.
	Prelude []string `toml:"prelude"`
}

// REPL configures the interactive prompt.
type REPL struct {
	History string `toml:"history"`
	Prompt  string `toml:"prompt"`
	Echo    *bool  `toml:"echo"`
}

// LogConfig configures diagnostics logging. Verbosity follows commonlog:
// 0 logs errors only, each step up adds a level.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no lox.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

// Load parses a lox.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	meta, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	m.applyDefaults()

	return &m, nil
}

func (m *Manifest) applyDefaults() {
	if m.REPL.Prompt == "" {
		m.REPL.Prompt = "> "
	}
	if m.REPL.History == "" {
		m.REPL.History = "~/.lox_history"
	}
	if m.REPL.Echo == nil {
		echo := true
		m.REPL.Echo = &echo
	}
}

// FindAndLoad walks up from startDir to find a lox.toml file,
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

// EntryPath returns the absolute path of the entry script, or "" if none
// is configured.
func (m *Manifest) EntryPath() string {
	if m.Project.Entry == "" {
		return ""
	}
	return m.resolve(m.Project.Entry)
}

// PreludePaths returns absolute paths for the prelude scripts.
func (m *Manifest) PreludePaths() []string {
	var paths []string
	for _, p := range m.Project.Prelude {
		paths = append(paths, m.resolve(p))
	}
	return paths
}

// HistoryPath returns the REPL history file with a leading ~ expanded.
// Relative paths are taken from the manifest directory.
func (m *Manifest) HistoryPath() string {
	h := m.REPL.History
	if h == "~" || strings.HasPrefix(h, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		return filepath.Join(home, strings.TrimPrefix(h[1:], "/"))
	}
	return m.resolve(h)
}

// EchoEnabled reports whether the REPL prints bare expression values.
func (m *Manifest) EchoEnabled() bool {
	return m.REPL.Echo == nil || *m.REPL.Echo
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) || m.Dir == "" {
		return p
	}
	return filepath.Join(m.Dir, p)
}
