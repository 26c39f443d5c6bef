package main

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ProjectConfig represents an optional ison.toml project configuration
// file, grounded on the teacher's dang.toml project config: a small
// TOML document of search paths and defaults that save the caller from
// repeating flags on every invocation.
type ProjectConfig struct {
	// IncludePath lists additional directories __includes__ paths are
	// resolved against, tried in order after the top-level input
	// document's directory.
	IncludePath []string `toml:"include_path"`

	// HostAliases maps os.Hostname()'s actual return value to additional
	// names that should also be tried against __platform__ glob node
	// keys, for machines whose reported hostname doesn't match the
	// glob a document author had in mind.
	HostAliases map[string][]string `toml:"host_aliases"`

	// Args supplies default run.kwargs entries, overridden by any
	// matching -a/--args flag on the command line.
	Args map[string]string `toml:"args"`
}

// LoadProjectConfig parses an ison.toml file at path.
func LoadProjectConfig(path string) (*ProjectConfig, error) {
	var cfg ProjectConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FindProjectConfig walks up from dir looking for ison.toml, stopping at
// the first directory found, at a .git boundary, or at the filesystem
// root — whichever comes first.
func FindProjectConfig(dir string) (string, *ProjectConfig, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, err
	}
	for {
		path := filepath.Join(dir, "ison.toml")
		if _, statErr := os.Stat(path); statErr == nil {
			cfg, err := LoadProjectConfig(path)
			if err != nil {
				return "", nil, err
			}
			return path, cfg, nil
		}

		if _, statErr := os.Stat(filepath.Join(dir, ".git")); statErr == nil {
			return "", nil, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil, nil
		}
		dir = parent
	}
}
