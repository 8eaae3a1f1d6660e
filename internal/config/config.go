// Package config provides configuration loading and management for espnanopb.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Mode controls how the pipeline reacts to a failed stage.
type Mode string

const (
	// ModeStrict halts on the first failed stage.
	ModeStrict Mode = "strict"
	// ModeBestEffort runs every stage and reports all failures at the end.
	ModeBestEffort Mode = "best-effort"
)

// UnmarshalText parses a mode name.
func (m *Mode) UnmarshalText(text []byte) error {
	switch Mode(strings.ToLower(strings.TrimSpace(string(text)))) {
	case ModeStrict, "":
		*m = ModeStrict
	case ModeBestEffort, "best_effort", "besteffort":
		*m = ModeBestEffort
	default:
		return fmt.Errorf("unknown mode %q (want %q or %q)", string(text), ModeStrict, ModeBestEffort)
	}
	return nil
}

// Strict reports whether failures should stop the pipeline.
func (m Mode) Strict() bool {
	return m != ModeBestEffort
}

// Config is the root configuration.
type Config struct {
	Mode       Mode       `json:"mode"       mapstructure:"mode"       yaml:"mode"`
	Generator  Generator  `json:"generator"  mapstructure:"generator"  yaml:"generator"`
	Artifacts  Artifacts  `json:"artifacts"  mapstructure:"artifacts"  yaml:"artifacts"`
	Repository Repository `json:"repository" mapstructure:"repository" yaml:"repository"`
	Tag        Tag        `json:"tag"        mapstructure:"tag"        yaml:"tag"`
	Journal    Journal    `json:"journal"    mapstructure:"journal"    yaml:"journal"`
}

// Generator describes the external schema generation script.
type Generator struct {
	Shell  string   `json:"shell"  mapstructure:"shell"  yaml:"shell"`
	Script string   `json:"script" mapstructure:"script" yaml:"script"`
	Args   []string `json:"args"   mapstructure:"args"   yaml:"args,omitempty"`
	Dir    string   `json:"dir"    mapstructure:"dir"    yaml:"dir"`
}

// Artifacts names the generated files and where they are copied to.
type Artifacts struct {
	Files       []string `json:"files"       mapstructure:"files"        yaml:"files"`
	SourceDir   string   `json:"source_dir"  mapstructure:"source_dir"   yaml:"source_dir"`
	Destination string   `json:"destination" mapstructure:"destination"  yaml:"destination"`
}

// Repository is the git working tree that receives the release tag.
type Repository struct {
	Dir    string `json:"dir"    mapstructure:"dir"    yaml:"dir"`
	Remote string `json:"remote" mapstructure:"remote" yaml:"remote"`
}

// Tag configures how operator input is interpreted as a tag name.
type Tag struct {
	Prefix        string `json:"prefix"         mapstructure:"prefix"         yaml:"prefix"`
	RequireSemver bool   `json:"require_semver" mapstructure:"require_semver" yaml:"require_semver"`
}

// Journal configures the local run history database.
type Journal struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled" yaml:"enabled"`
	Path    string `json:"path"    mapstructure:"path"    yaml:"path"`
}

// Default returns the configuration used when a key is not set anywhere.
// Destination and repository directory are intentionally left empty.
func Default() Config {
	return Config{
		Mode: ModeStrict,
		Generator: Generator{
			Shell:  "sh",
			Script: "./generateSchema.sh",
			Args:   []string{},
			Dir:    ".",
		},
		Artifacts: Artifacts{
			Files:     []string{"schema.pb.c", "schema.pb.h"},
			SourceDir: ".",
		},
		Repository: Repository{
			Remote: "origin",
		},
		Tag: Tag{
			Prefix: "v",
		},
		Journal: Journal{
			Enabled: true,
			Path:    filepath.Join(".espnanopb", "journal.db"),
		},
	}
}

// ResolvePaths returns a copy with relative directories anchored at base.
func (c Config) ResolvePaths(base string) Config {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	out := c
	out.Generator.Args = append([]string(nil), c.Generator.Args...)
	out.Artifacts.Files = append([]string(nil), c.Artifacts.Files...)
	out.Generator.Dir = abs(c.Generator.Dir)
	out.Artifacts.SourceDir = abs(c.Artifacts.SourceDir)
	out.Artifacts.Destination = abs(c.Artifacts.Destination)
	out.Repository.Dir = abs(c.Repository.Dir)
	out.Journal.Path = abs(c.Journal.Path)
	return out
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}
