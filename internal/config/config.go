// Package config loads the wikichain configuration file.
//
// The file is YAML. It is checked against the CUE schema in schema.cue,
// which also supplies defaults, so a missing or empty file yields a usable
// Config. Unknown keys are rejected.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Backend names.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Config is the resolved configuration.
type Config struct {
	Database string `json:"database"`
	Backend  string `json:"backend"`
	Agent    string `json:"agent,omitempty"`
	Log      Log    `json:"log"`
}

// Log configures the process logger.
type Log struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// SlogLevel maps the configured level name to a slog.Level.
func (l Log) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg, err := decode(map[string]any{})
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema rejects empty input: %v", err))
	}
	return cfg
}

// Load reads the YAML file at path. An empty path returns Default().
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse validates YAML bytes against the schema and applies defaults.
func Parse(data []byte) (Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return decode(raw)
}

func decode(raw map[string]any) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	val := ctx.Encode(raw)
	if err := val.Err(); err != nil {
		return Config{}, fmt.Errorf("encode: %w", err)
	}

	unified := def.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("invalid configuration:\n%s", cueerrors.Details(err, nil))
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode: %w", err)
	}
	return cfg, nil
}
