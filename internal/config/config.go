// Package config loads screenq settings from defaults, a YAML file,
// SCREENQ_ environment variables and command-line flags, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/bawdo/screenq/screener"
)

// EnvPrefix is the prefix for environment overrides. Nested keys use a
// double underscore: SCREENQ_STORE__DSN sets store.dsn.
const EnvPrefix = "SCREENQ_"

// flagKeys maps flag names to config keys where the two differ. Other
// flags map by replacing dashes with underscores.
var flagKeys = map[string]string{
	"engine":     "store.engine",
	"dsn":        "store.dsn",
	"size":       "body.size",
	"offset":     "body.offset",
	"sort-field": "body.sort_field",
	"sort-type":  "body.sort_type",
	"quote-type": "body.quote_type",
	"region":     "regions",
}

// DefaultFiles are searched in the working directory when no file is given.
var DefaultFiles = []string{"screenq.yaml", "screenq.yml"}

// StoreConfig selects the database used for recording and local screening.
type StoreConfig struct {
	Engine string `koanf:"engine"`
	DSN    string `koanf:"dsn"`
}

// Config is the merged configuration.
type Config struct {
	Endpoints screener.Endpoints `koanf:"endpoints"`
	Body      screener.Body      `koanf:"body"`
	Timeout   time.Duration      `koanf:"timeout"`
	UserAgent string             `koanf:"user_agent"`
	LogLevel  string             `koanf:"log_level"`
	Regions   []string           `koanf:"regions"`
	Store     StoreConfig        `koanf:"store"`

	// File is the config file that was loaded, or "".
	File string `koanf:"-"`
}

func defaults() map[string]any {
	b := screener.DefaultBody()
	e := screener.DefaultEndpoints()
	return map[string]any{
		"endpoints.screener":   e.Screener,
		"endpoints.predefined": e.Predefined,
		"body.offset":          b.Offset,
		"body.size":            b.Size,
		"body.sort_field":      b.SortField,
		"body.sort_type":       b.SortType,
		"body.quote_type":      b.QuoteType,
		"body.user_id":         b.UserID,
		"body.user_id_type":    b.UserIDType,
		"timeout":              "10s",
		"user_agent":           "screenq/1.0",
		"log_level":            "warn",
		"regions":              []string{"us"},
		"store.engine":         "sqlite",
		"store.dsn":            "",
	}
}

// Load merges the configuration sources. cfgFile may be empty, in which
// case DefaultFiles are tried. flags may be nil; only flags the user
// changed override lower layers, keyed by FlagKey.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}

	used, err := findFile(cfgFile)
	if err != nil {
		return nil, err
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: %s: %w", used, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: env: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return FlagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("config: flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.File = used
	cfg.Body.SortType = strings.ToUpper(cfg.Body.SortType)
	cfg.Body.QuoteType = strings.ToUpper(cfg.Body.QuoteType)
	if err := cfg.Body.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FlagKey returns the config key a flag name overrides.
func FlagKey(name string) string {
	if key, ok := flagKeys[name]; ok {
		return key
	}
	return strings.ReplaceAll(name, "-", "_")
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func findFile(cfgFile string) (string, error) {
	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err != nil {
			return "", fmt.Errorf("config: %w", err)
		}
		return cfgFile, nil
	}
	for _, name := range DefaultFiles {
		_, err := os.Stat(name)
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("config: %w", err)
		}
	}
	return "", nil
}

// NewLogger builds a text logger at the named level. "off" or an empty
// level discards everything.
func NewLogger(level string, w io.Writer) (*slog.Logger, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "off", "none":
		return slog.New(slog.DiscardHandler), nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("config: log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}
