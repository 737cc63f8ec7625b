package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store the logger in context.
// This key is shared with the cli package via LoggerKey.
type loggerKey struct{}

// Config file names, in lookup order.
const (
	ConfigFileName    = "relq.yaml"
	ConfigFileNameAlt = "relq.yml"
)

// maxUpwardSearchLevels limits how far up the directory tree to search
// for a config file.
const maxUpwardSearchLevels = 10

// findConfigFileIn returns the config file in dir, or "" if there is none.
func findConfigFileIn(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findProjectRootUpward searches upward from startDir for a directory
// containing a relq config file. Returns "" if not found within
// maxUpwardSearchLevels.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if findConfigFileIn(dir) != "" {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return ""
}

// inferProjectRoot determines the project root.
// Priority:
//  1. Directory of the explicit --config file
//  2. Search upward from CWD for relq.yaml
//  3. Current working directory
func inferProjectRoot(cfgFile string) string {
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs)
		}
		return filepath.Dir(filepath.Clean(cfgFile))
	}

	cwd, err := os.Getwd()
	if err != nil || cwd == "" {
		return "."
	}
	if root := findProjectRootUpward(cwd); root != "" {
		return root
	}
	return cwd
}

// resolvePathRelativeTo resolves a path against baseDir unless it is
// empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	return LoadConfigWithTarget(cfgFile, "", flags)
}

// LoadConfigWithTarget loads configuration and selects a named target.
// An empty targetName falls back to the file's default_target key, then
// to the base target block alone.
func LoadConfigWithTarget(cfgFile, targetName string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	projectRoot := inferProjectRoot(cfgFile)

	// A state path given as a flag is relative to the CWD, not the
	// project root; pin it down before the resolution step below.
	var flagStatePath string
	if flags != nil && flags.Changed("state") {
		if v, _ := flags.GetString("state"); v != "" {
			flagStatePath, _ = filepath.Abs(v)
		}
	}

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"state_path": DefaultStateFile,
		"log_level":  DefaultLogLevel,
		"output":     DefaultOutput,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load the config file
	if cfgFile == "" {
		cfgFile = findConfigFileIn(projectRoot)
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// 3. Load environment variables: RELQ_STATE_PATH -> state_path
	if err := k.Load(env.ProviderWithValue("RELQ_", ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.TrimPrefix(key, "RELQ_"))
		// RELQ_TARGET selects a named target and RELQ_CONFIG names a
		// file; neither is a config key.
		if key == "target" || key == "config" {
			return "", nil
		}
		return key, value
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			switch f.Name {
			case "config", "target":
				// Selectors, not config keys; loading --target here would
				// collide with the target mapping in the file.
				return "", nil
			case "state":
				// The CLI flag is --state, the config key is state_path.
				return "state_path", posflag.FlagVal(flags, f)
			}
			// Transform kebab-case to snake_case for config keys
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into the Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.ProjectRoot = projectRoot
	cfg.ConfigFile = cfgFile

	if flagStatePath != "" {
		cfg.StatePath = flagStatePath
	} else {
		cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, projectRoot)
	}

	// Select and merge the named target
	name := targetName
	if name == "" {
		name = cfg.DefaultTarget
	}
	if name != "" {
		override, ok := cfg.Targets[name]
		if !ok {
			return nil, fmt.Errorf("unknown target %q (defined targets: %v)", name, targetNames(cfg.Targets))
		}
		cfg.Target = MergeTarget(cfg.Target, override)
		cfg.TargetName = name
	} else {
		cfg.TargetName = "default"
	}

	// Without any target declaration, fall back to an in-memory DuckDB
	if cfg.Target == nil {
		cfg.Target = &Target{Type: "duckdb", Path: ":memory:"}
	}

	// Expand environment variables in credentials and paths
	expandTargetEnvVars(cfg.Target)

	if err := cfg.Target.Validate(); err != nil {
		return nil, fmt.Errorf("invalid target configuration: %w", err)
	}

	return &cfg, nil
}

func targetNames(targets map[string]*Target) []string {
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// configKey is the context key the root command stores the loaded
// configuration under.
type configKey struct{}

// ConfigKey returns the context key used for storing the configuration.
func ConfigKey() interface{} {
	return configKey{}
}

// FromContext retrieves the configuration from the command context. When
// absent (a command run outside the root command, as in tests) it returns
// a default in-memory duckdb configuration.
func FromContext(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return &Config{
		StatePath:    DefaultStateFile,
		LogLevel:     DefaultLogLevel,
		OutputFormat: DefaultOutput,
		TargetName:   "default",
		Target:       &Target{Type: "duckdb", Path: ":memory:"},
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment
// variable values. Unset variables are left as written.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})
}

// expandTargetEnvVars expands environment variables in sensitive target
// fields.
func expandTargetEnvVars(t *Target) {
	if t == nil {
		return
	}
	t.Path = expandEnvVars(t.Path)
	t.Host = expandEnvVars(t.Host)
	t.Database = expandEnvVars(t.Database)
	t.User = expandEnvVars(t.User)
	t.Password = expandEnvVars(t.Password)
}
