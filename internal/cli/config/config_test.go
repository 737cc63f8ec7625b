package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/relq/pkg/adapter"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/relq/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/relq/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/relq/pkg/adapters/sqlite"
)

const testdataDir = "../testdata"

func TestTarget_Validate(t *testing.T) {
	tests := []struct {
		name      string
		target    Target
		errSubstr string
	}{
		{name: "empty type", target: Target{}, errSubstr: "target type is required"},
		{name: "valid duckdb", target: Target{Type: "duckdb"}},
		{name: "valid duckdb uppercase", target: Target{Type: "DuckDB"}},
		{name: "valid postgres", target: Target{Type: "postgres"}},
		{name: "valid sqlite", target: Target{Type: "sqlite"}},
		{name: "unknown mysql", target: Target{Type: "mysql"}, errSubstr: "unknown adapter type"},
		{name: "unknown snowflake", target: Target{Type: "snowflake"}, errSubstr: "unknown adapter type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.target.Validate()
			if tt.errSubstr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errSubstr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTarget_Validate_ErrorListsAvailable(t *testing.T) {
	err := (&Target{Type: "invalid_db"}).Validate()
	require.Error(t, err)

	assert.Contains(t, err.Error(), "duckdb", "error should list available adapters")
	assert.Contains(t, err.Error(), "relq.yaml", "error should mention the config file")
}

func TestTarget_AdapterConfig(t *testing.T) {
	target := &Target{
		Type:     "postgres",
		Host:     "db.internal",
		Port:     5433,
		Database: "analytics",
		User:     "analyst",
		Password: "hunter2",
		Schema:   "reporting",
		Options:  map[string]string{"sslmode": "require"},
	}

	cfg := target.AdapterConfig()
	assert.Equal(t, adapter.Config{
		Type:     "postgres",
		Host:     "db.internal",
		Port:     5433,
		Database: "analytics",
		Username: "analyst",
		Password: "hunter2",
		Schema:   "reporting",
		Options:  map[string]string{"sslmode": "require"},
	}, cfg)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR_ONE", "value_one")
	t.Setenv("TEST_VAR_TWO", "value_two")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"single variable", "${TEST_VAR_ONE}", "value_one"},
		{"multiple variables", "${TEST_VAR_ONE}/${TEST_VAR_TWO}", "value_one/value_two"},
		{"variable in path", "/path/to/${TEST_VAR_ONE}/file", "/path/to/value_one/file"},
		{"unset variable stays as-is", "${UNSET_VARIABLE}", "${UNSET_VARIABLE}"},
		{"no variables", "plain string", "plain string"},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandEnvVars(tt.input))
		})
	}
}

func TestMergeTarget(t *testing.T) {
	t.Run("nil base returns override", func(t *testing.T) {
		override := &Target{Type: "duckdb", Path: "test.db"}
		assert.Equal(t, override, MergeTarget(nil, override))
	})

	t.Run("nil override returns base", func(t *testing.T) {
		base := &Target{Type: "duckdb", Path: "test.db"}
		assert.Equal(t, base, MergeTarget(base, nil))
	})

	t.Run("override replaces set fields", func(t *testing.T) {
		base := &Target{Type: "duckdb", Path: "base.db", Schema: "main", Host: "localhost"}
		override := &Target{Path: "override.db", Schema: "custom"}

		merged := MergeTarget(base, override)

		assert.Equal(t, "duckdb", merged.Type, "type inherited from base")
		assert.Equal(t, "override.db", merged.Path)
		assert.Equal(t, "custom", merged.Schema)
		assert.Equal(t, "localhost", merged.Host, "host inherited from base")
	})

	t.Run("options and params merge key-wise", func(t *testing.T) {
		base := &Target{
			Type:    "duckdb",
			Options: map[string]string{"a": "base", "b": "base"},
			Params:  map[string]any{"extensions": []string{"parquet"}},
		}
		override := &Target{
			Options: map[string]string{"b": "override", "c": "override"},
		}

		merged := MergeTarget(base, override)

		assert.Equal(t, "base", merged.Options["a"])
		assert.Equal(t, "override", merged.Options["b"])
		assert.Equal(t, "override", merged.Options["c"])
		assert.Equal(t, []string{"parquet"}, merged.Params["extensions"])

		// The merge must not alias the base maps.
		merged.Options["a"] = "mutated"
		assert.Equal(t, "base", base.Options["a"])
	})
}

func TestLoadConfig_Defaults(t *testing.T) {
	tmp := t.TempDir()
	t.Chdir(tmp)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(tmp, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "auto", cfg.OutputFormat)
	assert.Equal(t, "", cfg.ConfigFile)

	require.NotNil(t, cfg.Target)
	assert.Equal(t, "duckdb", cfg.Target.Type)
	assert.Equal(t, ":memory:", cfg.Target.Path)
}

func TestLoadConfig_Fixture(t *testing.T) {
	cfgPath := filepath.Join(testdataDir, "valid_duckdb.yaml")
	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "duckdb", cfg.Target.Type)
	assert.Equal(t, ":memory:", cfg.Target.Path)
	assert.Equal(t, cfgPath, cfg.ConfigFile)

	wantRoot, err := filepath.Abs(testdataDir)
	require.NoError(t, err)
	assert.Equal(t, wantRoot, cfg.ProjectRoot)
}

func TestLoadConfigWithTarget(t *testing.T) {
	cfgPath := filepath.Join(testdataDir, "valid_with_targets.yaml")

	t.Run("base target without override", func(t *testing.T) {
		cfg, err := LoadConfigWithTarget(cfgPath, "", nil)
		require.NoError(t, err)

		assert.Equal(t, "duckdb", cfg.Target.Type)
		assert.Equal(t, "dev.duckdb", cfg.Target.Path)
	})

	t.Run("staging merges over base", func(t *testing.T) {
		cfg, err := LoadConfigWithTarget(cfgPath, "staging", nil)
		require.NoError(t, err)

		assert.Equal(t, "duckdb", cfg.Target.Type, "type inherited from base")
		assert.Equal(t, "staging.duckdb", cfg.Target.Path)
		assert.Equal(t, "staging", cfg.Target.Schema)
	})

	t.Run("prod switches adapter type", func(t *testing.T) {
		cfg, err := LoadConfigWithTarget(cfgPath, "prod", nil)
		require.NoError(t, err)

		assert.Equal(t, "postgres", cfg.Target.Type)
		assert.Equal(t, "prod.internal", cfg.Target.Host)
		assert.Equal(t, "analytics", cfg.Target.Database)
		assert.Equal(t, "analyst", cfg.Target.User)
	})

	t.Run("unknown target errors with defined names", func(t *testing.T) {
		_, err := LoadConfigWithTarget(cfgPath, "qa", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown target "qa"`)
		assert.Contains(t, err.Error(), "prod")
		assert.Contains(t, err.Error(), "staging")
	})
}

func TestLoadConfig_DefaultTargetKey(t *testing.T) {
	cfgPath := filepath.Join(testdataDir, "valid_default_target.yaml")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Target.Type, "default_target selects the named target")
	assert.Equal(t, "local.db", cfg.Target.Path)

	// An explicit name still wins over default_target... there is only
	// one here, so select it explicitly and expect the same result.
	explicit, err := LoadConfigWithTarget(cfgPath, "local", nil)
	require.NoError(t, err)
	assert.Equal(t, cfg.Target, explicit.Target)
}

func TestLoadConfig_InvalidTargets(t *testing.T) {
	t.Run("unknown adapter type", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(testdataDir, "invalid_unknown_type.yaml"), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid target configuration")
		assert.Contains(t, err.Error(), "mysql")
	})

	t.Run("empty type", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(testdataDir, "invalid_empty_type.yaml"), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "target type is required")
	})
}

func TestLoadConfig_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_PG_HOST", "pg.example.com")
	t.Setenv("TEST_PG_USER", "testuser")
	t.Setenv("TEST_PG_PASSWORD", "secret123")

	cfg, err := LoadConfig(filepath.Join(testdataDir, "valid_env_vars.yaml"), nil)
	require.NoError(t, err)

	assert.Equal(t, "pg.example.com", cfg.Target.Host)
	assert.Equal(t, "testuser", cfg.Target.User)
	assert.Equal(t, "secret123", cfg.Target.Password)
	assert.Equal(t, "analytics", cfg.Target.Database)
}

func TestLoadConfig_Precedence(t *testing.T) {
	tmp := t.TempDir()
	t.Chdir(tmp)

	cfgPath := filepath.Join(tmp, "relq.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log_level: info\ntarget:\n  type: sqlite\n"), 0600))

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("RELQ_LOG_LEVEL", "debug")

		cfg, err := LoadConfig(cfgPath, nil)
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("flag overrides env and file", func(t *testing.T) {
		t.Setenv("RELQ_LOG_LEVEL", "debug")

		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.String("log-level", "", "")
		require.NoError(t, flags.Set("log-level", "error"))

		cfg, err := LoadConfig(cfgPath, flags)
		require.NoError(t, err)
		assert.Equal(t, "error", cfg.LogLevel)
	})

	t.Run("unset flag falls through to env", func(t *testing.T) {
		t.Setenv("RELQ_LOG_LEVEL", "debug")

		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.String("log-level", "", "")

		cfg, err := LoadConfig(cfgPath, flags)
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("selector env vars are not config keys", func(t *testing.T) {
		// RELQ_TARGET selects a named target elsewhere; loading it as a
		// config key would collide with the target mapping in the file.
		t.Setenv("RELQ_TARGET", "nope")
		t.Setenv("RELQ_CONFIG", "nope.yaml")

		cfg, err := LoadConfig(cfgPath, nil)
		require.NoError(t, err)
		assert.Equal(t, "sqlite", cfg.Target.Type)
	})

	t.Run("env keys map prefix-stripped and lowercased", func(t *testing.T) {
		t.Setenv("RELQ_OUTPUT", "json")

		cfg, err := LoadConfig(cfgPath, nil)
		require.NoError(t, err)
		assert.Equal(t, "json", cfg.OutputFormat)
	})

	t.Run("state flag resolves against cwd", func(t *testing.T) {
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.String("state", "", "")
		require.NoError(t, flags.Set("state", "custom/state.db"))

		cfg, err := LoadConfig(cfgPath, flags)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(tmp, "custom", "state.db"), cfg.StatePath)
	})
}

func TestLoadConfig_UpwardSearch(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "relq.yaml"), []byte("target:\n  type: sqlite\n"), 0600))

	deep := filepath.Join(tmp, "sub", "deeper")
	require.NoError(t, os.MkdirAll(deep, 0750))
	t.Chdir(deep)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, tmp, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(tmp, "relq.yaml"), cfg.ConfigFile)
	assert.Equal(t, "sqlite", cfg.Target.Type)
	assert.Equal(t, filepath.Join(tmp, DefaultStateFile), cfg.StatePath, "state path resolves against the project root, not the cwd")
}
