// Package config loads engine configuration from file, environment, and
// flags via viper. Precedence follows viper's usual order: explicit flag
// binding, then OTTO_* environment variables, then the config file, then
// the defaults below.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the resolved engine configuration.
type Config struct {
	// DataDir holds the event log, projections, conversations, and the
	// audit log.
	DataDir string `mapstructure:"data_dir"`
	// WorkspaceDir is the root under which the private/shared/public
	// scopes live.
	WorkspaceDir string `mapstructure:"workspace_dir"`

	// Profile overrides every agent's model profile when non-empty.
	Profile string `mapstructure:"profile"`
	// MaxIterations caps LLM iterations per drive; 0 keeps agent defaults.
	MaxIterations int `mapstructure:"max_iterations"`

	MaxSubtaskDepth   int `mapstructure:"max_subtask_depth"`
	MaxSubtaskWorkers int `mapstructure:"max_subtask_workers"`

	// PresetsPath points at a YAML agent-preset file; empty uses the
	// built-in presets.
	PresetsPath string `mapstructure:"presets_path"`

	// DefaultAgent is the agent assigned to tasks created without one.
	DefaultAgent string `mapstructure:"default_agent"`

	LogLevel string `mapstructure:"log_level"`
}

// Load reads configuration. configPath may be empty, in which case
// otto-config.yaml is searched in the working directory and $HOME.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("OTTO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	} else {
		v.SetConfigName("otto-config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.expandDirs(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "~/.otto/data")
	v.SetDefault("workspace_dir", "~/.otto/workspace")
	v.SetDefault("profile", "")
	v.SetDefault("max_iterations", 0)
	v.SetDefault("max_subtask_depth", 2)
	v.SetDefault("max_subtask_workers", 4)
	v.SetDefault("presets_path", "")
	v.SetDefault("default_agent", "assistant")
	v.SetDefault("log_level", "info")
}

func (c *Config) expandDirs() error {
	var err error
	if c.DataDir, err = expandHome(c.DataDir); err != nil {
		return err
	}
	if c.WorkspaceDir, err = expandHome(c.WorkspaceDir); err != nil {
		return err
	}
	if c.PresetsPath != "" {
		if c.PresetsPath, err = expandHome(c.PresetsPath); err != nil {
			return err
		}
	}
	return nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
