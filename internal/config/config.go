// Copyright (c) 2026 nod32tools authors
// nod32tools - ESET NOD32 mirror key and langpack tools
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads the tool settings from file, environment and flags,
// and writes them back as YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	appName   = "nod32tools"
	envPrefix = "NOD32TOOLS"
)

// Settings are the values every command reads. Paths are taken as given;
// relative paths resolve against the working directory of the process.
type Settings struct {
	// Config is the mirror configuration document (nod32ms.yaml or a legacy
	// nod32ms.conf).
	Config    string `mapstructure:"config" yaml:"config"`
	KeysFile  string `mapstructure:"keys-file" yaml:"keys-file"`
	Pattern   string `mapstructure:"pattern" yaml:"pattern"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Language  string `mapstructure:"language" yaml:"language"`
	Langpacks string `mapstructure:"langpacks" yaml:"langpacks"`
	Verbose   bool   `mapstructure:"verbose" yaml:"-"`
}

// Defaults returns the built-in settings as a viper defaults map.
func Defaults() map[string]any {
	return map[string]any{
		"config":    "nod32ms.yaml",
		"keys-file": filepath.Join("docker-data", "keys.json"),
		"pattern":   `((EAV|TRIAL)-[0-9]{10}):+?([a-z0-9]{10})`,
		"bucket":    "valid",
		"language":  "en",
		"langpacks": filepath.Join("worker", "core", "langpacks"),
	}
}

// GetConfigPath returns the full path of the settings file, either the
// per-user one or the system-wide one.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), appName)
		default:
			configDir = filepath.Join("/etc", appName)
		}
	} else {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(dir, appName)
	}
	return filepath.Join(configDir, appName+".yaml"), nil
}

// LoadConfig resolves T from, in increasing precedence: defaults, the
// settings file, NOD32TOOLS_* environment variables and the flags of cmd.
// explicitPath, when non-nil, names the settings file to use instead of the
// search path; it must exist.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, explicitPath *string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName(appName)
	v.SetConfigType("yaml")
	if explicitPath != nil {
		v.SetConfigFile(*explicitPath)
	}
	if userPath, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userPath))
	}
	if systemPath, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemPath))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, fmt.Errorf("could not read settings: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("could not decode settings: %w", err)
	}
	return c, nil
}

// WriteConfigFile writes c to the per-user or system settings path and
// returns that path.
func WriteConfigFile[T any](c *T, system bool) (string, error) {
	path, err := GetConfigPath(system)
	if err != nil {
		return "", err
	}
	return path, WriteConfigFileTo(c, path)
}

// WriteConfigFileTo writes c as YAML to path, creating its directory.
func WriteConfigFileTo[T any](c *T, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}
	return os.WriteFile(path, data, 0o600)
}
