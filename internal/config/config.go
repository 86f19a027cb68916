// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Package config loads runtime settings for the lpack command using Viper.
//
// Settings come from, in increasing precedence: defaults, an optional TOML
// file and LPACK_* environment variables. Pack secrets live here rather
// than in the binary.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "lpack"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
	// EnvPrefix prefixes every environment variable, e.g. LPACK_ENCRYPTION_KEY.
	EnvPrefix = "LPACK"
)

// Config holds the settings of one lpack invocation.
type Config struct {
	// EncryptionKey is the secret packs are encrypted and decrypted with.
	// Empty disables encryption on create and decryption on read.
	EncryptionKey string `mapstructure:"encryption_key"`
	// SecurityKey gates unpack. Empty allows anyone to unpack.
	SecurityKey string `mapstructure:"security_key"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`
	// PackDir is where resolve looks for packs when none are named.
	PackDir string `mapstructure:"pack_dir"`
	// CacheSize is the number of resolved files the resolver keeps; 0 disables the cache.
	CacheSize int `mapstructure:"cache_size"`
}

// LoadOptions selects where Load looks for a config file.
type LoadOptions struct {
	// ConfigFilePath is an explicit file; it must exist.
	ConfigFilePath string
	// ConfigDirPath replaces the platform config directory.
	ConfigDirPath string
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "warn",
		PackDir:   ".",
		CacheSize: 0,
	}
}

// Dir returns the lpack configuration directory, $XDG_CONFIG_HOME/lpack on
// Linux and the platform equivalent elsewhere.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// Load reads the configuration. It returns the config and the path of the
// file that was read, or "" when only defaults and the environment applied.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("encryption_key", defaults.EncryptionKey)
	v.SetDefault("security_key", defaults.SecurityKey)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("pack_dir", defaults.PackDir)
	v.SetDefault("cache_size", defaults.CacheSize)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	resolvedPath := ""
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", fmt.Errorf("config file not found: %s", opts.ConfigFilePath)
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		dir := opts.ConfigDirPath
		if dir == "" {
			var err error
			if dir, err = Dir(); err != nil {
				return nil, "", err
			}
		}
		if path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt); fileExists(path) {
			resolvedPath = path
		}
	}

	if resolvedPath != "" {
		v.SetConfigFile(resolvedPath)
		v.SetConfigType(ConfigFileExt)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("failed to read config %s: %w", resolvedPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolvedPath, nil
}

// Validate checks values that the file format cannot express.
func (c *Config) Validate() error {
	var errs []error
	if _, err := log.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("cache_size must not be negative, got %d", c.CacheSize))
	}
	return errors.Join(errs...)
}

// Level returns the configured log level, or warn if it does not parse.
func (c *Config) Level() log.Level {
	level, err := log.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return log.WarnLevel
	}
	return level
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
