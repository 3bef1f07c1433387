// Package config loads and validates the line-oriented key=value config
// file spec.md §6 defines, with bounds/enum validation on every
// recognized key and defaults for everything else.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"netwatch/internal/apperr"
)

// Filename is the config file's name inside the data directory.
const Filename = "config"

// Config mirrors spec.md §6's enumerated config keys.
type Config struct {
	SamplingIntervalSeconds int
	RawTTLDays              int
	HourTTLDays             int
	ServerPort              int
	LogLevel                string
}

// Defaults returns the compiled-in defaults from spec.md §6's table.
func Defaults() Config {
	return Config{
		SamplingIntervalSeconds: 5,
		RawTTLDays:              7,
		HourTTLDays:             90,
		ServerPort:              7500,
		LogLevel:                "info",
	}
}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate enforces spec.md §6's bounds and enums, returning a
// KindValidation error naming the first offending key.
func Validate(c Config) error {
	switch {
	case c.SamplingIntervalSeconds < 1 || c.SamplingIntervalSeconds > 3600:
		return apperr.Validationf("samplingIntervalSeconds must be in [1,3600], got %d", c.SamplingIntervalSeconds)
	case c.RawTTLDays < 1:
		return apperr.Validationf("rawTTLDays must be >= 1, got %d", c.RawTTLDays)
	case c.HourTTLDays < 1:
		return apperr.Validationf("hourTTLDays must be >= 1, got %d", c.HourTTLDays)
	case c.ServerPort < 1024 || c.ServerPort > 65535:
		return apperr.Validationf("serverPort must be in [1024,65535], got %d", c.ServerPort)
	case !logLevels[c.LogLevel]:
		return apperr.Validationf("logLevel must be one of debug|info|warn|error, got %q", c.LogLevel)
	}
	return nil
}

// DefaultDataDir resolves the data directory: an explicit
// NETWATCH_DATA_DIR environment override takes precedence, otherwise
// it's <user config dir>/netwatch, mirroring the env-override-then-OS-
// default resolution the teacher's agent config path uses.
func DefaultDataDir() string {
	if dir := os.Getenv("NETWATCH_DATA_DIR"); dir != "" {
		return dir
	}
	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "netwatch")
	}
	return "netwatch-data"
}

// Load reads and validates the config file at path. A missing file is not
// an error: Defaults() is returned so first-run startup doesn't require a
// pre-existing file.
func Load(path string) (Config, error) {
	cfg := Defaults()

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, apperr.Fatal("open config file", err)
	}
	defer f.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return Config{}, apperr.Validationf("malformed config line %q: expected key=value", line)
		}
		values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return Config{}, apperr.Fatal("read config file", err)
	}

	if err := applyValues(&cfg, values); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyValues(cfg *Config, values map[string]string) error {
	if v, ok := values["samplingIntervalSeconds"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperr.Validationf("samplingIntervalSeconds: not an integer: %q", v)
		}
		cfg.SamplingIntervalSeconds = n
	}
	if v, ok := values["rawTTLDays"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperr.Validationf("rawTTLDays: not an integer: %q", v)
		}
		cfg.RawTTLDays = n
	}
	if v, ok := values["hourTTLDays"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperr.Validationf("hourTTLDays: not an integer: %q", v)
		}
		cfg.HourTTLDays = n
	}
	if v, ok := values["serverPort"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperr.Validationf("serverPort: not an integer: %q", v)
		}
		cfg.ServerPort = n
	}
	if v, ok := values["logLevel"]; ok {
		cfg.LogLevel = v
	}
	return nil
}

// Save writes cfg to path in the line-oriented key=value format, creating
// the parent directory (mode 0700) and writing the file at mode 0600 per
// spec.md §6's persisted-state-layout permission requirements.
func Save(path string, cfg Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return apperr.Fatal("create config directory", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "samplingIntervalSeconds=%d\n", cfg.SamplingIntervalSeconds)
	fmt.Fprintf(&b, "rawTTLDays=%d\n", cfg.RawTTLDays)
	fmt.Fprintf(&b, "hourTTLDays=%d\n", cfg.HourTTLDays)
	fmt.Fprintf(&b, "serverPort=%d\n", cfg.ServerPort)
	fmt.Fprintf(&b, "logLevel=%s\n", cfg.LogLevel)

	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return apperr.Fatal("write config file", err)
	}
	return nil
}
