// Package config provides configuration loading.
//
// Values are resolved in order: defaults, the TOML config file, a .env file,
// then LEADSYNC_* environment variables. Every value is kept as a string and
// normalized by the validator registered for its key.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix is the prefix of environment variables that override config keys.
const EnvPrefix = "LEADSYNC_"

// File permission constants
const (
	// FileModeDir is the permission for directories (rwxr-xr-x)
	FileModeDir os.FileMode = 0755
	// FileModeFile is the permission for config files (rw-------); the file may hold the API token.
	FileModeFile os.FileMode = 0600

	// FileExtTOML is the file extension for TOML configuration files.
	FileExtTOML = ".toml"
)

var (
	config    map[string]string
	configMap map[string]string
	mu        sync.RWMutex
)

func init() {
	initValidators()
}

// Load initializes configuration.
func Load() {
	mu.Lock()
	defer mu.Unlock()

	config = make(map[string]string)
	configMap = make(map[string]string)

	setDefaults()
	loadFromFile()
	loadFromDotEnv()
	loadFromEnv()
	validate()
}

// setDefaults populates config with default values.
func setDefaults() {
	home, _ := os.UserHomeDir()
	xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfigHome == "" {
		xdgConfigHome = filepath.Join(home, ".config")
	}
	xdgStateHome := os.Getenv("XDG_STATE_HOME")
	if xdgStateHome == "" {
		xdgStateHome = filepath.Join(home, ".local", "state")
	}

	setDefault("config_dir", filepath.Join(xdgConfigHome, "leadsync"))
	setDefault("state_dir", filepath.Join(xdgStateHome, "leadsync"))
	setDefault("api_base_url", "http://localhost:8080/api")
	setDefault("api_token", "")
	setDefault("page_size", "15")
	setDefault("debounce_ms", "500")
	setDefault("poll_interval_seconds", "20")
	setDefault("request_timeout_seconds", "15")
	setDefault("default_status_filter", "all")
	setDefault("logging_enabled", "false")
	setDefault("logging_level", "info")
	setDefault("logging_max_files", "10")
	setDefault("logging_format", "json")
	setDefault("logging_destination", "file")
	setDefault("debug", "false")
	setDefault("status_format", "compact")
	setDefault("status_colors", "pending:yellow,assigned:blue,contacted:cyan,not_relevant:colour244,meeting_arranged:magenta,hired:green")
	setDefault("hooks_enabled", "true")
	setDefault("hooks_dir", filepath.Join(xdgConfigHome, "leadsync", "hooks"))
	setDefault("hooks_failure_mode", "warn")
	setDefault("hooks_async", "false")
	setDefault("hooks_timeout_seconds", "30")
	setDefault("hooks_max_async", "10")
}

func setDefault(key, value string) {
	config[key] = value
	configMap[key] = value
}

// Path returns the config file path: LEADSYNC_CONFIG_PATH if set, otherwise
// {config_dir}/config.toml.
func Path() string {
	if p := os.Getenv(EnvPrefix + "CONFIG_PATH"); p != "" {
		return p
	}
	dir := os.Getenv(EnvPrefix + "CONFIG_DIR")
	if dir == "" {
		mu.RLock()
		dir = config["config_dir"]
		mu.RUnlock()
	}
	return filepath.Join(dir, "config"+FileExtTOML)
}

// loadFromFile reads configuration from the TOML file, if present.
func loadFromFile() {
	configPath := os.Getenv(EnvPrefix + "CONFIG_PATH")
	if configPath == "" {
		dir := os.Getenv(EnvPrefix + "CONFIG_DIR")
		if dir == "" {
			dir = config["config_dir"]
		}
		configPath = filepath.Join(dir, "config"+FileExtTOML)
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return
	}
	if strings.ToLower(filepath.Ext(configPath)) != FileExtTOML {
		return
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		warn(fmt.Sprintf("unable to parse config file %s: %v", configPath, err))
		return
	}
	for k, v := range raw {
		key := strings.ToLower(k)
		converted, ok := coerceConfigValue(v)
		if !ok {
			warn(fmt.Sprintf("unsupported config value type for %s: %T", key, v))
			continue
		}
		config[key] = converted
	}
}

// coerceConfigValue converts a TOML value to its string representation.
func coerceConfigValue(value any) (string, bool) {
	switch typed := value.(type) {
	case string:
		return typed, true
	case int64:
		return strconv.FormatInt(typed, 10), true
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(typed), true
	default:
		return "", false
	}
}

// loadFromDotEnv applies LEADSYNC_* entries from a .env file in the working
// directory (or LEADSYNC_ENV_FILE). The process environment is not modified.
func loadFromDotEnv() {
	path := os.Getenv(EnvPrefix + "ENV_FILE")
	if path == "" {
		path = ".env"
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return
	}
	for k, v := range values {
		applyEnv(k, v)
	}
}

// loadFromEnv applies environment variable overrides.
func loadFromEnv() {
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}
		applyEnv(parts[0], parts[1])
	}
}

func applyEnv(name, value string) {
	if !strings.HasPrefix(name, EnvPrefix) {
		return
	}
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	switch key {
	case "config_path", "env_file":
		return
	}
	config[key] = value
}

// validate checks and normalizes configuration values using registered validators.
func validate() {
	for key, value := range config {
		validator := getValidator(key)
		if validator == nil {
			continue
		}
		defaultValue := configMap[key]
		normalized, err := validator(key, value, defaultValue)
		if err != nil {
			warn(fmt.Sprintf("validation error for %s: %v, using default: %s", key, err, defaultValue))
			config[key] = defaultValue
			continue
		}
		config[key] = normalized
	}
}

// Get returns a configuration value or default.
func Get(key, defaultValue string) string {
	mu.RLock()
	defer mu.RUnlock()
	if val, ok := config[key]; ok {
		return val
	}
	return defaultValue
}

// Keys returns the known configuration keys, sorted.
func Keys() []string {
	mu.RLock()
	defer mu.RUnlock()
	keys := make([]string, 0, len(config))
	for k := range config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetInt returns a configuration value as integer, or default.
func GetInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(Get(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

// GetBool returns a configuration value as boolean, or default.
func GetBool(key string, defaultValue bool) bool {
	switch normalizeBool(Get(key, "")) {
	case "true":
		return true
	case "false":
		return false
	default:
		return defaultValue
	}
}

// GetDuration returns an integer configuration value multiplied by unit, or
// defaultValue when unset or not positive.
func GetDuration(key string, unit, defaultValue time.Duration) time.Duration {
	n := GetInt(key, 0)
	if n <= 0 {
		return defaultValue
	}
	return time.Duration(n) * unit
}

// Set overrides a value for the rest of the process, e.g. from a CLI flag.
// The value goes through the key's validator.
func Set(key, value string) {
	mu.Lock()
	defer mu.Unlock()
	if config == nil {
		config = make(map[string]string)
		configMap = make(map[string]string)
	}
	if validator := getValidator(key); validator != nil {
		if normalized, err := validator(key, value, configMap[key]); err == nil {
			value = normalized
		}
	}
	config[key] = value
}

// WriteSample writes a TOML file with the default values to path unless it
// already exists.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), FileModeDir); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	mu.RLock()
	typed := make(map[string]any, len(configMap))
	for k, v := range configMap {
		if k == "config_dir" || k == "state_dir" || k == "hooks_dir" {
			continue
		}
		typed[k] = valueToInterface(v)
	}
	mu.RUnlock()

	data, err := toml.Marshal(typed)
	if err != nil {
		return fmt.Errorf("marshal sample config: %w", err)
	}
	header := "# leadsync configuration\n# This file is in TOML format.\n\n"
	return os.WriteFile(path, append([]byte(header), data...), FileModeFile)
}

// valueToInterface converts a configuration value to the matching TOML type.
func valueToInterface(val string) any {
	if n, err := strconv.Atoi(val); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return val
}
