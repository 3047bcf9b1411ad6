// Package conf handles loading and managing the birdstream configuration.
// Settings are read once at startup from a YAML file discovered on OS
// specific paths, with viper supplying defaults for anything missing.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/birdstream/internal/errors"
	"github.com/tphakala/birdstream/internal/logging"
)

// LogConfig holds settings for the optional rotating log file.
type LogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MainSettings contains general application settings.
type MainSettings struct {
	Name string    `yaml:"name"` // name of the node, used in log identification
	Log  LogConfig `yaml:"log"`
}

// SoundIDSettings is the confidence gating policy for the live detection
// stream. The four numeric fields form the ThresholdPolicy: the sentinel
// recognition is gated by SingingThreshold, species already unlocked by
// UnlockedThreshold, and everything else by InitialThreshold. A species
// unlocks once it has been seen MinDetectionsToUnlock times within the
// rolling detection history.
type SoundIDSettings struct {
	SentinelName          string  `yaml:"sentinelname"` // classifier label meaning "bird-like sound present"
	SingingThreshold      float64 `yaml:"singingthreshold"`
	InitialThreshold      float64 `yaml:"initialthreshold"`
	UnlockedThreshold     float64 `yaml:"unlockedthreshold"`
	MinDetectionsToUnlock int     `yaml:"mindetectionstounlock"`
	LifeListPath          string  `yaml:"lifelistpath"` // optional CSV export of already-observed species
}

// StreamSettings controls the distribution workers and their queues.
type StreamSettings struct {
	DetectionQueueSize   int           `yaml:"detectionqueuesize"`
	SpectrogramQueueSize int           `yaml:"spectrogramqueuesize"`
	ShutdownTimeout      time.Duration `yaml:"shutdowntimeout"`
	HeartbeatInterval    time.Duration `yaml:"heartbeatinterval"`
	ClientBufferSize     int           `yaml:"clientbuffersize"`
	SendTimeout          time.Duration `yaml:"sendtimeout"`
	LogThrottleInterval  time.Duration `yaml:"logthrottleinterval"`
}

// WebServerSettings configures the HTTP server that hosts the SSE endpoints.
type WebServerSettings struct {
	Enabled   bool   `yaml:"enabled"`
	Port      string `yaml:"port"`
	RateLimit int    `yaml:"ratelimit"` // SSE connection attempts per minute per IP
}

// Settings is the root configuration structure.
type Settings struct {
	Debug     bool              `yaml:"debug"`
	Main      MainSettings      `yaml:"main"`
	SoundID   SoundIDSettings   `yaml:"soundid"`
	Stream    StreamSettings    `yaml:"stream"`
	WebServer WebServerSettings `yaml:"webserver"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment into a Settings value.
// A missing config file is not an error; defaults apply.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// No config file, run with defaults
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// Setting returns the current settings instance, loading it if needed.
// If loading fails the previously loaded settings are retained; if nothing
// was ever loaded a validated default configuration is installed instead.
// The gating session must never fail because the settings source did.
func Setting() *Settings {
	settingsMutex.RLock()
	s := settingsInstance
	settingsMutex.RUnlock()
	if s != nil {
		return s
	}

	if loaded, err := Load(); err == nil {
		return loaded
	} else if logger := logging.ForService("conf"); logger != nil {
		logger.Warn("failed to load configuration, using defaults", "error", err)
	}

	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	if settingsInstance == nil {
		settingsInstance = DefaultSettings()
	}
	return settingsInstance
}

// setTestSettings replaces the settings instance, for tests only.
func setTestSettings(s *Settings) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	settingsInstance = s
}

// GetDefaultConfigPaths returns OS specific directories searched for config.yaml.
func GetDefaultConfigPaths() ([]string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "get-executable-path").
			Build()
	}
	exeDir := filepath.Dir(exePath)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-directory").
			Build()
	}

	var configPaths []string
	switch runtime.GOOS {
	case "windows":
		configPaths = []string{
			exeDir,
			filepath.Join(homeDir, "AppData", "Roaming", "birdstream"),
		}
	default:
		configPaths = []string{
			filepath.Join(homeDir, ".config", "birdstream"),
			"/etc/birdstream",
			exeDir,
		}
	}
	return configPaths, nil
}

// SaveYAMLConfig writes the given settings to a YAML config file.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "marshal-config").
			Build()
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "create-config-dir").
			Build()
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "write-config").
			Context("path", configPath).
			Build()
	}
	return nil
}
