package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Settings holds all configuration values
type Settings struct {
	// Backend server configuration
	Server struct {
		URL     string
		Token   string
		Timeout int
	}

	// Active project context
	Project struct {
		ID     string
		Thread string
	}

	// Chat behavior
	Chat struct {
		HistoryDir string
		// ModeRevertAfter re-arms NATURAL mode this long after a switch
		// to FUNCTION mode. Zero disables reversion.
		ModeRevertAfter time.Duration
	}

	// Logging configuration
	Logging struct {
		LogFile string
		Persist bool
		Level   string
	}

	// ConfigFile is the resolved path of the loaded config file
	ConfigFile string
}

// Global settings instance
var Global *Settings

// Init initializes the configuration system
func Init(cfgFile string) error {
	Global = &Settings{}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		Global.ConfigFile = cfgFile
	} else {
		viper.AddConfigPath("./.maestro")
		viper.SetConfigType("yaml")
		viper.SetConfigName("settings")
		Global.ConfigFile = ".maestro/settings.yaml"
	}

	setDefaults()

	viper.AutomaticEnv()

	// Allow the backend endpoint and credential to come from the environment
	viper.BindEnv("server.url", "MAESTRO_SERVER_URL")
	viper.BindEnv("server.token", "MAESTRO_TOKEN")
	viper.BindEnv("project.id", "MAESTRO_PROJECT_ID")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}

	return Load()
}

// setDefaults sets all default configuration values
func setDefaults() {
	viper.SetDefault("server.url", "http://localhost:8002/api/v1")
	viper.SetDefault("server.timeout", 90)

	viper.SetDefault("chat.history_dir", ".maestro/history")
	viper.SetDefault("chat.mode_revert_after", 0)

	viper.SetDefault("logging.log_file", "system.log")
	viper.SetDefault("logging.persist", false)
	viper.SetDefault("logging.level", "info")
}

// Load loads configuration from viper into the Settings struct
func Load() error {
	Global.Server.URL = viper.GetString("server.url")
	Global.Server.Token = viper.GetString("server.token")
	Global.Server.Timeout = viper.GetInt("server.timeout")

	Global.Project.ID = viper.GetString("project.id")
	Global.Project.Thread = viper.GetString("project.thread")

	Global.Chat.HistoryDir = viper.GetString("chat.history_dir")
	Global.Chat.ModeRevertAfter = viper.GetDuration("chat.mode_revert_after")

	Global.Logging.LogFile = viper.GetString("logging.log_file")
	Global.Logging.Persist = viper.GetBool("logging.persist")
	Global.Logging.Level = viper.GetString("logging.level")

	return nil
}

// WriteDefaultConfig writes default configuration values to disk, preserving existing settings
func WriteDefaultConfig() error {
	if Global.ConfigFile == "" {
		return fmt.Errorf("config file path not set")
	}

	configDir := filepath.Dir(Global.ConfigFile)
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := viper.WriteConfigAs(Global.ConfigFile); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}

	return nil
}

// Get returns the global settings instance
func Get() *Settings {
	if Global == nil {
		panic("config not initialized - call Init() first")
	}
	return Global
}

// BuildSettingsPath resolves a filename relative to the settings directory
func BuildSettingsPath(filename string) string {
	if Global != nil && Global.ConfigFile != "" {
		return filepath.Join(filepath.Dir(Global.ConfigFile), filename)
	}
	return filepath.Join(".maestro", filename)
}
