package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Library   LibraryConfig   `mapstructure:"library"`
	Metadata  MetadataConfig  `mapstructure:"metadata"`
	Player    PlayerConfig    `mapstructure:"player"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug or release
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LibraryConfig struct {
	Root      string `mapstructure:"root"`       // directory whose immediate subdirectories are anime folders
	CoversDir string `mapstructure:"covers_dir"` // flat directory of cached cover images
}

type MetadataConfig struct {
	// RequestDelay is the fixed pause between successive provider lookups
	// during a sync run, so we don't hammer the remote API.
	RequestDelay time.Duration `mapstructure:"request_delay"`
	Timeout      time.Duration `mapstructure:"timeout"`
	ProxyURL     string        `mapstructure:"proxy_url"`
}

type PlayerConfig struct {
	SocketPath string        `mapstructure:"socket_path"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type SchedulerConfig struct {
	// RescanInterval enables periodic library refresh when > 0.
	RescanInterval time.Duration `mapstructure:"rescan_interval"`
}

var AppConfig *Config

func LoadConfig(configPath string) error {
	v := viper.New()

	v.SetDefault("server.port", 8306)
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.path", "data/aniplay.db")
	v.SetDefault("library.root", "anime-library")
	v.SetDefault("library.covers_dir", "covers")
	v.SetDefault("metadata.request_delay", "2s")
	v.SetDefault("metadata.timeout", "10s")
	v.SetDefault("metadata.proxy_url", "")
	v.SetDefault("player.socket_path", "/tmp/aniplay-mpv.sock")
	v.SetDefault("player.timeout", "5s")
	v.SetDefault("scheduler.rescan_interval", "0s")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}

	// Environment overrides, e.g. ANIPLAY_SERVER_PORT=9090
	v.SetEnvPrefix("ANIPLAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay, use defaults
		fmt.Println("Config file not found, using defaults")
	}

	AppConfig = &Config{}
	if err := v.Unmarshal(AppConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}
