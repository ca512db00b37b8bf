// This file defines the configuration structure for the application.
package config

import (
	// use Viper for loading the config.yml file.
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
type Config struct {
	Port            int `mapstructure:"port"`
	CleanupInterval int `mapstructure:"cleanup_interval"` // minutes between queue purges, 0 disables
	Database        struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Storage struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"storage"`
	Scheduler struct {
		Concurrency  int `mapstructure:"concurrency"`
		PollInterval int `mapstructure:"poll_interval"` // seconds
	} `mapstructure:"scheduler"`
	Browser struct {
		NavigationTimeout int `mapstructure:"navigation_timeout"` // seconds, single/frame captures
		CrawlTimeout      int `mapstructure:"crawl_timeout"`      // seconds, crawl discovery loads
	} `mapstructure:"browser"`
	Progress struct {
		ClearDelay int `mapstructure:"clear_delay"` // seconds before group-progress-clear
	} `mapstructure:"progress"`
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or "yaml"
	viper.AddConfigPath(".")      // looking for config in the current directory

	// --- Environment Variable Overrides ---
	// This tells Viper to look for environment variables with a "SCREENSHUTER_" prefix.
	// e.g., SCREENSHUTER_DATABASE_PATH will override the `database.path` key.
	viper.SetEnvPrefix("SCREENSHUTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("port", 8090)
	viper.SetDefault("cleanup_interval", 1440)
	viper.SetDefault("database.path", "./screenshuter.db")
	viper.SetDefault("storage.path", "./data/captures")
	viper.SetDefault("scheduler.concurrency", 5)
	viper.SetDefault("scheduler.poll_interval", 5)
	viper.SetDefault("browser.navigation_timeout", 60)
	viper.SetDefault("browser.crawl_timeout", 30)
	viper.SetDefault("progress.clear_delay", 5)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error and use defaults
		} else {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
