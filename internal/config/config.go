// Package config loads the runtime settings for the backend.
//
// Settings are read from the environment (optionally seeded from a .env file)
// and passed explicitly to the components that need them. No package reads
// settings from ambient state after startup.
package config

import (
	"errors"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrInvalidSettings = errors.New("invalid settings")

// Settings holds every recognized configuration option.
type Settings struct {
	// DBPath is the path of the SQLite database file.
	DBPath string `mapstructure:"db_path"`

	// StagingTTLHours is the number of hours a staging session stays usable.
	StagingTTLHours int `mapstructure:"staging_ttl_hours"`

	// RollbackWindowHours is the number of hours after completion during
	// which an import job can be rolled back.
	RollbackWindowHours int `mapstructure:"rollback_window_hours"`

	// ImportBatchSize is the batch size reported on import jobs.
	ImportBatchSize int `mapstructure:"import_batch_size"`

	// ProgressUpdateInterval is the number of processed items between
	// persisted progress checkpoints during an import.
	ProgressUpdateInterval int `mapstructure:"progress_update_interval"`
}

// Load reads the settings from the environment. A .env file in the working
// directory is loaded first if it exists.
func Load() (Settings, error) {
	// A missing .env file is not an error, the environment is authoritative
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("db_path", "data/flowledger.db")
	v.SetDefault("staging_ttl_hours", 24)
	v.SetDefault("rollback_window_hours", 1)
	v.SetDefault("import_batch_size", 50)
	v.SetDefault("progress_update_interval", 10)
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys it has seen, bind them explicitly
	for _, key := range []string{"db_path", "staging_ttl_hours", "rollback_window_hours", "import_batch_size", "progress_update_interval"} {
		if err := v.BindEnv(key); err != nil {
			return Settings{}, err
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return Settings{}, err
	}

	return settings, settings.validate()
}

func (s Settings) validate() error {
	if s.StagingTTLHours <= 0 {
		return errors.New("staging_ttl_hours must be positive")
	}

	if s.RollbackWindowHours <= 0 {
		return errors.New("rollback_window_hours must be positive")
	}

	if s.ImportBatchSize <= 0 {
		return errors.New("import_batch_size must be positive")
	}

	if s.ProgressUpdateInterval <= 0 {
		return errors.New("progress_update_interval must be positive")
	}

	return nil
}

// Defaults returns the default settings. It is mostly useful for tests.
func Defaults() Settings {
	return Settings{
		DBPath:                 "data/flowledger.db",
		StagingTTLHours:        24,
		RollbackWindowHours:    1,
		ImportBatchSize:        50,
		ProgressUpdateInterval: 10,
	}
}
