// Package config loads the teambot configuration: the shared core sections
// plus storage and review settings.
package config

import (
	"fmt"
	"strings"

	coreconfig "github.com/m3rciful/teambot/core/config"
	coredatabase "github.com/m3rciful/teambot/core/database"
)

const (
	// StoragePostgres keeps applications in PostgreSQL.
	StoragePostgres = "postgres"
	// StorageMemory keeps applications in process memory; data is lost on exit.
	StorageMemory = "memory"
)

// StorageConfig selects the application store.
type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
}

// ReviewConfig locates the group that adjudicates applications.
type ReviewConfig struct {
	GroupID int64 `yaml:"group_id" envconfig:"REVIEW_GROUP_ID"`
	// InviteLink is sent to approved applicants when set.
	InviteLink string `yaml:"invite_link" envconfig:"REVIEW_INVITE_LINK"`
}

// Config is the complete application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Storage  StorageConfig       `yaml:"storage"`
	Review   ReviewConfig        `yaml:"review"`
}

// CoreConfig exposes the embedded core sections.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// UsesDatabase reports whether the postgres store is selected.
func (c *Config) UsesDatabase() bool {
	return c.Storage.Driver == StoragePostgres
}

// Load reads path, overlays the environment and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}

	driver := strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if driver == "" {
		driver = StoragePostgres
	}
	switch driver {
	case StoragePostgres:
		if err := c.Database.Normalize(); err != nil {
			return err
		}
	case StorageMemory:
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: postgres, memory", c.Storage.Driver)
	}
	c.Storage.Driver = driver

	if c.Review.GroupID == 0 {
		return fmt.Errorf("review.group_id is required")
	}
	c.Review.InviteLink = strings.TrimSpace(c.Review.InviteLink)
	return nil
}
