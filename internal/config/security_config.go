package config

import "time"

const DefaultSessionMaxAge = 14 * 24 * time.Hour

type SecurityConfig interface {
	GetSessionSecret() []byte
	GetMaxSessionAge() time.Duration
	GetDefaultPermissions() []string
}

type Security struct {
	SessionSecret string        `yaml:"secret" env:"SESSION_SECRET"`
	SessionMaxAge time.Duration `yaml:"max_age" env:"SESSION_MAX_AGE"`
	// DefaultPermissions are granted to users created on their first Reddit login.
	DefaultPermissions []string `yaml:"default_permissions" env:"DEFAULT_PERMISSIONS" envSeparator:","`
}

var _ SecurityConfig = Security{}

func (s Security) GetSessionSecret() []byte {
	return []byte(s.SessionSecret)
}

func (s Security) GetMaxSessionAge() time.Duration {
	if s.SessionMaxAge <= 0 {
		return DefaultSessionMaxAge
	}
	return s.SessionMaxAge
}

func (s Security) GetDefaultPermissions() []string {
	return s.DefaultPermissions
}

type StorageConfig interface {
	GetDatabasePath() string
}

type Storage struct {
	// DatabasePath selects the sqlite store; empty keeps everything in memory.
	DatabasePath string `yaml:"database_path" env:"DATABASE_PATH"`
}

var _ StorageConfig = Storage{}

func (s Storage) GetDatabasePath() string {
	return s.DatabasePath
}
