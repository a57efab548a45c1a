package backend

import (
	"fmt"

	"spendio/internal/config"
)

// Config holds what the factory needs to build a backend.
type Config struct {
	Type BackendType

	// Local store
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Remote backend
	SupabaseURL     string
	SupabaseAnonKey string
	SupabaseTable   string
}

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		SupabaseURL:     appConfig.SupabaseURL,
		SupabaseAnonKey: appConfig.SupabaseAnonKey,
		SupabaseTable:   appConfig.SupabaseTable,
	}, nil
}

// Validate validates the backend configuration.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case LocalBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for local backend")
		}
		// AMQP is optional: without it writes stay local-only.

	case RemoteBackend:
		if c.SupabaseURL == "" {
			return fmt.Errorf("backend URL is required for remote backend")
		}
		if c.SupabaseAnonKey == "" {
			return fmt.Errorf("backend API key is required for remote backend")
		}
		if c.SupabaseTable == "" {
			return fmt.Errorf("backend table name is required for remote backend")
		}

	case MemoryBackend:
		// Nothing to validate.
	}

	return nil
}
