package backend

import (
	"context"
	"fmt"
	"log/slog"

	"spendio/internal/amqp"
	"spendio/internal/log"
	"spendio/internal/memstore"
	"spendio/internal/remote"
	"spendio/internal/services"
	"spendio/internal/storage"
)

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// DefaultFactory implements the Factory interface.
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory.
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case LocalBackend:
		return f.createLocalBackend(config)
	case RemoteBackend:
		return f.createRemoteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createLocalBackend(config Config) (*Result, error) {
	store, err := storage.NewStore(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize local store: %w", err)
	}

	// AMQP is optional: without it the local store works standalone and
	// nothing is replayed to the remote backend.
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync",
				log.FieldComponent, log.ComponentBackend, log.FieldError, err)
		} else {
			f.logger.Info("Initialized AMQP client",
				log.FieldComponent, log.ComponentBackend,
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	service := services.NewSpendingService(store, amqpClient)

	f.logger.Info("Initialized local backend",
		log.FieldComponent, log.ComponentBackend,
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", amqpClient != nil)

	return &Result{
		Backend: service,
		Cleanup: service.Close,
	}, nil
}

func (f *DefaultFactory) createRemoteBackend(config Config) (*Result, error) {
	client, err := remote.NewClient(config.SupabaseURL, config.SupabaseAnonKey, config.SupabaseTable)
	if err != nil {
		return nil, fmt.Errorf("initialize remote client: %w", err)
	}
	adapter := remote.NewAdapter(client)

	f.logger.Info("Initialized remote backend",
		log.FieldComponent, log.ComponentBackend,
		"url", config.SupabaseURL, "table", config.SupabaseTable)

	return &Result{
		Backend: adapter,
		Auth:    adapter,
		Cleanup: nil,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*Result, error) {
	store := memstore.New()

	f.logger.Info("Initialized memory backend", log.FieldComponent, log.ComponentBackend)

	return &Result{
		Backend: store,
		Cleanup: nil,
	}, nil
}
