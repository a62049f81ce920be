package inject

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/samber/do"

	"github.com/yourusername/latent-forge/internal/config"
	"github.com/yourusername/latent-forge/internal/gan"
	"github.com/yourusername/latent-forge/internal/jobs"
	"github.com/yourusername/latent-forge/internal/storage"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Backend:           config.BackendMemory,
		ResultStorage:     config.ResultStorageInline,
		WorkerConcurrency: 1,
		QueueDepth:        4,
		JobExpireMinutes:  5,
		JobStoreCapacity:  10,
	}
}

func TestSetupMemoryBackend(t *testing.T) {
	injector := Setup(context.Background(), memoryConfig(), zerolog.Nop())

	if _, ok := do.MustInvoke[jobs.Store](injector).(*jobs.MemoryStore); !ok {
		t.Fatal("expected memory store")
	}
	if _, ok := do.MustInvoke[jobs.Dispatcher](injector).(*jobs.Pool); !ok {
		t.Fatal("expected local worker pool")
	}
	if _, ok := do.MustInvoke[storage.Publisher](injector).(storage.InlinePublisher); !ok {
		t.Fatal("expected inline publisher")
	}
	if _, err := do.Invoke[*gan.Service](injector); err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
}

func TestSetupRedisBackendUsesRedisStore(t *testing.T) {
	cfg := memoryConfig()
	cfg.Backend = config.BackendRedis
	cfg.QueueRedisURL = "redis://127.0.0.1:6379/0"
	injector := Setup(context.Background(), cfg, zerolog.Nop())

	if _, ok := do.MustInvoke[jobs.Store](injector).(*jobs.RedisStore); !ok {
		t.Fatal("expected redis store")
	}
}
