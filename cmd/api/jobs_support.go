package main

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/latent-forge/internal/config"
	"github.com/yourusername/latent-forge/internal/jobs"
)

const janitorInterval = time.Minute

// startJobs はワーカーを起動し、memory バックエンドでは期限切れジョブの掃除も開始します。
func startJobs(ctx context.Context, g *errgroup.Group, injector *do.Injector, logger zerolog.Logger) error {
	dispatcher, err := do.Invoke[jobs.Dispatcher](injector)
	if err != nil {
		return err
	}
	if err := dispatcher.Start(); err != nil {
		return err
	}

	store := do.MustInvoke[jobs.Store](injector)
	if mem, ok := store.(*jobs.MemoryStore); ok {
		g.Go(func() error {
			logger.Debug().Dur("interval", janitorInterval).Msg("job janitor started")
			return mem.RunJanitor(ctx, janitorInterval)
		})
	}
	return nil
}

// stopJobs は投入済みのジョブを待ってからワーカーと接続を閉じます。
func stopJobs(injector *do.Injector, logger zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if dispatcher, err := do.Invoke[jobs.Dispatcher](injector); err == nil {
		errs = append(errs, dispatcher.Shutdown(ctx))
	}
	if cfg := do.MustInvoke[*config.Config](injector); cfg.Backend == config.BackendRedis {
		if client, err := do.Invoke[*redis.Client](injector); err == nil {
			errs = append(errs, client.Close())
		}
	}
	errs = append(errs, injector.Shutdown())
	logger.Debug().Msg("job backend stopped")
	return errors.Join(errs...)
}
