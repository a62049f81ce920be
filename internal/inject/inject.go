// Package inject はアプリケーションの依存関係を組み立てます。
package inject

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/samber/do"

	"github.com/yourusername/latent-forge/internal/config"
	"github.com/yourusername/latent-forge/internal/gan"
	"github.com/yourusername/latent-forge/internal/jobs"
	"github.com/yourusername/latent-forge/internal/storage"
)

// Setup は設定に従って各コンポーネントのプロバイダーを登録した Injector を返します。
func Setup(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *do.Injector {
	injector := do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			logger.Debug().Msgf(format, args...)
		},
	})

	do.ProvideValue[*config.Config](injector, cfg)
	do.ProvideValue[zerolog.Logger](injector, logger)

	do.Provide[*redis.Client](injector, func(i *do.Injector) (*redis.Client, error) {
		opt, err := redis.ParseURL(cfg.QueueRedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	})

	do.Provide[jobs.Store](injector, func(i *do.Injector) (jobs.Store, error) {
		if cfg.Backend == config.BackendRedis {
			return jobs.NewRedisStore(do.MustInvoke[*redis.Client](i), cfg.JobTTL()), nil
		}
		return jobs.NewMemoryStore(cfg.JobTTL(), cfg.JobStoreCapacity), nil
	})

	do.Provide[storage.Publisher](injector, func(i *do.Injector) (storage.Publisher, error) {
		if cfg.ResultStorage != config.ResultStorageS3 {
			return storage.InlinePublisher{}, nil
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
		return &storage.S3Publisher{
			Client:        s3.NewFromConfig(awsCfg),
			Bucket:        cfg.S3Bucket,
			Prefix:        cfg.S3Prefix,
			PublicBaseURL: cfg.S3PublicBaseURL,
			Logger:        logger.With().Str("component", "s3").Logger(),
		}, nil
	})

	do.Provide[*gan.Generator](injector, func(i *do.Injector) (*gan.Generator, error) {
		return gan.NewGenerator(gan.BaseSize), nil
	})

	do.Provide[jobs.Renderer](injector, func(i *do.Injector) (jobs.Renderer, error) {
		return gan.NewSynthesizer(
			do.MustInvoke[*gan.Generator](i),
			do.MustInvoke[storage.Publisher](i),
		), nil
	})

	do.Provide[*jobs.Runner](injector, func(i *do.Injector) (*jobs.Runner, error) {
		return jobs.NewRunner(
			do.MustInvoke[jobs.Store](i),
			do.MustInvoke[jobs.Renderer](i),
			logger.With().Str("component", "runner").Logger(),
		), nil
	})

	do.Provide[jobs.Dispatcher](injector, func(i *do.Injector) (jobs.Dispatcher, error) {
		runner := do.MustInvoke[*jobs.Runner](i)
		workerLog := logger.With().Str("component", "dispatcher").Logger()
		if cfg.Backend == config.BackendRedis {
			return jobs.NewAsynqDispatcher(cfg.QueueRedisURL, cfg.WorkerConcurrency, cfg.QueueDepth, runner, workerLog)
		}
		return jobs.NewPool(runner, cfg.WorkerConcurrency, cfg.QueueDepth, workerLog), nil
	})

	do.Provide[*gan.Service](injector, func(i *do.Injector) (*gan.Service, error) {
		return gan.NewService(
			do.MustInvoke[jobs.Store](i),
			do.MustInvoke[jobs.Dispatcher](i),
			gan.Options{Logger: logger.With().Str("component", "service").Logger()},
		)
	})

	return injector
}
