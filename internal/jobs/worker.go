// Package jobs は生成ジョブの状態管理と非同期実行を提供します。
package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
)

// Renderer はジョブの潜在ベクトルから画像を生成し、公開先URLとチェックサムを返します。
type Renderer interface {
	Render(ctx context.Context, job *Job) (Outcome, error)
}

// Dispatcher はジョブIDを非同期実行に回します。
type Dispatcher interface {
	Dispatch(ctx context.Context, jobID string) error
	Start() error
	Shutdown(ctx context.Context) error
}

// Runner は1件のジョブを実行し、結果をストアへ一度だけ書き戻します。
type Runner struct {
	store    Store
	renderer Renderer
	logger   zerolog.Logger
}

// NewRunner は Runner を作成します。
func NewRunner(store Store, renderer Renderer, logger zerolog.Logger) *Runner {
	return &Runner{
		store:    store,
		renderer: renderer,
		logger:   logger,
	}
}

// Run はジョブを実行します。生成処理の失敗はジョブに記録され、戻り値にはストアへの書き込み失敗のみが返ります。
func (r *Runner) Run(ctx context.Context, jobID string) error {
	log := r.logger.With().Str("job_id", jobID).Logger()

	job, err := r.store.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	if job.Status.Terminal() {
		log.Debug().Str("status", string(job.Status)).Msg("job already finished, skipping")
		return nil
	}

	start := time.Now()
	outcome, renderErr := r.render(ctx, job)
	if renderErr != nil {
		log.Warn().Err(renderErr).Dur("elapsed", time.Since(start)).Msg("generation failed")
		err = r.store.Fail(ctx, jobID, renderErr.Error())
	} else {
		log.Info().Dur("elapsed", time.Since(start)).Str("checksum", outcome.Checksum).Msg("generation completed")
		err = r.store.Complete(ctx, jobID, outcome)
	}

	if errors.Is(err, ErrAlreadyFinished) {
		log.Warn().Msg("job finished by another writer")
		return nil
	}
	return err
}

func (r *Runner) render(ctx context.Context, job *Job) (outcome Outcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Str("job_id", job.ID).Bytes("stack", debug.Stack()).Msg("panic during generation")
			err = fmt.Errorf("generation panicked: %v", rec)
		}
	}()
	return r.renderer.Render(ctx, job)
}
