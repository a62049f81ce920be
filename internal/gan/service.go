// Package gan は生成リクエストの受付とジョブの参照を提供します。
package gan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/yourusername/latent-forge/internal/jobs"
)

const defaultPollInterval = 100 * time.Millisecond

// Request は生成リクエストです。未指定の項目は nil です。
type Request struct {
	Seed         *int64    `json:"seed"`
	Style        *string   `json:"style"`
	Resolution   *int      `json:"resolution"`
	LatentVector []float64 `json:"latent_vector"`
}

// Options は Service の動作設定です。
type Options struct {
	PollInterval time.Duration
	Logger       zerolog.Logger
}

// Service は生成ジョブの投入と参照を担います。
type Service struct {
	store        jobs.Store
	dispatcher   jobs.Dispatcher
	logger       zerolog.Logger
	pollInterval time.Duration
	newID        func() string
	randomSeed   func() int64
}

// NewService は Service を作成します。
func NewService(store jobs.Store, dispatcher jobs.Dispatcher, opts Options) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is nil")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is nil")
	}
	return &Service{
		store:        store,
		dispatcher:   dispatcher,
		logger:       opts.Logger,
		pollInterval: lo.Ternary(opts.PollInterval > 0, opts.PollInterval, defaultPollInterval),
		newID:        uuid.NewString,
		randomSeed:   RandomSeed,
	}, nil
}

// Submit は入力を検証してジョブを作成し、非同期実行に回します。
// 検証に失敗した場合ジョブは作成されません。
func (s *Service) Submit(ctx context.Context, req Request) (*jobs.Job, error) {
	if req.Resolution != nil && !ValidResolution(*req.Resolution) {
		return nil, newError(CodeInvalidInput, "resolution には 256, 512, 1024 のいずれかを指定してください。", nil)
	}
	if req.LatentVector != nil && len(req.LatentVector) != jobs.LatentDim {
		return nil, newError(CodeInvalidInput,
			fmt.Sprintf("latent_vector は %d 次元で指定してください (received: %d)", jobs.LatentDim, len(req.LatentVector)), nil)
	}

	seed := lo.FromPtrOr(req.Seed, s.randomSeed())
	latent := append([]float64(nil), req.LatentVector...)
	if req.LatentVector == nil {
		latent = DeriveLatent(seed)
	}
	style := strings.TrimSpace(lo.FromPtr(req.Style))
	if style == "" {
		style = DefaultStyle
	}

	job := &jobs.Job{
		ID:         s.newID(),
		Status:     jobs.StatusProcessing,
		Seed:       seed,
		Latent:     latent,
		Style:      style,
		Resolution: lo.FromPtrOr(req.Resolution, DefaultResolution),
		Checksum:   jobs.PendingChecksum,
	}
	if err := s.store.Create(ctx, job); err != nil {
		if errors.Is(err, jobs.ErrStoreFull) {
			return nil, newError(CodeStoreFull, "処理中のジョブが上限に達しています。しばらくしてから再試行してください。", err)
		}
		return nil, err
	}
	snapshot := job.Clone()

	if err := s.dispatcher.Dispatch(ctx, job.ID); err != nil {
		if delErr := s.store.Delete(context.WithoutCancel(ctx), job.ID); delErr != nil {
			err = fmt.Errorf("%w (cleanup failed: %v)", err, delErr)
		}
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, newError(CodeQueueFull, "生成キューが満杯です。しばらくしてから再試行してください。", err)
		}
		return nil, err
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Int64("seed", seed).
		Str("style", style).
		Int("resolution", job.Resolution).
		Bool("custom_latent", req.LatentVector != nil).
		Msg("job submitted")
	return snapshot, nil
}

// Fetch はジョブの現在の状態を返します。
func (s *Service) Fetch(ctx context.Context, jobID string) (*jobs.Job, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			return nil, newError(CodeJobNotFound, "指定されたジョブは存在しません。", err)
		}
		return nil, err
	}
	return job, nil
}

// Wait はジョブが終端状態になるか ctx が終了するまでストアをポーリングします。
// ctx が先に終了した場合は、その時点の状態と ctx のエラーを返します。
func (s *Service) Wait(ctx context.Context, jobID string) (*jobs.Job, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		job, err := s.Fetch(context.WithoutCancel(ctx), jobID)
		if err != nil {
			return nil, err
		}
		if job.Status.Terminal() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}
