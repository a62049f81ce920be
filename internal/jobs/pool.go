package jobs

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// ErrPoolClosed は停止済みのプールへの投入を表します。
var ErrPoolClosed = errors.New("worker pool is closed")

// Pool は固定数のゴルーチンでジョブを処理するローカル Dispatcher です。
// キューの深さを超える投入は ErrQueueFull で拒否されます。
type Pool struct {
	runner  *Runner
	workers int
	queue   chan string
	logger  zerolog.Logger

	mu      sync.RWMutex
	started bool
	closed  bool
	wg      sync.WaitGroup
}

// NewPool は Pool を作成します。
func NewPool(runner *Runner, workers, depth int, logger zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if depth < 0 {
		depth = 0
	}
	return &Pool{
		runner:  runner,
		workers: workers,
		queue:   make(chan string, depth),
		logger:  logger,
	}
}

// Start はワーカーを起動します。
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	if p.started {
		return nil
	}
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.loop(i + 1)
	}
	p.logger.Info().Int("workers", p.workers).Int("depth", cap(p.queue)).Msg("worker pool started")
	return nil
}

// Dispatch はジョブIDをキューに投入します。ブロックはしません。
func (p *Pool) Dispatch(ctx context.Context, jobID string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.queue <- jobID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Pending はキューで待機中のジョブ数を返します。
func (p *Pool) Pending() int {
	return len(p.queue)
}

// Shutdown は新規投入を止め、投入済みのジョブが終わるまで待ちます。
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info().Msg("worker pool stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) loop(worker int) {
	defer p.wg.Done()
	log := p.logger.With().Int("worker", worker).Logger()
	for jobID := range p.queue {
		// 投入元のリクエストとは切り離して最後まで実行する
		if err := p.runner.Run(context.Background(), jobID); err != nil {
			log.Error().Err(err).Str("job_id", jobID).Msg("failed to record job outcome")
		}
	}
}
