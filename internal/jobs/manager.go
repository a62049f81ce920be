package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

const (
	taskTypeGenerate = "gan:generate"
	queueName        = "gan"
)

// TaskPayload は生成ジョブのペイロードです。
type TaskPayload struct {
	JobID string `json:"jobId"`
}

// AsynqDispatcher は Asynq を介して複数プロセスでジョブを処理する Dispatcher です。
// ジョブ状態は共有の RedisStore に置く必要があります。
type AsynqDispatcher struct {
	client    *asynq.Client
	server    *asynq.Server
	inspector *asynq.Inspector
	mux       *asynq.ServeMux
	runner    *Runner
	depth     int
	pending   func() (int, error)
	logger    zerolog.Logger
}

// NewAsynqDispatcher は AsynqDispatcher を初期化します。
// depth が正の場合、待機中タスクが depth 件以上あると Dispatch は ErrQueueFull を返します。
func NewAsynqDispatcher(redisURL string, concurrency, depth int, runner *Runner, logger zerolog.Logger) (*AsynqDispatcher, error) {
	if runner == nil {
		return nil, errors.New("runner is nil")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	client := asynq.NewClient(opt)
	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				queueName: 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	d := &AsynqDispatcher{
		client:    client,
		server:    server,
		inspector: asynq.NewInspector(opt),
		mux:       mux,
		runner:    runner,
		depth:     depth,
		logger:    logger,
	}
	d.pending = d.pendingTasks
	mux.HandleFunc(taskTypeGenerate, d.handleGenerateTask)
	return d, nil
}

// Start は Asynq サーバーをバックグラウンドで起動します。
func (d *AsynqDispatcher) Start() error {
	if err := d.server.Start(d.mux); err != nil {
		return fmt.Errorf("failed to start asynq server: %w", err)
	}
	d.logger.Info().Msg("asynq server started")
	return nil
}

// Shutdown はサーバーとクライアントを閉じます。
func (d *AsynqDispatcher) Shutdown(ctx context.Context) error {
	d.server.Shutdown()
	return errors.Join(d.client.Close(), d.inspector.Close())
}

// Dispatch はジョブをキューに投入します。再試行は行いません。
func (d *AsynqDispatcher) Dispatch(ctx context.Context, jobID string) error {
	if jobID == "" {
		return fmt.Errorf("jobID is required")
	}
	if d.depth > 0 {
		n, err := d.pending()
		switch {
		case err != nil:
			// キューの状態が取れない場合は投入を止めない
			d.logger.Warn().Err(err).Msg("failed to inspect queue depth")
		case n >= d.depth:
			return ErrQueueFull
		}
	}

	body, err := json.Marshal(&TaskPayload{JobID: jobID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(taskTypeGenerate, body, asynq.Queue(queueName))
	info, err := d.client.EnqueueContext(ctx, task, asynq.MaxRetry(0), asynq.TaskID(jobID))
	if err != nil {
		return err
	}
	d.logger.Debug().Str("job_id", jobID).Str("task_id", info.ID).Msg("task enqueued")
	return nil
}

func (d *AsynqDispatcher) pendingTasks() (int, error) {
	info, err := d.inspector.GetQueueInfo(queueName)
	if err != nil {
		return 0, err
	}
	return info.Pending, nil
}

func (d *AsynqDispatcher) handleGenerateTask(ctx context.Context, task *asynq.Task) error {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if payload.JobID == "" {
		return fmt.Errorf("missing jobId in payload: %w", asynq.SkipRetry)
	}
	// サーバー停止時もジョブは最後まで実行する
	return d.runner.Run(context.WithoutCancel(ctx), payload.JobID)
}
