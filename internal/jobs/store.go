package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	jobKeyPrefix = "gan:job:"
	maxTxRetries = 8

	// processingTTL は処理中ジョブのキーに付ける上限です。ワーカーが落ちた場合の取り残しを回収します。
	processingTTL = 24 * time.Hour
)

// Store はジョブ状態の保存先です。
// 終端状態への遷移は1ジョブにつき1回だけ成功し、その時点から有効期限を数え直します。
type Store interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, jobID string) (*Job, error)
	Complete(ctx context.Context, jobID string, outcome Outcome) error
	Fail(ctx context.Context, jobID string, message string) error
	Delete(ctx context.Context, jobID string) error
}

// RedisStore はジョブ状態を Redis に保存します。
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

// NewRedisStore は RedisStore を作成します。
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		ttl: ttl,
		now: time.Now,
	}
}

// Get はジョブ情報を取得します。
func (s *RedisStore) Get(ctx context.Context, jobID string) (*Job, error) {
	if jobID == "" {
		return nil, ErrNotFound
	}
	data, err := s.rdb.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Create は新しいジョブを保存します。同じIDが既に存在する場合はエラーになります。
func (s *RedisStore) Create(ctx context.Context, job *Job) error {
	if job == nil {
		return fmt.Errorf("job is nil")
	}
	if job.ID == "" {
		return fmt.Errorf("job.ID is required")
	}
	now := s.now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	// 保持期間は終端状態になった時点から数えるため、作成時は processingTTL だけを付ける
	ok, err := s.rdb.SetNX(ctx, jobKey(job.ID), payload, max(s.ttl, processingTTL)).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("job already exists: %s", job.ID)
	}
	return nil
}

// Complete はジョブ完了時の情報を保存します。
func (s *RedisStore) Complete(ctx context.Context, jobID string, outcome Outcome) error {
	return s.finish(ctx, jobID, func(job *Job) {
		job.Status = StatusCompleted
		job.ImageURL = outcome.ImageURL
		job.Checksum = outcome.Checksum
		job.Error = ""
	})
}

// Fail はジョブ失敗時の情報を保存します。
func (s *RedisStore) Fail(ctx context.Context, jobID string, message string) error {
	return s.finish(ctx, jobID, func(job *Job) {
		job.Status = StatusFailed
		job.Error = message
	})
}

// Delete はジョブを削除します。
func (s *RedisStore) Delete(ctx context.Context, jobID string) error {
	return s.rdb.Del(ctx, jobKey(jobID)).Err()
}

func (s *RedisStore) finish(ctx context.Context, jobID string, mutate func(*Job)) error {
	key := jobKey(jobID)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return err
		}
		var job Job
		if err := json.Unmarshal(data, &job); err != nil {
			return err
		}
		if job.Status.Terminal() {
			return ErrAlreadyFinished
		}
		mutate(&job)
		job.UpdatedAt = s.now().UTC()
		if s.ttl > 0 {
			job.ExpiresAt = job.UpdatedAt.Add(s.ttl)
		}
		payload, err := json.Marshal(&job)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("job %s: too many concurrent updates", jobID)
}

func jobKey(id string) string {
	return jobKeyPrefix + id
}
