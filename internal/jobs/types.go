package jobs

import (
	"errors"
	"time"
)

// Status はジョブの実行状態を表します。
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal は終端状態かどうかを返します。
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// LatentDim は潜在ベクトルの次元数です。
const LatentDim = 100

// PendingChecksum は完了前のジョブが返すチェックサムのプレースホルダーです。
const PendingChecksum = "pending"

var (
	// ErrNotFound は指定IDのジョブが存在しないことを表します。
	ErrNotFound = errors.New("job not found")
	// ErrAlreadyFinished は終端状態のジョブへの書き込みを表します。
	ErrAlreadyFinished = errors.New("job already finished")
	// ErrQueueFull はワーカーキューが満杯であることを表します。
	ErrQueueFull = errors.New("job queue is full")
	// ErrStoreFull はジョブストアが上限に達していることを表します。
	ErrStoreFull = errors.New("job store is full")
)

// Job は1件の生成リクエストの状態を表します。
type Job struct {
	ID         string    `json:"id"`
	Status     Status    `json:"status"`
	Seed       int64     `json:"seed"`
	Latent     []float64 `json:"latent"`
	Style      string    `json:"style,omitempty"`
	Resolution int       `json:"resolution,omitempty"`
	ImageURL   string    `json:"image_url,omitempty"`
	Checksum   string    `json:"checksum"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	ExpiresAt  time.Time `json:"expires_at,omitempty"`
}

// Clone は呼び出し側が自由に変更できるコピーを返します。
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	if j.Latent != nil {
		cp.Latent = append([]float64(nil), j.Latent...)
	}
	return &cp
}

// Outcome はワーカーが書き戻す生成結果です。
type Outcome struct {
	ImageURL string
	Checksum string
}
