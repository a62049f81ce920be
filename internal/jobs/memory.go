package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore はプロセス内にジョブ状態を保持する Store です。
// 有効期限切れの終端ジョブは Sweep で削除され、件数は capacity で制限されます。
type MemoryStore struct {
	mu       sync.RWMutex
	jobs     map[string]*Job
	ttl      time.Duration
	capacity int
	now      func() time.Time
}

// NewMemoryStore は MemoryStore を作成します。capacity が0以下なら件数制限なしです。
func NewMemoryStore(ttl time.Duration, capacity int) *MemoryStore {
	return &MemoryStore{
		jobs:     make(map[string]*Job),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
}

// Create は新しいジョブを保存します。
func (s *MemoryStore) Create(ctx context.Context, job *Job) error {
	if job == nil {
		return fmt.Errorf("job is nil")
	}
	if job.ID == "" {
		return fmt.Errorf("job.ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job already exists: %s", job.ID)
	}

	now := s.now().UTC()
	if s.capacity > 0 && len(s.jobs) >= s.capacity {
		s.sweepLocked(now)
		if len(s.jobs) >= s.capacity {
			s.evictOldestLocked(len(s.jobs) - s.capacity + 1)
		}
		if len(s.jobs) >= s.capacity {
			return ErrStoreFull
		}
	}

	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if job.ExpiresAt.IsZero() && s.ttl > 0 {
		job.ExpiresAt = job.CreatedAt.Add(s.ttl)
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

// Get はジョブ情報のコピーを返します。
func (s *MemoryStore) Get(ctx context.Context, jobID string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return job.Clone(), nil
}

// Complete はジョブ完了時の情報を保存します。
func (s *MemoryStore) Complete(ctx context.Context, jobID string, outcome Outcome) error {
	return s.finish(jobID, func(job *Job) {
		job.Status = StatusCompleted
		job.ImageURL = outcome.ImageURL
		job.Checksum = outcome.Checksum
		job.Error = ""
	})
}

// Fail はジョブ失敗時の情報を保存します。
func (s *MemoryStore) Fail(ctx context.Context, jobID string, message string) error {
	return s.finish(jobID, func(job *Job) {
		job.Status = StatusFailed
		job.Error = message
	})
}

// Delete はジョブを削除します。
func (s *MemoryStore) Delete(ctx context.Context, jobID string) error {
	s.mu.Lock()
	delete(s.jobs, jobID)
	s.mu.Unlock()
	return nil
}

// Len は保持しているジョブ数を返します。
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Sweep は有効期限切れの終端ジョブを削除し、削除件数を返します。
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now().UTC())
}

// RunJanitor は ctx が終了するまで interval ごとに Sweep を実行します。
func (s *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *MemoryStore) finish(jobID string, mutate func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	if job.Status.Terminal() {
		return ErrAlreadyFinished
	}
	mutate(job)
	job.UpdatedAt = s.now().UTC()
	if s.ttl > 0 {
		job.ExpiresAt = job.UpdatedAt.Add(s.ttl)
	}
	return nil
}

func (s *MemoryStore) sweepLocked(now time.Time) int {
	removed := 0
	for id, job := range s.jobs {
		if !job.Status.Terminal() || job.ExpiresAt.IsZero() {
			continue
		}
		if now.After(job.ExpiresAt) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// 処理中のジョブは単一書き込みを守るため削除しない。
func (s *MemoryStore) evictOldestLocked(n int) {
	terminal := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if job.Status.Terminal() {
			terminal = append(terminal, job)
		}
	}
	sort.Slice(terminal, func(i, j int) bool {
		return terminal[i].UpdatedAt.Before(terminal[j].UpdatedAt)
	})
	for i := 0; i < n && i < len(terminal); i++ {
		delete(s.jobs, terminal[i].ID)
	}
}
