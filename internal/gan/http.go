package gan

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/latent-forge/internal/jobs"
)

// JobService は HTTP ハンドラーが利用するジョブ操作です。
type JobService interface {
	Submit(ctx context.Context, req Request) (*jobs.Job, error)
	Fetch(ctx context.Context, jobID string) (*jobs.Job, error)
	Wait(ctx context.Context, jobID string) (*jobs.Job, error)
}

// DefaultSyncTimeout は wait=true で SyncTimeout が未設定のときの待ち時間です。
const DefaultSyncTimeout = 30 * time.Second

// HandlerOptions は同期待ちの設定です。
type HandlerOptions struct {
	SyncTimeout time.Duration
}

func (o HandlerOptions) syncTimeout() time.Duration {
	if o.SyncTimeout <= 0 {
		return DefaultSyncTimeout
	}
	return o.SyncTimeout
}

// HealthInfo はヘルスチェックで返すサービス情報です。
type HealthInfo struct {
	Service string
	Version string
	Backend string
	Device  string
}

// GenerateHandler は POST /generate のハンドラーを返します。
// クエリ wait=true の場合は完了まで待ってから結果を返します。
func GenerateHandler(svc JobService, opts HandlerOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req Request
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    CodeInvalidInput,
				"message": "リクエストボディは JSON で送信してください。",
			})
			return
		}

		job, err := svc.Submit(c.Request.Context(), req)
		if err != nil {
			respondWithError(c, err)
			return
		}

		if !wantsSync(c) {
			c.JSON(http.StatusOK, submitResponse(job))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), opts.syncTimeout())
		defer cancel()

		final, err := svc.Wait(ctx, job.ID)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, jobResponse(final))
		case final != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)):
			c.JSON(http.StatusAccepted, jobResponse(final))
		default:
			respondWithError(c, err)
		}
	}
}

// ResultHandler は GET /result/:id のハンドラーを返します。
func ResultHandler(svc JobService) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := strings.TrimSpace(c.Param("id"))
		if jobID == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    CodeInvalidInput,
				"message": "jobId を指定してください。",
			})
			return
		}

		job, err := svc.Fetch(c.Request.Context(), jobID)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, jobResponse(job))
	}
}

// HealthHandler は GET /health のハンドラーを返します。
func HealthHandler(info HealthInfo) gin.HandlerFunc {
	device := info.Device
	if device == "" {
		device = "cpu"
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":       "healthy",
			"service":      info.Service,
			"version":      info.Version,
			"backend":      info.Backend,
			"device":       device,
			"model_loaded": true,
			"timestamp":    float64(time.Now().UnixNano()) / float64(time.Second),
		})
	}
}

func wantsSync(c *gin.Context) bool {
	v, err := strconv.ParseBool(c.Query("wait"))
	return err == nil && v
}

func submitResponse(job *jobs.Job) gin.H {
	return gin.H{
		"id":         job.ID,
		"status":     job.Status,
		"seed":       job.Seed,
		"latent":     job.Latent,
		"checksum":   job.Checksum,
		"style":      job.Style,
		"resolution": job.Resolution,
		"created_at": job.CreatedAt,
	}
}

func jobResponse(job *jobs.Job) gin.H {
	payload := submitResponse(job)
	payload["updated_at"] = job.UpdatedAt
	if job.ImageURL != "" {
		payload["image_url"] = job.ImageURL
	}
	if job.Error != "" {
		payload["error"] = job.Error
	}
	return payload
}

func respondWithError(c *gin.Context, err error) {
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		status := http.StatusBadRequest
		switch apiErr.Code {
		case CodeJobNotFound:
			status = http.StatusNotFound
		case CodeQueueFull, CodeStoreFull:
			status = http.StatusServiceUnavailable
			c.Header("Retry-After", "5")
		case CodeInternal:
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		})
	case errors.Is(err, context.Canceled):
		c.JSON(http.StatusRequestTimeout, gin.H{
			"code":    "REQUEST_CANCELED",
			"message": "リクエストがキャンセルされました。",
		})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    CodeInternal,
			"message": "サーバー内部でエラーが発生しました。",
		})
	}
}
