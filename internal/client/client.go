// Package client は生成APIの HTTP クライアントです。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound はジョブが存在しないことを表します。
var ErrNotFound = errors.New("job not found")

// GenerateRequest は POST /generate のリクエストです。
type GenerateRequest struct {
	Seed         *int64    `json:"seed,omitempty"`
	Style        string    `json:"style,omitempty"`
	Resolution   int       `json:"resolution,omitempty"`
	LatentVector []float64 `json:"latent_vector"`
}

// Job は API が返すジョブ状態です。
type Job struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	Seed       int64     `json:"seed"`
	Latent     []float64 `json:"latent"`
	Style      string    `json:"style"`
	Resolution int       `json:"resolution"`
	ImageURL   string    `json:"image_url,omitempty"`
	Checksum   string    `json:"checksum"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Terminal は終端状態かどうかを返します。
func (j *Job) Terminal() bool {
	return j.Status == "completed" || j.Status == "failed"
}

// APIError はエラーレスポンスです。
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Client は生成APIのクライアントです。
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New は Client を作成します。
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Generate はジョブを投入します。wait が true の場合はサーバー側で完了を待ちます。
func (c *Client) Generate(ctx context.Context, req GenerateRequest, wait bool) (*Job, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	path := "/generate"
	if wait {
		path += "?wait=true"
	}
	var job Job
	if err := c.do(ctx, http.MethodPost, path, bytes.NewReader(body), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Result はジョブの現在の状態を取得します。
func (c *Client) Result(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	if err := c.do(ctx, http.MethodGet, "/result/"+url.PathEscape(jobID), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Wait はジョブが終端状態になるまで interval ごとにポーリングします。
func (c *Client) Wait(ctx context.Context, jobID string, interval time.Duration) (*Job, error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		job, err := c.Result(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if job.Terminal() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Health はヘルスチェック結果を返します。
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %v", ErrNotFound, apiErr)
		}
		return apiErr
	}
	return json.Unmarshal(data, out)
}
