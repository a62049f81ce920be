// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	ResultStorageInline = "inline"
	ResultStorageS3     = "s3"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string // APIサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)
	AppEnv  string // ログ形式の切り替えに使う実行環境 (development, production)

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り、* で全許可）

	// ジョブ/キュー設定
	Backend           string        // ジョブ状態とキューのバックエンド (memory, redis)
	QueueRedisURL     string        // redis バックエンド用の接続URL
	WorkerConcurrency int           // 同時に実行する生成ジョブ数
	QueueDepth        int           // 待機できるジョブ数 (redis では 0 で無制限)
	JobExpireMinutes  int           // 終端ジョブを保持する時間（分）
	JobStoreCapacity  int           // memory バックエンドで保持するジョブ数の上限
	SyncTimeout       time.Duration // wait=true で完了を待つ上限時間

	// 生成結果の公開先
	ResultStorage   string // inline: data URI を返す, s3: S3 にアップロードする
	S3Bucket        string
	S3Prefix        string
	S3PublicBaseURL string
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	loadEnvFile()

	config := &Config{
		// サーバー設定
		Port:    getEnv("PORT", "8000"),
		GinMode: getEnv("GIN_MODE", "debug"),
		AppEnv:  getEnv("APP_ENV", "development"),

		// CORS設定
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),

		// ジョブ/キュー設定
		Backend:           getEnv("BACKEND", BackendMemory),
		QueueRedisURL:     getEnv("QUEUE_REDIS_URL", "redis://127.0.0.1:6379/0"),
		WorkerConcurrency: getEnvAsInt("WORKER_CONCURRENCY", 2),
		QueueDepth:        getEnvAsInt("QUEUE_DEPTH", 64),
		JobExpireMinutes:  getEnvAsInt("JOB_EXPIRE_MINUTES", 30),
		JobStoreCapacity:  getEnvAsInt("JOB_STORE_CAPACITY", 1000),
		SyncTimeout:       time.Duration(getEnvAsInt("SYNC_TIMEOUT_SECONDS", 30)) * time.Second,

		// 生成結果の公開先
		ResultStorage:   getEnv("RESULT_STORAGE", ResultStorageInline),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", "generated"),
		S3PublicBaseURL: getEnv("S3_PUBLIC_BASE_URL", ""),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// JobTTL はジョブの保持期間を返します。
func (c *Config) JobTTL() time.Duration {
	return time.Duration(c.JobExpireMinutes) * time.Minute
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.QueueRedisURL == "" {
			return fmt.Errorf("QUEUE_REDIS_URL is required when BACKEND=redis")
		}
	default:
		return fmt.Errorf("BACKEND must be %q or %q (got %q)", BackendMemory, BackendRedis, c.Backend)
	}

	switch c.ResultStorage {
	case ResultStorageInline:
	case ResultStorageS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when RESULT_STORAGE=s3")
		}
	default:
		return fmt.Errorf("RESULT_STORAGE must be %q or %q (got %q)", ResultStorageInline, ResultStorageS3, c.ResultStorage)
	}

	if c.WorkerConcurrency <= 0 {
		return fmt.Errorf("WORKER_CONCURRENCY must be positive")
	}
	if c.QueueDepth < 0 {
		return fmt.Errorf("QUEUE_DEPTH must not be negative")
	}
	if c.JobExpireMinutes <= 0 {
		return fmt.Errorf("JOB_EXPIRE_MINUTES must be positive")
	}

	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
