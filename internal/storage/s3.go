package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// PutObjectAPI は S3 クライアントのうち S3Publisher が使う部分です。
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher は画像を S3 にアップロードし、公開ベースURL配下のURLを返します。
type S3Publisher struct {
	Client        PutObjectAPI
	Bucket        string
	Prefix        string
	PublicBaseURL string
	Logger        zerolog.Logger
}

// Publish は obj を S3 に保存します。
func (p *S3Publisher) Publish(ctx context.Context, obj Object) (string, error) {
	if p.Bucket == "" {
		return "", fmt.Errorf("s3 bucket is not configured")
	}
	key := path.Join(p.Prefix, obj.Key)
	p.Logger.Debug().
		Str("bucket", p.Bucket).
		Str("key", key).
		Str("content_type", obj.ContentType).
		Int("bytes", len(obj.Data)).
		Msg("uploading to s3")

	_, err := p.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(p.Bucket),
		Key:          aws.String(key),
		ContentType:  aws.String(obj.ContentType),
		Body:         bytes.NewReader(obj.Data),
		Metadata:     obj.Metadata,
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload %s: %w", key, err)
	}

	base := strings.TrimRight(p.PublicBaseURL, "/")
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.amazonaws.com", p.Bucket)
	}
	return base + "/" + key, nil
}
