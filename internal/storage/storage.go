// Package storage は生成画像の公開先を抽象化します。
package storage

import (
	"context"
)

// Object は公開対象の画像です。
type Object struct {
	Key         string
	Data        []byte
	ContentType string
	// DataURI は Data を埋め込んだ data URI です。
	DataURI  string
	Metadata map[string]string
}

// Publisher は画像を公開し、クライアントが参照する URL を返します。
type Publisher interface {
	Publish(ctx context.Context, obj Object) (string, error)
}

// InlinePublisher は data URI をそのまま URL として返します。外部への書き込みは行いません。
type InlinePublisher struct{}

// Publish は obj.DataURI を返します。
func (InlinePublisher) Publish(ctx context.Context, obj Object) (string, error) {
	return obj.DataURI, nil
}
