package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if params.Body != nil {
		f.body, _ = io.ReadAll(params.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestInlinePublisherReturnsDataURI(t *testing.T) {
	url, err := InlinePublisher{}.Publish(context.Background(), Object{DataURI: "data:image/png;base64,AAAA"})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if url != "data:image/png;base64,AAAA" {
		t.Fatalf("unexpected url: %s", url)
	}
}

func TestS3PublisherUploadsObject(t *testing.T) {
	putter := &fakePutter{}
	pub := &S3Publisher{
		Client:        putter,
		Bucket:        "art",
		Prefix:        "generated",
		PublicBaseURL: "https://cdn.example.com/",
		Logger:        zerolog.Nop(),
	}

	url, err := pub.Publish(context.Background(), Object{
		Key:         "job-1.png",
		Data:        []byte("png-bytes"),
		ContentType: "image/png",
		Metadata:    map[string]string{"seed": "42"},
	})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if url != "https://cdn.example.com/generated/job-1.png" {
		t.Fatalf("unexpected url: %s", url)
	}
	if aws.ToString(putter.input.Bucket) != "art" {
		t.Fatalf("unexpected bucket: %s", aws.ToString(putter.input.Bucket))
	}
	if aws.ToString(putter.input.Key) != "generated/job-1.png" {
		t.Fatalf("unexpected key: %s", aws.ToString(putter.input.Key))
	}
	if aws.ToString(putter.input.ContentType) != "image/png" {
		t.Fatalf("unexpected content type: %s", aws.ToString(putter.input.ContentType))
	}
	if string(putter.body) != "png-bytes" {
		t.Fatalf("unexpected body: %q", putter.body)
	}
	if putter.input.Metadata["seed"] != "42" {
		t.Fatalf("unexpected metadata: %#v", putter.input.Metadata)
	}
}

func TestS3PublisherDefaultURL(t *testing.T) {
	pub := &S3Publisher{Client: &fakePutter{}, Bucket: "art", Logger: zerolog.Nop()}
	url, err := pub.Publish(context.Background(), Object{Key: "a.png"})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if url != "https://art.s3.amazonaws.com/a.png" {
		t.Fatalf("unexpected url: %s", url)
	}
}

func TestS3PublisherPropagatesError(t *testing.T) {
	pub := &S3Publisher{Client: &fakePutter{err: errors.New("denied")}, Bucket: "art", Logger: zerolog.Nop()}
	if _, err := pub.Publish(context.Background(), Object{Key: "a.png"}); err == nil {
		t.Fatal("expected error from failing upload")
	}
}

func TestS3PublisherRequiresBucket(t *testing.T) {
	pub := &S3Publisher{Client: &fakePutter{}, Logger: zerolog.Nop()}
	if _, err := pub.Publish(context.Background(), Object{Key: "a.png"}); err == nil {
		t.Fatal("expected error without bucket")
	}
}
