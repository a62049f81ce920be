package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestGenerateSendsRequest(t *testing.T) {
	var got GenerateRequest
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/generate" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		query = r.URL.RawQuery
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "job-1", "status": "processing", "seed": 12345, "checksum": "pending",
		})
	}))
	defer srv.Close()

	seed := int64(12345)
	job, err := New(srv.URL).Generate(context.Background(), GenerateRequest{Seed: &seed, Resolution: 256}, true)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if job.ID != "job-1" || job.Seed != 12345 || job.Status != "processing" {
		t.Fatalf("unexpected job: %#v", job)
	}
	if got.Seed == nil || *got.Seed != 12345 || got.Resolution != 256 {
		t.Fatalf("unexpected request body: %#v", got)
	}
	if query != "wait=true" {
		t.Fatalf("unexpected query: %s", query)
	}
}

func TestResultNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"JOB_NOT_FOUND","message":"missing"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Result(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAPIErrorDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"INVALID_INPUT","message":"bad resolution"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Generate(context.Background(), GenerateRequest{Resolution: 300}, false)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Code != "INVALID_INPUT" {
		t.Fatalf("unexpected api error: %#v", apiErr)
	}
}

func TestWaitPollsUntilTerminal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := "processing"
		if calls.Add(1) >= 3 {
			status = "completed"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "job-1", "status": status, "checksum": "abc"})
	}))
	defer srv.Close()

	job, err := New(srv.URL).Wait(context.Background(), "job-1", time.Millisecond)
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if job.Status != "completed" || calls.Load() != 3 {
		t.Fatalf("unexpected result: %#v after %d calls", job, calls.Load())
	}
}
