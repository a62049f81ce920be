package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateCommandSendsFlags(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"id":"job-1","status":"processing","seed":7,"checksum":"pending"}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"generate", "--server", srv.URL, "--seed", "7", "--resolution", "256"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if body["seed"] != float64(7) || body["resolution"] != float64(256) {
		t.Fatalf("unexpected request body: %v", body)
	}
	if _, ok := body["style"]; ok {
		t.Fatalf("style should be omitted: %v", body)
	}
	if !strings.Contains(out.String(), `"id": "job-1"`) {
		t.Fatalf("unexpected output: %s", out.String())
	}
}

func TestResultCommandNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"JOB_NOT_FOUND","message":"missing"}`))
	}))
	defer srv.Close()

	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"result", "--server", srv.URL, "missing"})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error for unknown job")
	}
}

func TestGenerateCommandSendsLatentFile(t *testing.T) {
	latent := make([]float64, 100)
	for i := range latent {
		latent[i] = float64(i) / 100
	}
	data, _ := json.Marshal(latent)
	path := filepath.Join(t.TempDir(), "latent.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write latent file: %v", err)
	}
	t.Cleanup(func() { _ = generateCmd.Flags().Set("latent-file", "") })

	var body struct {
		LatentVector []float64 `json:"latent_vector"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"id":"job-2","status":"processing","checksum":"pending"}`))
	}))
	defer srv.Close()

	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"generate", "--server", srv.URL, "--latent-file", path})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if len(body.LatentVector) != 100 || body.LatentVector[99] != 0.99 {
		t.Fatalf("unexpected latent vector: %v", body.LatentVector)
	}
}

func TestReadLatentFileRejectsNonArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latent.json")
	if err := os.WriteFile(path, []byte(`{"latent": [1, 2]}`), 0o644); err != nil {
		t.Fatalf("failed to write latent file: %v", err)
	}
	if _, err := readLatentFile(path); err == nil {
		t.Fatal("expected error for non-array latent file")
	}
	if _, err := readLatentFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing latent file")
	}
}
