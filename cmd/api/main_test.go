package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/latent-forge/internal/config"
	"github.com/yourusername/latent-forge/internal/logging"
)

func TestCORSConfig(t *testing.T) {
	all := corsConfig(&config.Config{CORSAllowedOrigins: "*"})
	if !all.AllowAllOrigins || len(all.AllowOrigins) != 0 {
		t.Fatalf("expected allow-all config, got %#v", all)
	}

	listed := corsConfig(&config.Config{CORSAllowedOrigins: "http://a.test, http://b.test"})
	if listed.AllowAllOrigins {
		t.Fatal("expected explicit origin list")
	}
	if len(listed.AllowOrigins) != 2 || listed.AllowOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected origins: %v", listed.AllowOrigins)
	}
	if listed.ExposeHeaders[0] != logging.RequestIDHeader {
		t.Fatalf("request id header should be exposed: %v", listed.ExposeHeaders)
	}
}

func TestSetupRoutesHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	setupRoutes(router, &config.Config{Backend: config.BackendMemory}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
