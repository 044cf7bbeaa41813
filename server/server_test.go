package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/cogniflow/internal/profile"
	"github.com/hrygo/cogniflow/server/middleware"
	teststore "github.com/hrygo/cogniflow/store/test"
)

func TestNewServerWiring(t *testing.T) {
	ctx := context.Background()
	p := &profile.Profile{Mode: "dev", Driver: "sqlite", DSN: ":memory:", JWTSecret: "secret"}
	s, err := NewServer(ctx, p, teststore.NewTestingStore(ctx, t))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	token, err := middleware.GenerateToken("secret", 1, time.Hour, time.Now())
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/items", strings.NewReader(`{"text":"买牛奶"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/items", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewServerRejectsBadAIConfig(t *testing.T) {
	ctx := context.Background()
	p := &profile.Profile{Mode: "dev", Driver: "sqlite", DSN: ":memory:", AIEnabled: true, AIAPIKey: "key"}
	_, err := NewServer(ctx, p, teststore.NewTestingStore(ctx, t))
	assert.Error(t, err, "an enabled model without a name is rejected")
}
