package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func serveHealth(t *testing.T, h *HealthHandler) (int, HealthResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestHealthCheck_Healthy(t *testing.T) {
	h := NewHealthHandler("codegen-backend", "1.0.0", map[string]Pinger{
		"store": pingFunc(func(context.Context) error { return nil }),
		"redis": nil,
	}, func() int { return 3 })

	code, resp := serveHealth(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "up", resp.Checks["store"])
	assert.Equal(t, "disabled", resp.Checks["redis"])
	require.NotNil(t, resp.InFlight)
	assert.Equal(t, 3, *resp.InFlight)
}

func TestHealthCheck_Degraded(t *testing.T) {
	h := NewHealthHandler("codegen-backend", "1.0.0", map[string]Pinger{
		"store": pingFunc(func(context.Context) error { return errors.New("connection refused") }),
	}, nil)

	code, resp := serveHealth(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "down", resp.Checks["store"])
	assert.Nil(t, resp.InFlight)
}
