package middleware

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/GoSim-25-26J-441/codegen-backend/internal/auth"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/logger"
)

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, logger.RequestID(c.Request.Context()))
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	generated := w.Header().Get(HeaderRequestID)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())
}

func TestRequestIDMiddleware_LogsCaller(t *testing.T) {
	var buf bytes.Buffer
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	})

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/user", func(c *gin.Context) {
		c.Set(auth.CtxFirebaseUID, "u-42")
		c.Status(http.StatusNoContent)
	})
	r.GET("/service", func(c *gin.Context) {
		c.Set(auth.CtxAPIKeyCaller, true)
		c.Status(http.StatusNoContent)
	})
	r.GET("/open", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for path, want := range map[string]string{
		"/user":    "caller=uid:u-42",
		"/service": "caller=api-key",
		"/open":    "caller=anonymous",
	} {
		buf.Reset()
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
		assert.Contains(t, buf.String(), "path="+path+" status=204")
		assert.Contains(t, buf.String(), want)
	}
}
