package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magasin/internal/core/apperror"
	appctx "magasin/internal/core/context"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(handler gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(Trace(), ErrorHandler(), Recovery())
	r.GET("/", handler)
	return r
}

func serve(r *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func body(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	return m
}

func TestErrorHandler_RendersAppError(t *testing.T) {
	r := newEngine(func(c *gin.Context) {
		_ = c.Error(apperror.NewConflict("already received").WithDetail("order_id", 3))
	})

	w := serve(r, nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	b := body(t, w)
	assert.Equal(t, "CONFLICT", b["code"])
	assert.Equal(t, "already received", b["message"])
	assert.Equal(t, map[string]any{"order_id": float64(3)}, b["details"])
}

func TestErrorHandler_HidesInternalCause(t *testing.T) {
	r := newEngine(func(c *gin.Context) {
		_ = c.Error(errors.New("password=hunter2"))
	})

	w := serve(r, map[string]string{HeaderRequestID: "req-9"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "hunter2")
	b := body(t, w)
	assert.Equal(t, "INTERNAL_ERROR", b["code"])
	assert.Equal(t, map[string]any{"request_id": "req-9"}, b["details"])
}

func TestRecovery(t *testing.T) {
	r := newEngine(func(c *gin.Context) {
		panic("boom")
	})

	w := serve(r, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestTrace(t *testing.T) {
	var seen string
	r := newEngine(func(c *gin.Context) {
		seen = appctx.GetRequestID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	w := serve(r, map[string]string{HeaderRequestID: "abc"})
	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", w.Header().Get(HeaderRequestID))
	assert.NotEmpty(t, w.Header().Get(HeaderTraceID))

	w = serve(r, nil)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}

type staticValidator struct{}

func (staticValidator) ValidateToken(token string) (*appctx.UserContext, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &appctx.UserContext{UserID: 5}, nil
}

func TestOptionalAuth(t *testing.T) {
	var uid int64
	r := gin.New()
	r.Use(ErrorHandler(), OptionalAuth(staticValidator{}))
	r.GET("/", func(c *gin.Context) {
		uid = appctx.GetUserID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := serve(r, map[string]string{"Authorization": "Bearer good"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(5), uid)

	uid = -1
	w = serve(r, map[string]string{"Authorization": "Bearer bad"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(0), uid)
}
