package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoRouter(limit int64) *gin.Engine {
	r := gin.New()
	r.Use(MaxBodySize(limit))
	r.POST("/echo", func(c *gin.Context) {
		b, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too large")
			return
		}
		c.String(http.StatusOK, string(b))
	})
	r.GET("/echo", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func TestMaxBodySize_Allowed(t *testing.T) {
	w := httptest.NewRecorder()
	echoRouter(1024).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"pin":"1234"}`)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"pin":"1234"}`, w.Body.String())
}

func TestMaxBodySize_DeclaredLengthRejectedUpFront(t *testing.T) {
	w := httptest.NewRecorder()
	echoRouter(16).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("A", 100))))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "REQ_002")
}

func TestMaxBodySize_StreamedBodyCapped(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/echo", io.NopCloser(bytes.NewReader(bytes.Repeat([]byte("A"), 100))))
	req.ContentLength = -1

	w := httptest.NewRecorder()
	echoRouter(16).ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "too large", w.Body.String())
}

func TestMaxBodySize_NilBody(t *testing.T) {
	w := httptest.NewRecorder()
	echoRouter(1024).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/echo", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMaxBodySize_ExactLimit(t *testing.T) {
	w := httptest.NewRecorder()
	echoRouter(5).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("12345")))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "12345", w.Body.String())
}
