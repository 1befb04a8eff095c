package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func preflight(r *gin.Engine, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCORSAllowsLocalDevOrigins(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS())
	r.POST("/api/chat", func(c *gin.Context) { c.Status(http.StatusCreated) })

	for _, origin := range []string{"http://localhost:5173", "http://127.0.0.1:3000"} {
		rec := preflight(r, origin)
		assert.Equal(t, http.StatusNoContent, rec.Code, origin)
		assert.Equal(t, origin, rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestCORSUsesConfiguredOrigins(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS("https://cookgpt.example"))
	r.POST("/api/chat", func(c *gin.Context) { c.Status(http.StatusCreated) })

	assert.Equal(t, "https://cookgpt.example", preflight(r, "https://cookgpt.example").Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, preflight(r, "http://localhost:5173").Header().Get("Access-Control-Allow-Origin"))
}
