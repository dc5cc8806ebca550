package health

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func (f fakePinger) Stats() sql.DBStats {
	return sql.DBStats{MaxOpenConnections: 10, OpenConnections: 2, InUse: 1, Idle: 1}
}

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r.Group(""))
	r.GET("/health-db", h.Database)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestLiveness(t *testing.T) {
	w := serve(NewHandler(fakePinger{err: errors.New("down")}), "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}

func TestDatabase(t *testing.T) {
	w := serve(NewHandler(fakePinger{}), "/health-db")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"pool":{"maxOpen":10,"open":2,"inUse":1,"idle":1,"waitCount":0}}`, w.Body.String())

	w = serve(NewHandler(fakePinger{err: errors.New("login failed")}), "/health-db")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"ok":false}`, w.Body.String())
}
