package health

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Pinger is satisfied by database.Executor.
type Pinger interface {
	Ping(ctx context.Context) error
	Stats() sql.DBStats
}

type Handler struct {
	db Pinger
}

func NewHandler(db Pinger) *Handler {
	return &Handler{
		db: db,
	}
}

// PoolStats is the connection pool snapshot returned by the database probe.
type PoolStats struct {
	MaxOpen   int   `json:"maxOpen"`
	Open      int   `json:"open"`
	InUse     int   `json:"inUse"`
	Idle      int   `json:"idle"`
	WaitCount int64 `json:"waitCount"`
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/health", h.Liveness)
}

// Liveness does not touch the database.
func (h *Handler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Database runs SELECT 1 against the pool.
func (h *Handler) Database(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		log.Error().Err(err).Msg("database health check failed")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
		return
	}

	s := h.db.Stats()
	c.JSON(http.StatusOK, gin.H{
		"ok": true,
		"pool": PoolStats{
			MaxOpen:   s.MaxOpenConnections,
			Open:      s.OpenConnections,
			InUse:     s.InUse,
			Idle:      s.Idle,
			WaitCount: s.WaitCount,
		},
	})
}
