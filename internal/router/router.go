package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clinica/intranet-api/internal/handler/consultas"
	"github.com/clinica/intranet-api/internal/handler/health"
	promhandler "github.com/clinica/intranet-api/internal/handler/prometheus"
	"github.com/clinica/intranet-api/internal/handler/user"
	"github.com/clinica/intranet-api/internal/middleware"
)

type Config struct {
	APIToken       string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	CORSOrigins    []string
	RateLimit      bool
	RateRPS        float64
	RateBurst      int
	MetricsPath    string
}

type Router struct {
	engine    *gin.Engine
	cfg       Config
	health    *health.Handler
	consultas *consultas.Handler
	users     *user.Handler
	metrics   *promhandler.Handler
}

// NewRouter builds the engine and its global middleware. metrics may be nil.
func NewRouter(
	cfg Config,
	healthH *health.Handler,
	consultasH *consultas.Handler,
	userH *user.Handler,
	metrics *promhandler.Handler,
) *Router {
	engine := gin.New()
	middleware.UseJSONFieldNames()

	r := &Router{
		engine:    engine,
		cfg:       cfg,
		health:    healthH,
		consultas: consultasH,
		users:     userH,
		metrics:   metrics,
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)
	// metrics wraps ErrorHandler so it sees the status the error was rendered with.
	if metrics != nil {
		engine.Use(metrics.Middleware())
	}
	engine.Use(
		middleware.ErrorHandler(),
		middleware.Timeout(cfg.RequestTimeout),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.CORSOrigins),
	)
	if cfg.RateLimit {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RPS:   cfg.RateRPS,
			Burst: cfg.RateBurst,
		})
		engine.Use(limiter.RateLimit())
	}
	engine.Use(middleware.SizeLimit(cfg.MaxBodyBytes))

	return r
}

func (r *Router) Setup() {
	r.health.RegisterRoutes(&r.engine.RouterGroup)

	if r.metrics != nil {
		path := r.cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.engine.GET(path, r.metrics.Handler())
	}

	r.users.RegisterPublicRoutes(r.engine.Group("/api/users"))

	api := r.engine.Group("/api", middleware.APIToken(r.cfg.APIToken))

	consultasGroup := api.Group("/consultas")
	r.consultas.RegisterRoutes(consultasGroup)
	consultasGroup.GET("/health-db", r.health.Database)

	r.users.RegisterRoutes(api.Group("/users"))
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
