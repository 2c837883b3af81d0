package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-api/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type RouterConfig struct {
	Mode           string
	RateLimit      rate.Limit
	RateBurst      int
	RequestTimeout time.Duration
	MaxBodySize    int64
	Compress       bool
	CORSConfig     middleware.CORSConfig
}

type Router struct {
	engine    *gin.Engine
	auth      *middleware.AuthMiddleware
	public    []Handler
	protected []Handler
	ops       []Handler
}

// NewRouter builds the engine. Public handlers are mounted under /api/v1
// without authentication, protected ones behind it, and ops handlers
// (health, metrics) at the root.
func NewRouter(
	auth *middleware.AuthMiddleware,
	httpMetrics *middleware.HTTPMetrics,
	config RouterConfig,
	public []Handler,
	protected []Handler,
	ops []Handler,
) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = middleware.DefaultMaxBodySize
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	engine.Use(
		middleware.RequestID(),
		middleware.Tracing(),
		middleware.Recovery(),
		middleware.Logger(),
		httpMetrics.Middleware(),
		middleware.SecureHeaders(),
		middleware.CORS(config.CORSConfig),
		middleware.ErrorHandler(),
	)

	if config.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(limiter.RateLimit())
	}

	r := &Router{
		engine:    engine,
		auth:      auth,
		public:    public,
		protected: protected,
		ops:       ops,
	}
	r.setup(config)
	return r
}

func (r *Router) setup(config RouterConfig) {
	root := r.engine.Group("")
	for _, h := range r.ops {
		h.RegisterRoutes(root)
	}

	api := r.engine.Group("/api/v1")
	api.Use(
		middleware.Timeout(config.RequestTimeout),
		middleware.BodyLimit(config.MaxBodySize),
	)
	if config.Compress {
		api.Use(middleware.Compress(middleware.DefaultCompressConfig()))
	}
	for _, h := range r.public {
		h.RegisterRoutes(api)
	}

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	for _, h := range r.protected {
		h.RegisterRoutes(protected)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
