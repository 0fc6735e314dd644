package http

import (
	"net/http"

	"github.com/turtacn/docintel/internal/core"
	"github.com/turtacn/docintel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/docintel/internal/interfaces/http/handlers"
	"github.com/turtacn/docintel/internal/interfaces/http/middleware"
)

// RouterConfig bundles the core service and the cross-cutting middleware
// applied to every route.
type RouterConfig struct {
	Core             *core.CoreContext
	Logger           logging.Logger
	CORSConfig       middleware.CORSConfig
	LoggingConfig    middleware.LoggingConfig
	RateLimiter      middleware.RateLimiter
	RateLimitConfig  middleware.RateLimitConfig
}

// NewRouter builds the stdlib ServeMux that fronts every CoreContext
// operation, wrapped with CORS, request logging, and (when a RateLimiter is
// supplied) rate limiting.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	h := handlers.New(cfg.Core, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/search", h.Search)
	mux.HandleFunc("POST /v1/answer", h.Answer)
	mux.HandleFunc("POST /v1/updates/suggest", h.SuggestUpdate)
	mux.HandleFunc("POST /v1/updates/apply", h.ApplyUpdate)
	mux.HandleFunc("GET /v1/releases/compare", h.CompareReleases)
	mux.HandleFunc("GET /v1/services/dependencies", h.ServiceDependencies)
	mux.HandleFunc("POST /v1/refresh", h.Refresh)
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /metrics", h.Metrics)

	var handler http.Handler = mux

	corsCfg := cfg.CORSConfig
	if len(corsCfg.AllowedOrigins) == 0 && len(corsCfg.AllowedMethods) == 0 {
		corsCfg = middleware.DefaultCORSConfig()
	}
	handler = middleware.CORS(corsCfg)(handler)

	logCfg := cfg.LoggingConfig
	if logCfg.SlowThreshold == 0 && logCfg.MaxBodyLogSize == 0 {
		logCfg = middleware.DefaultLoggingConfig()
	}
	handler = middleware.RequestLogging(logger, logCfg)(handler)

	if cfg.RateLimiter != nil {
		handler = middleware.RateLimit(cfg.RateLimiter, cfg.RateLimitConfig)(handler)
	}

	return handler
}
