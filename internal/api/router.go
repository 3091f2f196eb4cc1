package api

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/sweetshop/sweet-shop/docs"
	"github.com/sweetshop/sweet-shop/internal/api/handler"
	"github.com/sweetshop/sweet-shop/internal/api/middleware"
	"github.com/sweetshop/sweet-shop/internal/core/domain"
	"github.com/sweetshop/sweet-shop/internal/core/ports"
)

const bodyLimit = "1M"

// RouterConfig holds everything the HTTP layer depends on.
type RouterConfig struct {
	Auth   ports.AuthService
	Tokens ports.TokenService
	Sweets ports.SweetService

	// RateCounter backs the auth rate limit; nil disables it.
	RateCounter    middleware.RateCounter
	AuthRateLimit  int
	AuthRateWindow time.Duration

	CORSOrigins []string

	// TrustedProxies are CIDRs allowed to set X-Forwarded-For. Without any,
	// the client address is the socket peer.
	TrustedProxies []string

	// Readiness lists the dependencies checked by /health/ready.
	Readiness map[string]handler.Pinger

	// Registry receives the HTTP metrics and serves /metrics. The default
	// Prometheus registry is used when nil.
	Registry *prometheus.Registry

	Log zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(cfg.Log)
	e.IPExtractor = ipExtractor(cfg.TrustedProxies)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(cfg.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Idempotency-Key"},
	}))
	e.Use(echomiddleware.BodyLimit(bodyLimit))
	e.Use(metricsMiddleware(cfg.Registry))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(cfg.Auth, cfg.Tokens)
	sweetHandler := handler.NewSweetHandler(cfg.Sweets)
	requireAuth := middleware.Auth(cfg.Tokens, cfg.Auth)
	adminOnly := middleware.RequireRole(domain.RoleAdmin)

	authLimit := middleware.RateLimit(cfg.RateCounter, cfg.AuthRateLimit, cfg.AuthRateWindow, middleware.KeyByIPAndPath(), cfg.Log)

	// --- Auth routes ---
	auth := e.Group("/api/auth")
	auth.POST("/register", authHandler.Register, authLimit)
	auth.POST("/login", authHandler.Login, authLimit)
	auth.GET("/me", authHandler.Me, requireAuth)

	// --- Inventory routes (bearer token required) ---
	sweets := e.Group("/api/sweets", requireAuth)
	sweets.GET("", sweetHandler.List)
	sweets.POST("", sweetHandler.Create)
	sweets.GET("/search", sweetHandler.Search)
	sweets.GET("/:id", sweetHandler.Get)
	sweets.PUT("/:id", sweetHandler.Update)
	sweets.DELETE("/:id", sweetHandler.Delete, adminOnly)
	sweets.POST("/:id/purchase", sweetHandler.Purchase)
	sweets.POST("/:id/restock", sweetHandler.Restock, adminOnly)
	sweets.GET("/:id/movements", sweetHandler.Movements, adminOnly)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(cfg.Readiness)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	// --- Operations ---
	e.GET("/metrics", metricsHandler(cfg.Registry))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// ipExtractor resolves the client address used by the rate limiter and the
// access log. Forwarding headers count only when the peer is a trusted proxy.
func ipExtractor(proxies []string) echo.IPExtractor {
	if len(proxies) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, cidr := range proxies {
		if _, ipNet, err := net.ParseCIDR(cidr); err == nil {
			opts = append(opts, echo.TrustIPRange(ipNet))
		}
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

func metricsMiddleware(reg *prometheus.Registry) echo.MiddlewareFunc {
	mwCfg := echoprometheus.MiddlewareConfig{
		Namespace: "sweetshop",
		Subsystem: "http",
		Skipper: func(c echo.Context) bool {
			p := c.Path()
			return p == "/metrics" || strings.HasPrefix(p, "/health") || strings.HasPrefix(p, "/swagger")
		},
	}
	if reg != nil {
		mwCfg.Registerer = reg
	}
	return echoprometheus.NewMiddlewareWithConfig(mwCfg)
}

func metricsHandler(reg *prometheus.Registry) echo.HandlerFunc {
	if reg == nil {
		return echoprometheus.NewHandler()
	}
	return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: reg})
}

// requestLogger writes one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= http.StatusInternalServerError {
				ev = log.Error()
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
