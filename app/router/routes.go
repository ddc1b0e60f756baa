// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/anshu-9837/Banning/app/dto"
	"github.com/anshu-9837/Banning/app/handlers"
	"github.com/anshu-9837/Banning/app/middleware"
	"github.com/anshu-9837/Banning/config"
	"github.com/anshu-9837/Banning/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	Shutdown(ctx context.Context) error
	GetApp() *fiber.App
}

// Handlers bundles every HTTP handler the router mounts
type Handlers struct {
	Auth      handlers.AuthHandlerInterface
	Reports   *handlers.ReportHandler
	Batches   *handlers.BatchHandler
	Operators *handlers.OperatorHandler
	Health    *handlers.HealthHandler
}

// Config holds the HTTP settings the router applies
type Config struct {
	AppName          string
	BodyLimit        int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ProxyHeader      string
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	CORSMaxAge       int
	AuthRateLimit    int
	GlobalRateLimit  int
	RateLimitWindow  time.Duration
	MetricsEnabled   bool
	MetricsPath      string
	AccessLog        bool
}

// ConfigFromProduction derives router settings from the application config
func ConfigFromProduction(cfg *config.ProductionConfig) Config {
	return Config{
		AppName:          "Banning Report API",
		BodyLimit:        cfg.Server.BodyLimit,
		ReadTimeout:      cfg.Server.ReadTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		IdleTimeout:      cfg.Server.IdleTimeout,
		ProxyHeader:      cfg.Server.ProxyHeader,
		AllowedOrigins:   cfg.Security.AllowedOrigins,
		AllowedMethods:   cfg.Security.AllowedMethods,
		AllowedHeaders:   cfg.Security.AllowedHeaders,
		AllowCredentials: cfg.Security.AllowCredentials,
		CORSMaxAge:       cfg.Security.CORSMaxAge,
		AuthRateLimit:    cfg.Security.AuthRateLimit,
		GlobalRateLimit:  cfg.Security.GlobalRateLimit,
		RateLimitWindow:  cfg.Security.RateLimitWindow,
		MetricsEnabled:   cfg.Metrics.Enabled,
		MetricsPath:      cfg.Metrics.Path,
		AccessLog:        true,
	}
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app      *fiber.App
	cfg      Config
	handlers Handlers
	auth     *middleware.AuthMiddleware
	logger   *zap.Logger
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(cfg Config, h Handlers, auth *middleware.AuthMiddleware, log *zap.Logger) Router {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = 1024 * 1024
	}

	r := &FiberRouter{
		cfg:      cfg,
		handlers: h,
		auth:     auth,
		logger:   log,
	}
	r.app = fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: "Banning",
		ErrorHandler: r.errorHandler,
		BodyLimit:    cfg.BodyLimit,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		ProxyHeader:  cfg.ProxyHeader,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return r
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.setupMiddleware()

	if r.cfg.MetricsEnabled {
		path := r.cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group("/api/v1")
	api.Get("/health", r.handlers.Health.Health)

	if r.cfg.GlobalRateLimit > 0 {
		api.Use(r.rateLimiter(r.cfg.GlobalRateLimit, func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		}))
	}

	auth := api.Group("/auth")
	if r.cfg.AuthRateLimit > 0 {
		auth.Use(r.rateLimiter(r.cfg.AuthRateLimit, nil))
	}
	authed := r.auth.Authenticate()

	auth.Post("/request-code", r.handlers.Auth.RequestCode)
	auth.Post("/verify", r.handlers.Auth.Verify)
	auth.Post("/logout", authed, r.handlers.Auth.Logout)

	api.Get("/me", authed, r.handlers.Auth.Me)
	api.Put("/me/language", authed, r.handlers.Auth.SetLanguage)

	api.Post("/reports", authed, r.handlers.Reports.Submit)
	api.Get("/reports", authed, r.handlers.Reports.History)
	api.Get("/reports/export", authed, r.handlers.Reports.Export)
	api.Get("/stats", authed, r.handlers.Reports.Stats)

	api.Post("/batches", authed, r.handlers.Batches.Start)
	api.Get("/batches/:batch_id", authed, r.handlers.Batches.Get)
	api.Get("/batches/:batch_id/progress", authed, r.handlers.Batches.Progress)
	api.Post("/batches/:batch_id/cancel", authed, r.handlers.Batches.Cancel)

	api.Put("/operators/:phone", authed, r.handlers.Operators.Update)

	r.app.Use(r.notFoundHandler)

	r.logger.Info("Routes configured")
}

func (r *FiberRouter) setupMiddleware() {
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.logger.Error("Panic while serving request",
				zap.Any("panic", e),
				zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.String("ip", c.IP()))
		},
	}))

	r.app.Use(requestid.New(requestid.Config{
		Header:    fiber.HeaderXRequestID,
		Generator: uuid.NewString,
	}))

	metricsPath := r.cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	r.app.Use(middleware.Metrics(func(c fiber.Ctx) bool {
		return r.cfg.MetricsEnabled && c.Path() == metricsPath
	}))

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000,
		ContentSecurityPolicy:     "default-src 'none'; frame-ancestors 'none';",
		ReferrerPolicy:            "no-referrer",
		CrossOriginResourcePolicy: "same-origin",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	origins := r.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: r.cfg.AllowedMethods,
		AllowHeaders: r.cfg.AllowedHeaders,
		ExposeHeaders: []string{
			fiber.HeaderXRequestID,
			fiber.HeaderContentDisposition,
		},
		// wildcard origins cannot be combined with credentials
		AllowCredentials: r.cfg.AllowCredentials && !slices.Contains(origins, "*"),
		MaxAge:           r.cfg.CORSMaxAge,
	}))

	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	if r.cfg.AccessLog {
		r.app.Use(logger.New(logger.Config{
			Format:     `{"time":"${time}","request_id":"${respHeader:X-Request-ID}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
			TimeFormat: time.RFC3339,
			TimeZone:   "UTC",
			Next: func(c fiber.Ctx) bool {
				return c.Path() == "/api/v1/health" || strings.HasPrefix(c.Path(), r.cfg.MetricsPath)
			},
		}))
	}
}

func (r *FiberRouter) rateLimiter(max int, next func(fiber.Ctx) bool) fiber.Handler {
	window := r.cfg.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			middleware.SetErrorCode(c, "RATE_LIMIT_EXCEEDED")
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error:   dto.ErrorDetail{Code: "RATE_LIMIT_EXCEEDED"},
			})
		},
		Next: next,
	})
}

func (r *FiberRouter) Start(address string) error {
	r.logger.Info("Starting HTTP server", zap.String("address", address))
	return r.app.Listen(address, fiber.ListenConfig{DisableStartupMessage: true})
}

func (r *FiberRouter) Shutdown(ctx context.Context) error {
	return r.app.ShutdownWithContext(ctx)
}

func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	middleware.SetErrorCode(c, "NOT_FOUND")
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": c.GetRespHeader(fiber.HeaderXRequestID),
			},
		},
	})
}

func (r *FiberRouter) errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "An internal server error occurred"
	errorCode := "INTERNAL_ERROR"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		if code < fiber.StatusInternalServerError {
			message = fe.Message
			errorCode = "REQUEST_ERROR"
		}
	}

	if code >= fiber.StatusInternalServerError {
		r.logger.Error("Unhandled request error", zap.Int("status", code), zap.String("path", c.Path()), zap.Error(err))
	}

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: errorCode,
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": c.GetRespHeader(fiber.HeaderXRequestID),
			},
		},
	})
}
