// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"strings"
	"time"

	"github.com/amirphl/widget-sidebar/app/dto"
	"github.com/amirphl/widget-sidebar/app/handlers"
	"github.com/amirphl/widget-sidebar/app/middleware"
	"github.com/amirphl/widget-sidebar/config"
	"github.com/amirphl/widget-sidebar/docs"
	"github.com/amirphl/widget-sidebar/logger"
	"github.com/amirphl/widget-sidebar/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cache"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/swag"
)

const serviceName = "widget-sidebar"

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Containers   handlers.ContainerHandlerInterface
	Content      handlers.ContentHandlerInterface
	Tags         handlers.TagHandlerInterface
	CategoryTags handlers.CategoryTagHandlerInterface
	Filter       handlers.FilterHandlerInterface
	Export       handlers.ExportHandlerInterface
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app      *fiber.App
	cfg      *config.Config
	log      *logger.Logger
	handlers Handlers
	auth     *middleware.AuthMiddleware
}

// NewFiberRouter creates a new Fiber router. auth may be nil, in which case
// the API is served without authentication.
func NewFiberRouter(cfg *config.Config, log *logger.Logger, h Handlers, auth *middleware.AuthMiddleware) Router {
	r := &FiberRouter{
		cfg:      cfg,
		log:      log.With("component", "router"),
		handlers: h,
		auth:     auth,
	}

	r.app = fiber.New(fiber.Config{
		AppName:      "Widget Sidebar API",
		ServerHeader: serviceName,
		ErrorHandler: r.errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ProxyHeader:  cfg.Server.ProxyHeader,
		TrustProxy:   len(cfg.Server.TrustedProxies) > 0,
		TrustProxyConfig: fiber.TrustProxyConfig{
			Proxies: cfg.Server.TrustedProxies,
		},
	})
	return r
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.setupMiddleware()

	if r.cfg.Metrics.Enabled {
		r.app.Get(r.cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group("/api/v1")
	api.Get("/health", r.healthCheck)

	if r.cfg.Server.EnableDocs {
		api.Get("/swagger.json", r.serveSwaggerJSON)
	}

	api.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.GlobalRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	if r.auth != nil {
		api.Use(func(c fiber.Ctx) error {
			if c.Path() == "/api/v1/health" || c.Path() == "/api/v1/swagger.json" {
				return c.Next()
			}
			return r.auth.Authenticate()(c)
		})
	}

	containers := api.Group("/containers")
	containers.Post("/", r.handlers.Containers.Create)
	containers.Get("/", r.handlers.Containers.List)
	containers.Post("/import", r.handlers.Export.Import)
	containers.Get("/:id", r.handlers.Containers.Get)
	containers.Put("/:id", r.handlers.Containers.Update)
	containers.Delete("/:id", r.handlers.Containers.Delete)
	containers.Post("/:id/duplicate", r.handlers.Containers.Duplicate)
	containers.Get("/:id/summary", r.handlers.Containers.Summary)
	containers.Get("/:id/content", r.handlers.Containers.Content)
	containers.Get("/:id/grouped", r.handlers.Containers.Grouped)
	containers.Get("/:id/tags", r.handlers.Tags.ContainerTags)
	containers.Get("/:id/order-check", r.handlers.Containers.OrderCheck)
	containers.Post("/:id/normalize", r.handlers.Containers.Normalize)
	containers.Post("/:id/relations", r.handlers.Containers.AddRelation)
	containers.Post("/:id/components", r.handlers.Containers.AddComponent)
	containers.Get("/:id/export", r.handlers.Export.Export)
	containers.Get("/:id/export/summary", r.handlers.Export.Summary)

	relations := api.Group("/relations")
	relations.Post("/:id/move", r.handlers.Content.MoveRelation)
	relations.Put("/:id", r.handlers.Content.UpdateRelation)
	relations.Delete("/:id", r.handlers.Content.DeleteRelation)
	relations.Get("/:id/metadata", r.handlers.Content.RelationMetadata)
	relations.Get("/:id/tags", r.handlers.Tags.RelationTags)
	relations.Put("/:id/tags", r.handlers.Tags.AssignRelationTags)
	relations.Post("/:id/tags/:tagId", r.handlers.Tags.AddRelationTag)
	relations.Delete("/:id/tags/:tagId", r.handlers.Tags.RemoveRelationTag)

	components := api.Group("/components")
	components.Post("/:id/move", r.handlers.Content.MoveComponent)
	components.Put("/:id", r.handlers.Content.UpdateComponent)
	components.Delete("/:id", r.handlers.Content.DeleteComponent)
	components.Get("/:id/tags", r.handlers.Tags.ComponentTags)
	components.Put("/:id/tags", r.handlers.Tags.AssignComponentTags)
	components.Post("/:id/tags/:tagId", r.handlers.Tags.AddComponentTag)
	components.Delete("/:id/tags/:tagId", r.handlers.Tags.RemoveComponentTag)

	tags := api.Group("/tags/:kind")
	tags.Post("/", r.handlers.Tags.Create)
	tags.Get("/", r.handlers.Tags.List)
	tags.Post("/batch", r.handlers.Tags.CreateBatch)
	tags.Delete("/batch", r.handlers.Tags.DeleteBatch)
	tags.Get("/popular", r.handlers.Tags.Popular)
	tags.Get("/:id", r.handlers.Tags.Get)
	tags.Put("/:id", r.handlers.Tags.Update)
	tags.Delete("/:id", r.handlers.Tags.Delete)

	categoryTags := api.Group("/category-tags")
	categoryTags.Get("/", r.handlers.CategoryTags.List)
	categoryTags.Post("/", r.handlers.CategoryTags.Create)
	categoryTags.Delete("/unused", r.handlers.CategoryTags.DeleteUnused)

	filter := api.Group("/filter")
	filter.Get("/active", r.handlers.Filter.GetActive)
	filter.Put("/active", r.handlers.Filter.SetActive)
	filter.Delete("/active", r.handlers.Filter.Clear)
	filter.Get("/stats", r.handlers.Filter.Stats)

	r.app.Use(r.notFoundHandler)

	r.log.Info("routes configured", "metrics", r.cfg.Metrics.Enabled, "auth", r.auth != nil)
}

func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return uuid.NewString()
		},
	}))

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.log.Error("panic while serving request",
				"request_id", requestid.FromContext(c),
				"error", e,
				"path", c.Path(),
				"method", c.Method(),
				"ip", c.IP(),
			)
		},
	}))

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginResourcePolicy: "cross-origin",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     r.cfg.Security.AllowedOrigins,
		AllowMethods:     r.cfg.Security.AllowedMethods,
		AllowHeaders:     r.cfg.Security.AllowedHeaders,
		ExposeHeaders:    []string{"X-Request-ID", fiber.HeaderContentDisposition},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           r.cfg.Security.CORSMaxAge,
	}))

	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
			Next: func(c fiber.Ctx) bool {
				// xlsx is already zipped
				return strings.HasSuffix(c.Path(), "/export") && c.Query("format") == "xlsx"
			},
		}))
	}

	r.app.Use(cache.New(cache.Config{
		Next: func(c fiber.Ctx) bool {
			return c.Method() != fiber.MethodGet || c.Path() != "/api/v1/swagger.json"
		},
		Expiration: 30 * time.Minute,
	}))

	if r.cfg.Metrics.Enabled {
		r.app.Use(middleware.Metrics())
	}

	r.app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     `{"time":"${time}","request_id":"${respHeader:X-Request-ID}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health" || c.Path() == r.cfg.Metrics.Path
		},
	}))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	r.log.Info("starting server", "address", address)
	return r.app.Listen(address, fiber.ListenConfig{DisableStartupMessage: true})
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// healthCheck Health
// @Summary Service health
// @Tags Health
// @Produce json
// @Success 200 {object} dto.APIResponse "Service is healthy"
// @Router /api/v1/health [get]
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"version":   docs.SwaggerInfo.Version,
			"service":   serviceName,
		},
	})
}

func (r *FiberRouter) serveSwaggerJSON(c fiber.Ctx) error {
	doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	if err != nil {
		r.log.Error("failed to render swagger document", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
			Success: false,
			Message: "Failed to load Swagger documentation",
			Error: dto.ErrorDetail{
				Code: "SWAGGER_LOAD_ERROR",
			},
		})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.SendString(doc)
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

func (r *FiberRouter) errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "An internal server error occurred"
	errCode := "INTERNAL_ERROR"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		if code < fiber.StatusInternalServerError {
			message = e.Message
			errCode = "REQUEST_ERROR"
		}
	}

	r.log.Error("request failed", "status", code, "path", c.Path(), "error", err)

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: errCode,
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}
