package routes

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"tvcms/config"
	"tvcms/controllers"
	"tvcms/middleware"
	"tvcms/services"
)

// Dependencies is everything the router needs to build its controllers
type Dependencies struct {
	Config     *config.Config
	Services   *services.Services
	Databases  controllers.DatabaseChecker
	Storage    controllers.StorageChecker
	RateLimits middleware.RateLimits
	Log        *logrus.Logger
}

// NewRouter builds the gin engine with the global middleware chain and
// every route group mounted.
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	SetupRoutes(r, deps)
	return r
}

func SetupRoutes(r *gin.Engine, deps Dependencies) {
	cfg := deps.Config

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins, cfg.Debug))
	r.Use(middleware.LoggingMiddleware(deps.Log))
	r.Use(middleware.MetricsMiddleware())

	health := controllers.NewHealthController(deps.Databases, deps.Storage, controllers.AppInfo{
		Name:        cfg.AppName,
		Version:     cfg.AppVersion,
		Environment: cfg.Environment,
	}, deps.Log)
	r.GET("/health", health.Health)
	r.GET("/version", health.Version)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Local uploads are served straight from disk
	if cfg.StorageProvider == "local" && strings.HasPrefix(cfg.PublicBaseURL, "/") {
		r.Static(cfg.PublicBaseURL, cfg.UploadPath)
	}

	api := r.Group("/api")
	api.Use(middleware.Limit(deps.RateLimits.Global))

	session := middleware.AuthMiddleware(deps.Services.Auth)

	AuthRoutes(api, deps, session)

	protected := api.Group("")
	protected.Use(session)
	{
		UserRoutes(protected, deps)
		ProgramRoutes(protected, deps)
		FolderRoutes(protected, deps)
		FileRoutes(protected, deps)
		CollaborationRoutes(protected, deps)
	}
}
