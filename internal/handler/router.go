package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-idcard/internal/middleware"
	"github.com/noah-isme/sma-idcard/internal/service"
	"github.com/noah-isme/sma-idcard/pkg/config"
	"github.com/noah-isme/sma-idcard/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-idcard/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-idcard/pkg/middleware/requestid"
)

// Handlers groups the route handlers mounted by NewRouter.
type Handlers struct {
	Students  *StudentHandler
	Photos    *PhotoHandler
	Templates *TemplateHandler
	Cards     *CardHandler
	Exports   *ExportHandler
	Metrics   *MetricsHandler
}

// NewRouter builds the gin engine with the middleware chain and every route.
func NewRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, h Handlers) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	students := api.Group("/students")
	students.POST("", h.Students.Submit)
	students.GET("/history", h.Students.History)
	students.GET("/history.csv", h.Students.HistoryCSV)
	students.GET("/current", h.Students.Current)

	api.POST("/photos", h.Photos.Upload)

	templates := api.Group("/templates")
	templates.GET("", h.Templates.List)
	templates.GET("/current", h.Templates.Current)
	templates.PUT("/current", h.Templates.Select)

	cards := api.Group("/cards")
	cards.GET("", h.Cards.List)
	cards.GET("/:viewId", h.Cards.Get)
	cards.GET("/:viewId/download", h.Cards.Download)
	cards.POST("/:viewId/exports", h.Cards.CreateExport)

	exports := api.Group("/exports")
	exports.GET("/jobs/:id", h.Exports.JobStatus)
	exports.GET("/:token", h.Exports.Download)

	return r
}
