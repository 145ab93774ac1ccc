package router

import (
	docs "fingate/cmd/docs"
	"fingate/config"
	"fingate/internal/middleware"
	cErr "fingate/internal/pkg/error"
	"fingate/internal/pkg/response"
	"fingate/utils/validate"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

var ProviderSet = wire.NewSet(
	NewRouter,
	NewAdminRouter,
	NewGatewayRouter,
	NewHealthRouter,
)

// 透過依賴注入將 middleware 與各組路由掛上 engine
func NewRouter(
	config *config.Configuration,
	traceEntry *middleware.TraceEntry,
	recovery *middleware.Recovery,
	cors *middleware.Cors,
	logger *middleware.Logger,
	responseMiddleware *middleware.Response,
	adminRouter *AdminRouter,
	gatewayRouter *GatewayRouter,
	healthRouter *HealthRouter,
) (*gin.Engine, error) {
	// 自訂 binding tag 必須在第一個請求綁定前註冊
	if err := validate.RegisterValidators(); err != nil {
		return nil, err
	}

	switch {
	case config.App.IsProduction():
		gin.SetMode(gin.ReleaseMode)
	case config.App.Env == "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(traceEntry.Handler())
	router.Use(recovery.ErrorHandler())
	router.Use(logger.LoggerHandler())
	router.Use(cors.CorsHandler())
	router.Use(responseMiddleware.FormatHandler())

	router.NoRoute(func(c *gin.Context) {
		response.AbortWithError(c, cErr.NotFound("no such endpoint: "+c.Request.URL.Path))
	})

	healthRouter.RegisterHealthRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if config.App.SwaggerEnabled {
		router.GET("/swagger/*any", func(c *gin.Context) {
			docs.SwaggerInfo.Host = c.Request.Host

			if config.App.IsProduction() {
				docs.SwaggerInfo.Schemes = []string{"https"}
			}
		}, ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	gatewayRouter.RegisterRoutes(router)
	adminRouter.RegisterRoutes(router)
	if !config.App.IsProduction() {
		pprof.Register(router)
	}
	return router, nil
}
