package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/kamacharovs/aiof-asset/internal/config"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.RequestID())
	e.Use(otelecho.Middleware(config.ApiName, otelecho.WithSkipper(skipper)))
	e.Use(NewEchoLogger(s.logger))
	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"https://*", "http://*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			config.HEADER_KEY_X_USER_ID,
			config.HEADER_KEY_X_CLIENT_ID,
			config.HEADER_KEY_X_PUBLIC_KEY,
		},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.GET("/health", s.healthHandler)

	var assetGroup = e.Group("/v1/assets", s.TenantMiddleware)
	assetGroup.GET("/types", s.ListAssetTypes)
	assetGroup.GET("", s.ListAssets)
	assetGroup.POST("", s.AddAsset)
	assetGroup.POST("/many", s.AddAssets)
	assetGroup.GET("/:id", s.GetAsset)
	assetGroup.PUT("/:id", s.UpdateAsset)
	assetGroup.DELETE("/:id", s.DeleteAsset)
	assetGroup.POST("/:id/snapshots", s.AddSnapshot)

	var stockGroup = assetGroup.Group("/stock")
	stockGroup.GET("", s.ListStocks)
	stockGroup.POST("", s.AddStock)
	stockGroup.GET("/:id", s.GetStock)
	stockGroup.PUT("/:id", s.UpdateStock)

	var homeGroup = assetGroup.Group("/home")
	homeGroup.GET("", s.ListHomes)
	homeGroup.POST("", s.AddHome)
	homeGroup.GET("/:id", s.GetHome)
	homeGroup.PUT("/:id", s.UpdateHome)

	return e
}

func (s *Server) healthHandler(c echo.Context) error {
	health := s.server.Health()
	if health["status"] != "up" {
		return c.JSON(http.StatusServiceUnavailable, health)
	}
	return c.JSON(http.StatusOK, health)
}
