package http

import (
	"net/http"
	"slices"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/flarexio/movielist"
)

type RouterOptions struct {
	Origins  []string
	Gatherer prometheus.Gatherer
	Health   func() map[string]string
}

func CORS(origins []string) gin.HandlerFunc {
	all := len(origins) == 0 || slices.Contains(origins, "*")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if all {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" && slices.Contains(origins, origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "*")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

func HealthHandler(health func() map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := gin.H{"status": "UP"}
		if health != nil {
			resp["components"] = health()
		}

		c.JSON(http.StatusOK, resp)
	}
}

func NewRouter(endpoints movielist.EndpointSet, log *zap.Logger, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(
		ginzap.Ginzap(log, time.RFC3339, true),
		ginzap.RecoveryWithZap(log, true),
		CORS(opts.Origins),
	)

	// ANY /tmdb/3/*
	r.Any("/tmdb/3/*path", ProxyHandler(endpoints.Proxy, "/tmdb"))

	tmdbV4 := r.Group("/tmdb/4")
	{
		// ANY /auth/*
		tmdbV4.Any("/auth/*path", ProxyHandler(endpoints.Proxy, "/tmdb"))

		// GET /account/:account_id/lists, ANY /account/*
		tmdbV4.Any("/account/*path", AccountHandler(endpoints.Lists, endpoints.Proxy))

		// GET /list/:list_id
		tmdbV4.GET("/list/:list_id", ListHandler(endpoints.List))

		// POST /list
		tmdbV4.POST("/list", CreateListHandler(endpoints.CreateList))

		// PUT /list/:list_id
		tmdbV4.PUT("/list/:list_id", UpdateListHandler(endpoints.UpdateList))

		// DELETE /:list_id
		tmdbV4.DELETE("/:list_id", DeleteListHandler(endpoints.DeleteList))

		// POST /list/:list_id/items
		tmdbV4.POST("/list/:list_id/items", AddItemsHandler(endpoints.AddItems))

		// DELETE /list/:list_id/items
		tmdbV4.DELETE("/list/:list_id/items", RemoveItemsHandler(endpoints.RemoveItems))
	}

	// GET /image.tmdb/*
	r.GET("/image.tmdb/*path", ImageHandler(endpoints.Image))

	// GET /swagger/*, /docs/openapi.yaml
	r.GET("/swagger/*any", SwaggerHandler())
	r.GET("/docs/openapi.yaml", OpenAPIHandler)

	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	r.GET("/health", HealthHandler(opts.Health))

	return r
}
