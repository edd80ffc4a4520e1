package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockbook/internal/metrics"
	"github.com/mamadbah2/stockbook/internal/server/handlers"
	"github.com/mamadbah2/stockbook/internal/server/middleware"
)

// New wires the Gin engine with required routes and middlewares.
func New(handler *handlers.InventoryHandler, m *metrics.Metrics, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(zapLoggerMiddleware(logger))
	if m != nil {
		r.Use(m.Middleware())
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/items", handler.ListItems)
		api.POST("/items", handler.AddItem)
		api.GET("/items/:name", handler.GetItem)
		api.PATCH("/items/:name", handler.UpdateItem)
		api.POST("/items/:name/sell", handler.SellItem)
		api.GET("/items/:name/history", handler.ItemHistory)
		api.GET("/sheets/:name", handler.DumpSheet)
		api.GET("/stats", handler.Stats)
		api.GET("/low-stock", handler.LowStock)
		api.POST("/reports/daily", handler.RunDailyReport)
	}

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		middleware.Logger(c, logger).Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
