package router

import (
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habitgrid/internal/handler"
	"go.uber.org/zap"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger), loopbackOnly())

	r.GET("/ping", api.HealthCheck)

	routes := r.Group("/api")
	{
		routes.GET("/ping", api.HealthCheck)

		routes.GET("/habits", api.ListHabits)
		routes.POST("/habits", api.CreateHabit)
		routes.PUT("/habits/order", api.ReorderHabits)
		routes.GET("/habits/:id", api.GetHabit)
		routes.PUT("/habits/:id", api.UpdateHabit)
		routes.DELETE("/habits/:id", api.DeleteHabit)
		routes.POST("/habits/:id/archive", api.ArchiveHabit)
		routes.POST("/habits/:id/restore", api.RestoreHabit)
		routes.POST("/habits/:id/status", api.SetHabitStatus)
		routes.GET("/habits/:id/stats", api.GetHabitStats)
		routes.POST("/habits/:id/logs/:date/toggle", api.ToggleLog)
		routes.PUT("/habits/:id/logs/:date", api.PutLog)

		routes.GET("/today", api.GetToday)

		routes.GET("/grid", api.GetGrid)
		routes.GET("/grid.png", api.GetGridPNG)
		routes.GET("/viewport", api.GetViewport)
		routes.POST("/viewport/events", api.HandleViewportEvents)
		routes.POST("/viewport/fit", api.FitViewport)

		routes.GET("/notes/:date", api.GetNote)
		routes.PUT("/notes/:date", api.PutNote)
		routes.GET("/notes/:date/html", api.GetNoteHTML)

		routes.GET("/settings", api.GetSettings)
		routes.PUT("/settings", api.UpdateSettings)

		routes.GET("/export", api.ExportData)
		routes.POST("/import", api.ImportData)
		routes.DELETE("/data", api.ClearData)
	}

	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// loopbackOnly 拒绝非本机请求
func loopbackOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := net.ParseIP(c.RemoteIP())
		if ip == nil || !ip.IsLoopback() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "local access only"})
			return
		}
		c.Next()
	}
}
