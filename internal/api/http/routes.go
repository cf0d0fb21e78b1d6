package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RegisterRoutes mounts the audit API on r.
func RegisterRoutes(r gin.IRouter, h *Handlers) {
	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/track", h.HandleTrack)
		apiGroup.POST("/scan", h.HandleScan)
		apiGroup.POST("/decisions", h.HandleCreateDecision)
		apiGroup.GET("/system", h.HandleSystem)
		apiGroup.POST("/system/reset", h.HandleReset)
	}
	r.GET("/healthz", h.HandleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// NewRouter returns a gin engine with recovery, tracing and the audit routes.
func NewRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware("auditd"))
	RegisterRoutes(r, h)
	return r
}
