// Package router 提供 HTTP 路由配置
package router

import (
	"slidedeck-ai/internal/config"
	"slidedeck-ai/internal/interfaces/http/handler"
	"slidedeck-ai/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router HTTP 路由器
type Router struct {
	engine       *gin.Engine
	cfg          *config.Config
	presentation *handler.PresentationHandler
	health       *handler.HealthHandler
	limiter      middleware.RateLimiter
}

// New 创建新的路由器。limiter 为 nil 时不限流。
func New(cfg *config.Config, presentation *handler.PresentationHandler, health *handler.HealthHandler, limiter middleware.RateLimiter) *Router {
	// 设置 Gin 模式
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	// 上传文件在内存中解析的上限，超出部分落临时文件
	engine.MaxMultipartMemory = cfg.Generation.MaxUploadBytes

	r := &Router{
		engine:       engine,
		cfg:          cfg,
		presentation: presentation,
		health:       health,
		limiter:      limiter,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	// 基础中间件
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	// CORS 中间件
	r.engine.Use(middleware.CORS(r.cfg.Security.CORS))

	// 追踪中间件
	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
	}
	r.engine.Use(middleware.TraceContext())

	// 指标中间件
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics(r.cfg.Observability.Metrics.Path))
	}
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	// 系统端点
	r.engine.GET("/health", r.health.Health)
	r.engine.GET("/ready", r.health.Ready)
	r.engine.GET("/live", r.health.Live)

	// Prometheus 指标端点
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	rl := r.cfg.Security.RateLimit
	limit := middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:  rl.Enabled,
		Requests: rl.Requests,
		Window:   rl.Window,
	}, r.limiter)

	api := r.engine.Group("/api")
	{
		// 调用模型的接口受限流保护
		api.POST("/generate", limit, r.presentation.Generate)
		api.POST("/refine/:presentation_id", limit, r.presentation.Refine)

		api.GET("/download/:presentation_id", r.presentation.Download)
		api.GET("/preview/:presentation_id/:slide_index", r.presentation.Preview)
	}
}
