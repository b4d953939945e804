package middleware

import (
	"net/http"

	"slidedeck-ai/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TraceIDHeader 响应中的追踪 ID 头
const TraceIDHeader = "X-Trace-ID"

// Trace OpenTelemetry 追踪中间件，按路由模板命名 span
func Trace(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName,
		otelgin.WithFilter(func(r *http.Request) bool {
			// 探针请求不产生 span
			switch r.URL.Path {
			case "/health", "/live", "/ready":
				return false
			}
			return true
		}),
	)
}

// TraceContext 把 trace_id 与路由中的 presentation_id 注入日志上下文
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span := trace.SpanFromContext(ctx)
		if sc := span.SpanContext(); sc.IsValid() {
			traceID := sc.TraceID().String()
			c.Set("trace_id", traceID)
			ctx = logger.WithContext(ctx, logger.TraceIDKey, traceID)
			ctx = logger.WithContext(ctx, logger.SpanIDKey, sc.SpanID().String())
			c.Header(TraceIDHeader, traceID)
		}
		if id := c.Param("presentation_id"); id != "" {
			ctx = logger.WithContext(ctx, logger.PresentationIDKey, id)
			span.SetAttributes(attribute.String("presentation.id", id))
		}
		if rid := c.GetString("request_id"); rid != "" {
			span.SetAttributes(attribute.String("request.id", rid))
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
