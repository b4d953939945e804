// Package middleware 提供 HTTP 中间件
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"slidedeck-ai/internal/interfaces/http/dto"
	"slidedeck-ai/pkg/errors"
	"slidedeck-ai/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Recovery Panic 恢复中间件
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				// 记录错误日志
				logger.Error(c.Request.Context(), "panic recovered",
					fmt.Errorf("%v", err),
					"stack", string(debug.Stack()),
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				// 返回 500 错误
				dto.Abort(c, http.StatusInternalServerError, errors.New(errors.CodeInternalError, "internal server error"))
			}
		}()

		c.Next()
	}
}
