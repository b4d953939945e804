// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"slidedeck-ai/pkg/errors"
	"slidedeck-ai/pkg/logger"
)

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Detail  string           `json:"detail,omitempty"`
	TraceID string           `json:"trace_id,omitempty"`
}

// Error 按 AppError 的状态码返回错误；非 AppError 一律视为 500
func Error(c *gin.Context, err error) {
	appErr := errors.AsAppError(err)
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "request failed", err,
			"code", string(appErr.Code),
			"path", c.FullPath(),
		)
	}
	Abort(c, status, appErr)
}

// Abort 写入错误体并中止后续处理
func Abort(c *gin.Context, status int, appErr *errors.AppError) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
		TraceID: c.GetString("trace_id"),
	})
}

// BadRequest 返回 400 错误
func BadRequest(c *gin.Context, detail string) {
	Abort(c, http.StatusBadRequest, errors.New(errors.CodeInvalidParam, "invalid parameter").WithDetail(detail))
}
