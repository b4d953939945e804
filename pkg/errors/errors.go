// Package errors 提供统一的错误定义
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeNotFound           ErrorCode = "1004"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"
	CodePayloadTooLarge    ErrorCode = "1009"

	// 资源错误 (3xxx)
	CodePresentationNotFound ErrorCode = "3001"
	CodePreviewNotFound      ErrorCode = "3002"
	CodeArtifactNotFound     ErrorCode = "3003"

	// 业务错误 (4xxx)
	CodeGenerationFailed ErrorCode = "4001"
	CodeValidationFailed ErrorCode = "4002"
	CodeInvalidIR        ErrorCode = "4003"
	CodeRefineFailed     ErrorCode = "4004"
	CodeLLMCallFailed    ErrorCode = "4005"
	CodeTemplateScan     ErrorCode = "4006"

	// 外部服务错误 (5xxx)
	CodeCacheError       ErrorCode = "5002"
	CodeStorageError     ErrorCode = "5004"
	CodeLLMProviderError ErrorCode = "5005"
	CodeRenderFailed     ErrorCode = "5006"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail 添加详细信息
func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail
	return e
}

// WithError 添加底层错误
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeValidationFailed, CodeTemplateScan:
		return http.StatusBadRequest
	case CodeNotFound, CodePresentationNotFound, CodePreviewNotFound, CodeArtifactNotFound:
		return http.StatusNotFound
	case CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeInvalidIR, CodeLLMProviderError, CodeLLMCallFailed:
		// 上游模型返回了不可用的内容
		return http.StatusBadGateway
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误，仅用于 errors.Is 比较，不要在其上调用 WithDetail
var (
	ErrInvalidParam         = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound             = New(CodeNotFound, "resource not found")
	ErrTooManyRequests      = New(CodeTooManyRequests, "too many requests")
	ErrInternalError        = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable   = New(CodeServiceUnavailable, "service unavailable")
	ErrPresentationNotFound = New(CodePresentationNotFound, "presentation not found")
)

// Is 按错误码比较，便于 errors.Is(err, ErrPresentationNotFound)
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// IsAppError 检查错误链中是否存在 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}

// StatusOf 返回错误对应的 HTTP 状态码
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return AsAppError(err).HTTPStatus
}
