package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"slidedeck-ai/internal/domain/ir"
)

// ErrInvalidRequest 请求在发出前即不满足契约
var ErrInvalidRequest = errors.New("invalid_request")

// Attachment 随生成请求上传的 .pptx 文件
type Attachment struct {
	Name string
	Data []byte
}

// GenerateRequest 生成请求。NumSlides 为 0 表示由模型决定页数。
type GenerateRequest struct {
	Prompt    string
	NumSlides int
	Mode      ir.GenerationMode
	File      *Attachment
}

// Validate 校验请求契约：prompt 非空、页数非负、模板/参考模式必须附带 .pptx
func (r GenerateRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("%w: prompt is required", ErrInvalidRequest)
	}
	if r.NumSlides < 0 {
		return fmt.Errorf("%w: num_slides must be positive", ErrInvalidRequest)
	}
	if _, err := ir.ParseGenerationMode(string(r.Mode)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if r.Mode.RequiresFile() && r.File == nil {
		return fmt.Errorf("%w: a .pptx file is required for %s mode", ErrInvalidRequest, r.Mode)
	}
	if r.File != nil && !IsPPTXName(r.File.Name) {
		return fmt.Errorf("%w: only .pptx files are accepted, got %q", ErrInvalidRequest, r.File.Name)
	}
	return nil
}

// IsPPTXName 按扩展名判断是否为 .pptx
func IsPPTXName(name string) bool {
	return strings.EqualFold(filepath.Ext(strings.TrimSpace(name)), ".pptx")
}

// GenerateResult 生成结果
type GenerateResult struct {
	ID           string
	Presentation *ir.Presentation
	DownloadRef  string
	PreviewRefs  []string
	Mode         ir.GenerationMode
	Tokens       *ir.DesignTokens
}

// RefineResult 修改结果，ID 与请求一致
type RefineResult struct {
	ID           string
	Presentation *ir.Presentation
	DownloadRef  string
	PreviewRefs  []string
}

// DeckTransport 调用外部生成服务的窄接口。失败时不重试，重试策略属于调用方。
type DeckTransport interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
	Refine(ctx context.Context, id, instruction string) (*RefineResult, error)
	DownloadRef(id string) string
	PreviewRef(id string, index int) string
}

// StatusClass 传输失败的状态分类
type StatusClass string

const (
	ClassNetwork     StatusClass = "network"
	ClassClientError StatusClass = "client_error"
	ClassRateLimited StatusClass = "rate_limited"
	ClassServerError StatusClass = "server_error"
	ClassUnexpected  StatusClass = "unexpected"
)

// ClassifyStatus 按 HTTP 状态码分类，0 表示请求未到达服务端
func ClassifyStatus(code int) StatusClass {
	switch {
	case code == 0:
		return ClassNetwork
	case code == http.StatusTooManyRequests:
		return ClassRateLimited
	case code >= 400 && code < 500:
		return ClassClientError
	case code >= 500:
		return ClassServerError
	default:
		return ClassUnexpected
	}
}

// TransportError 外部服务返回非成功状态或请求未能送达
type TransportError struct {
	Op         string
	StatusCode int
	Class      StatusClass
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Class, e.Err)
	}
	return fmt.Sprintf("%s: %d %s: %s", e.Op, e.StatusCode, e.Class, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Err }
