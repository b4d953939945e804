package dto

import (
	"slidedeck-ai/internal/application/deck"
	"slidedeck-ai/internal/domain/ir"
)

// GenerateRequest JSON 生成请求；multipart 表单使用相同字段名
type GenerateRequest struct {
	Prompt         string `json:"prompt" form:"prompt"`
	NumSlides      *int   `json:"num_slides" form:"num_slides"`
	GenerationMode string `json:"generation_mode" form:"generation_mode"`
}

// RefineRequest 修改请求
type RefineRequest struct {
	Instruction string `json:"instruction"`
}

// PresentationResponse 生成与修改共用的响应
type PresentationResponse struct {
	PresentationID string            `json:"presentation_id"`
	Presentation   *ir.Presentation  `json:"presentation"`
	DownloadURL    string            `json:"download_url"`
	PreviewURLs    []string          `json:"preview_urls"`
	GenerationMode ir.GenerationMode `json:"generation_mode,omitempty"`
	DesignTokens   *ir.DesignTokens  `json:"design_tokens,omitempty"`
	Revision       int               `json:"revision"`
}

// ToGenerateResponse 转换生成结果
func ToGenerateResponse(r *deck.Result) *PresentationResponse {
	resp := ToRefineResponse(r)
	resp.GenerationMode = r.Mode
	resp.DesignTokens = r.Tokens
	return resp
}

// ToRefineResponse 转换修改结果，不含生成模式与设计令牌
func ToRefineResponse(r *deck.Result) *PresentationResponse {
	previews := r.PreviewURLs
	if previews == nil {
		previews = []string{}
	}
	return &PresentationResponse{
		PresentationID: r.ID,
		Presentation:   r.Presentation,
		DownloadURL:    r.DownloadURL,
		PreviewURLs:    previews,
		Revision:       r.Revision,
	}
}
