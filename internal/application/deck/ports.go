// Package deck 编排演示文稿的生成、修改、下载与预览。
package deck

import (
	"context"

	"slidedeck-ai/internal/domain/ir"
	wfmodel "slidedeck-ai/internal/workflow/model"
)

// DeckGenerator 模型侧的生成与修改，输出已归一化
type DeckGenerator interface {
	Generate(ctx context.Context, in *wfmodel.DeckGenerateInput) (*wfmodel.DeckOutput, error)
	Refine(ctx context.Context, in *wfmodel.DeckRefineInput) (*wfmodel.DeckOutput, error)
}

// DocumentBuilder 从 IR 生成 .pptx
type DocumentBuilder interface {
	Build(ctx context.Context, p *ir.Presentation) ([]byte, error)
}

// PreviewRenderer 把 .pptx 渲染为逐页 PNG
type PreviewRenderer interface {
	Render(ctx context.Context, pptx []byte) ([][]byte, error)
}

// TemplateScanner 从上传文件提取设计令牌，失败时返回默认值
type TemplateScanner interface {
	ScanOrDefault(ctx context.Context, data []byte) *ir.DesignTokens
}
