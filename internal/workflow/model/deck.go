package model

import "slidedeck-ai/internal/domain/ir"

// DeckGenerateInput 从提示词生成演示文稿
type DeckGenerateInput struct {
	Prompt    string
	NumSlides int
	// Tokens 模板/参考模式下从上传文件提取的设计约束
	Tokens *ir.DesignTokens

	Provider string
	Model    string

	Temperature *float32
	MaxTokens   *int
}

// DeckRefineInput 按指令修改已有演示文稿
type DeckRefineInput struct {
	Current     *ir.Presentation
	Instruction string

	Provider string
	Model    string

	Temperature *float32
	MaxTokens   *int
}

// DeckOutput 归一化后的演示文稿与本次调用用量
type DeckOutput struct {
	Presentation *ir.Presentation
	Warnings     []ir.Warning
	Usage        LLMUsageMeta
	// RawPreview 模型原始输出的前缀，用于排障日志
	RawPreview string
}
