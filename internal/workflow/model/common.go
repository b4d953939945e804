package model

import "time"

// LLMUsageMeta 一次模型调用的用量与参数
type LLMUsageMeta struct {
	Provider         string
	Model            string
	PromptTokens     int
	CompletionTokens int
	Temperature      float64
	GeneratedAt      time.Time
}
