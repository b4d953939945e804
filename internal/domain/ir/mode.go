package ir

import "strings"

// GenerationMode 生成模式
type GenerationMode string

const (
	ModeFromScratch GenerationMode = "from_scratch"
	ModeTemplate    GenerationMode = "template"
	ModeReference   GenerationMode = "reference"
)

// GenerationModes 全部合法生成模式
var GenerationModes = []GenerationMode{ModeFromScratch, ModeTemplate, ModeReference}

// RequiresFile 模板/参考模式必须附带 .pptx
func (m GenerationMode) RequiresFile() bool {
	return m == ModeTemplate || m == ModeReference
}

// ParseGenerationMode 解析生成模式，空串视为默认值，未知值返回校验错误
func ParseGenerationMode(s string) (GenerationMode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultGenerationMode, nil
	}
	m := GenerationMode(s)
	if !oneOf(m, GenerationModes) {
		return "", violation("generation_mode", ConstraintEnum, "unknown generation mode %q", s)
	}
	return m, nil
}

func oneOf[T comparable](v T, set []T) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}
