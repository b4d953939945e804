package node

import (
	"strings"

	"slidedeck-ai/internal/domain/ir"
)

// maxPaletteColors 提示词中最多列出的调色板颜色数
const maxPaletteColors = 10

// BuildDesignConstraintsBlock 把设计令牌渲染为提示词中的约束段落；tokens 为空时返回空串
func BuildDesignConstraintsBlock(tokens *ir.DesignTokens) string {
	if tokens == nil {
		return ""
	}
	lines := []string{
		"## Design Constraints (from the uploaded template or reference deck)",
		"You MUST use these design tokens:",
		"- Primary color: " + tokens.PrimaryColor,
		"- Secondary color: " + tokens.SecondaryColor,
		"- Background color: " + tokens.BackgroundColor,
		"- Heading font: " + tokens.FontHeading,
		"- Body font: " + tokens.FontBody,
	}
	if n := len(tokens.ExtractedColors); n > 0 {
		if n > maxPaletteColors {
			n = maxPaletteColors
		}
		lines = append(lines, "- Available palette: "+strings.Join(tokens.ExtractedColors[:n], ", "))
	}
	if len(tokens.LayoutNames) > 0 {
		lines = append(lines, "- Layout names in the source deck: "+strings.Join(tokens.LayoutNames, ", "))
	}
	return strings.Join(lines, "\n")
}
