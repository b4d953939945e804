package deck

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"slidedeck-ai/internal/config"
	"slidedeck-ai/internal/domain/ir"
	"slidedeck-ai/internal/domain/service"
	apperrors "slidedeck-ai/pkg/errors"
)

// Limits 请求输入限制
type Limits struct {
	PromptMin, PromptMax           int
	InstructionMin, InstructionMax int
	MinSlides, MaxSlides           int
	MaxUploadBytes                 int64
}

func LimitsFromConfig(cfg config.GenerationConfig) Limits {
	return Limits{
		PromptMin:      cfg.PromptMinChars,
		PromptMax:      cfg.PromptMaxChars,
		InstructionMin: cfg.InstructionMinChars,
		InstructionMax: cfg.InstructionMaxChars,
		MinSlides:      cfg.MinSlides,
		MaxSlides:      cfg.MaxSlides,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
}

// DefaultLimits 与配置默认值一致
func DefaultLimits() Limits {
	return Limits{
		PromptMin: 3, PromptMax: 5000,
		InstructionMin: 3, InstructionMax: 2000,
		MinSlides: 1, MaxSlides: 30,
		MaxUploadBytes: 20 << 20,
	}
}

func (l Limits) checkGenerate(cmd GenerateCommand) error {
	if err := textLength("prompt", cmd.Prompt, l.PromptMin, l.PromptMax); err != nil {
		return err
	}
	if cmd.NumSlides != 0 && (cmd.NumSlides < l.MinSlides || cmd.NumSlides > l.MaxSlides) {
		return invalidParam("num_slides must be between %d and %d", l.MinSlides, l.MaxSlides)
	}
	if _, err := ir.ParseGenerationMode(string(cmd.Mode)); err != nil {
		return invalidParam("%v", err)
	}
	if cmd.Mode.RequiresFile() && cmd.File == nil {
		return invalidParam("a .pptx file is required for %s mode", cmd.Mode)
	}
	if cmd.File != nil {
		if !service.IsPPTXName(cmd.File.Name) {
			return invalidParam("only .pptx files are accepted")
		}
		if l.MaxUploadBytes > 0 && int64(len(cmd.File.Data)) > l.MaxUploadBytes {
			return apperrors.New(apperrors.CodePayloadTooLarge, "uploaded file too large").
				WithDetail(fmt.Sprintf("maximum size is %d bytes", l.MaxUploadBytes))
		}
	}
	return nil
}

func (l Limits) checkInstruction(instruction string) error {
	return textLength("instruction", instruction, l.InstructionMin, l.InstructionMax)
}

// textLength 按字符数（非字节）检查，首尾空白不计
func textLength(field, s string, min, max int) error {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	if n < min || n > max {
		return invalidParam("%s must be between %d and %d characters", field, min, max)
	}
	return nil
}

func invalidParam(format string, args ...any) *apperrors.AppError {
	return apperrors.New(apperrors.CodeInvalidParam, "invalid parameter").WithDetail(fmt.Sprintf(format, args...))
}
