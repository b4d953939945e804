package ir

import (
	"errors"
	"fmt"
)

// ErrInvalidIR 所有 IR 校验失败都满足 errors.Is(err, ErrInvalidIR)
var ErrInvalidIR = errors.New("invalid_ir")

// Constraint 违反的约束类型
type Constraint string

const (
	ConstraintRequired       Constraint = "required"
	ConstraintType           Constraint = "type"
	ConstraintEnum           Constraint = "enum"
	ConstraintRange          Constraint = "range"
	ConstraintLengthMismatch Constraint = "length_mismatch"
	ConstraintMinItems       Constraint = "min_items"
	ConstraintUnique         Constraint = "unique"
)

// ValidationError 结构化拒绝：第一个出错字段的路径与违反的约束
type ValidationError struct {
	Path       string
	Constraint Constraint
	Detail     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid_ir: %s: %s (%s)", e.Path, e.Detail, e.Constraint)
}

// Is 使 errors.Is(err, ErrInvalidIR) 成立
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidIR
}

// Kind 机器可读的错误类别
func (e *ValidationError) Kind() string {
	return ErrInvalidIR.Error()
}

// AsValidationError 从错误链中取出 ValidationError
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Warning 非致命问题，归一化继续进行
type Warning struct {
	Path   string `json:"path"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

const (
	WarnImageSourceAmbiguous = "image_source_ambiguous"
	WarnMultipleTitles       = "multiple_titles"
)

func violation(path string, c Constraint, format string, args ...any) *ValidationError {
	if path == "" {
		path = rootPath
	}
	return &ValidationError{Path: path, Constraint: c, Detail: fmt.Sprintf(format, args...)}
}
