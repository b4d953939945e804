// Package session 实现客户端会话状态机：持有唯一的当前演示文稿，串行驱动生成与修改。
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"slidedeck-ai/internal/domain/ir"
	"slidedeck-ai/internal/domain/service"
	"slidedeck-ai/pkg/logger"
)

// State 会话状态。四个状态互斥，不会出现“同时生成又修改”。
type State string

const (
	StateIdle       State = "idle"
	StateGenerating State = "generating"
	StateReady      State = "ready"
	StateRefining   State = "refining"
)

func (s State) busy() bool {
	return s == StateGenerating || s == StateRefining
}

// Outcome 一次 Generate/Refine 调用的结果
type Outcome int

const (
	// OutcomeApplied 结果已生效
	OutcomeApplied Outcome = iota
	// OutcomeFailed 失败已记录到 Err，原有状态保持不变
	OutcomeFailed
	// OutcomeIgnored 用法错误（忙、无当前文稿、空输入），静默忽略，未发起请求
	OutcomeIgnored
	// OutcomeDiscarded 请求返回时会话已被 Reset，结果被丢弃
	OutcomeDiscarded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeFailed:
		return "failed"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// FailureKind 失败类别
type FailureKind string

const (
	FailureTransport      FailureKind = "transport"
	FailureInvalidIR      FailureKind = "invalid_ir"
	FailureInvalidRequest FailureKind = "invalid_request"
)

// Failure 当前错误，同一时刻只保留一个
type Failure struct {
	Kind       FailureKind
	Message    string
	StatusCode int
}

func (f *Failure) Error() string { return f.Message }

// GenerateOptions 生成参数。Mode 为空时使用会话当前选择的模式。
type GenerateOptions struct {
	NumSlides int
	Mode      ir.GenerationMode
	File      *service.Attachment
}

// Snapshot 会话状态的只读快照。Presentation 与会话共享，调用方不得修改。
type Snapshot struct {
	State          State
	PresentationID string
	Presentation   *ir.Presentation
	DownloadRef    string
	PreviewRefs    []string
	SelectedMode   ir.GenerationMode
	GeneratedMode  ir.GenerationMode
	DesignTokens   *ir.DesignTokens
	ActiveSlide    int
	History        []string
	Err            *Failure
}

// Option 会话选项
type Option func(*Session)

// WithID 指定会话 ID（用于日志），默认随机生成
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// Session 单个用户的会话。所有方法可并发调用：同一时刻最多一个请求在途，
// 重叠调用被忽略；Reset 之后返回的旧请求结果不会生效。
type Session struct {
	id        string
	transport service.DeckTransport

	mu             sync.Mutex
	state          State
	presentationID string
	presentation   *ir.Presentation
	downloadRef    string
	previewRefs    []string
	selectedMode   ir.GenerationMode
	generatedMode  ir.GenerationMode
	tokens         *ir.DesignTokens
	activeSlide    int
	history        []string
	err            *Failure

	epoch  uint64
	cancel context.CancelFunc
}

// New 创建会话
func New(transport service.DeckTransport, opts ...Option) *Session {
	s := &Session{
		id:           uuid.NewString(),
		transport:    transport,
		state:        StateIdle,
		selectedMode: ir.DefaultGenerationMode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID 会话 ID
func (s *Session) ID() string { return s.id }

// Generate 生成新的演示文稿。仅在 Idle/Ready 状态下发起；成功后替换当前文稿并把历史重置为 [prompt]。
func (s *Session) Generate(ctx context.Context, prompt string, opts GenerateOptions) Outcome {
	ctx = logger.WithContext(ctx, logger.SessionIDKey, s.id)
	prompt = strings.TrimSpace(prompt)

	s.mu.Lock()
	if s.state.busy() || prompt == "" {
		state := s.state
		s.mu.Unlock()
		logger.Debug(ctx, "generate ignored", "state", state, "empty_prompt", prompt == "")
		return OutcomeIgnored
	}

	mode := opts.Mode
	if mode == "" {
		mode = s.selectedMode
	}
	req := service.GenerateRequest{Prompt: prompt, NumSlides: opts.NumSlides, Mode: mode, File: opts.File}
	if err := req.Validate(); err != nil {
		s.err = classify(err)
		s.mu.Unlock()
		logger.Warn(ctx, "generate rejected before dispatch", "error", err.Error())
		return OutcomeFailed
	}

	callCtx, cancel, epoch := s.dispatchLocked(ctx, StateGenerating)
	s.mu.Unlock()
	defer cancel()

	logger.Info(ctx, "generate dispatched", "mode", mode, "num_slides", opts.NumSlides, "with_file", opts.File != nil)
	res, err := s.transport.Generate(callCtx, req)
	if err == nil {
		err = checkGenerateResult(res)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		logger.Info(ctx, "generate result discarded after reset")
		return OutcomeDiscarded
	}
	s.cancel = nil
	if err != nil {
		s.failLocked(ctx, "generate", err)
		return OutcomeFailed
	}

	s.presentationID = res.ID
	s.presentation = res.Presentation
	s.downloadRef = res.DownloadRef
	s.previewRefs = append([]string(nil), res.PreviewRefs...)
	s.generatedMode = res.Mode
	if s.generatedMode == "" {
		s.generatedMode = mode
	}
	s.tokens = res.Tokens
	s.activeSlide = 0
	s.history = []string{prompt}
	s.state = StateReady
	logger.Info(ctx, "generate applied", "presentation_id", res.ID, "slides", res.Presentation.SlideCount(), "previews", len(res.PreviewRefs))
	return OutcomeApplied
}

// Refine 用自然语言指令修改当前文稿。没有当前文稿或会话忙时静默忽略，不发起请求。
func (s *Session) Refine(ctx context.Context, instruction string) Outcome {
	ctx = logger.WithContext(ctx, logger.SessionIDKey, s.id)
	instruction = strings.TrimSpace(instruction)

	s.mu.Lock()
	if s.state != StateReady || s.presentationID == "" || instruction == "" {
		state := s.state
		s.mu.Unlock()
		logger.Debug(ctx, "refine ignored", "state", state, "empty_instruction", instruction == "")
		return OutcomeIgnored
	}
	id := s.presentationID
	callCtx, cancel, epoch := s.dispatchLocked(ctx, StateRefining)
	s.mu.Unlock()
	defer cancel()

	ctx = logger.WithContext(ctx, logger.PresentationIDKey, id)
	logger.Info(ctx, "refine dispatched")
	res, err := s.transport.Refine(callCtx, id, instruction)
	if err == nil {
		err = checkRefineResult(id, res)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		logger.Info(ctx, "refine result discarded after reset")
		return OutcomeDiscarded
	}
	s.cancel = nil
	if err != nil {
		s.failLocked(ctx, "refine", err)
		return OutcomeFailed
	}

	s.presentation = res.Presentation
	s.downloadRef = res.DownloadRef
	s.previewRefs = append([]string(nil), res.PreviewRefs...)
	s.activeSlide = 0
	s.history = append(s.history, instruction)
	s.state = StateReady
	logger.Info(ctx, "refine applied", "slides", res.Presentation.SlideCount(), "history", len(s.history))
	return OutcomeApplied
}

// Reset 回到 Idle 并清空所有状态；在途请求被取消，其结果不会生效
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.epoch++
	s.state = StateIdle
	s.presentationID = ""
	s.presentation = nil
	s.downloadRef = ""
	s.previewRefs = nil
	s.selectedMode = ir.DefaultGenerationMode
	s.generatedMode = ""
	s.tokens = nil
	s.activeSlide = 0
	s.history = nil
	s.err = nil
}

// SetActiveSlide 移动当前页游标并返回实际位置，越界时夹取到 [0, n-1]；没有文稿时无效果
func (s *Session) SetActiveSlide(index int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.presentation.SlideCount()
	if n == 0 {
		return s.activeSlide
	}
	switch {
	case index < 0:
		index = 0
	case index > n-1:
		index = n - 1
	}
	s.activeSlide = index
	return index
}

// SelectMode 选择下一次生成使用的模式，未知模式返回 false
func (s *Session) SelectMode(mode ir.GenerationMode) bool {
	m, err := ir.ParseGenerationMode(string(mode))
	if err != nil {
		return false
	}
	s.mu.Lock()
	s.selectedMode = m
	s.mu.Unlock()
	return true
}

// State 当前状态
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PreviewRef 返回第 index 页的预览地址；预览可能少于页数，缺失时返回 false
func (s *Session) PreviewRef(index int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.previewRefs) || s.previewRefs[index] == "" {
		return "", false
	}
	return s.previewRefs[index], true
}

// Snapshot 返回当前状态快照
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		State:          s.state,
		PresentationID: s.presentationID,
		Presentation:   s.presentation,
		DownloadRef:    s.downloadRef,
		SelectedMode:   s.selectedMode,
		GeneratedMode:  s.generatedMode,
		DesignTokens:   s.tokens,
		ActiveSlide:    s.activeSlide,
	}
	if s.previewRefs != nil {
		snap.PreviewRefs = append([]string(nil), s.previewRefs...)
	}
	if s.history != nil {
		snap.History = append([]string(nil), s.history...)
	}
	if s.err != nil {
		e := *s.err
		snap.Err = &e
	}
	return snap
}

// dispatchLocked 进入忙状态并清除上一个错误，调用方持有锁
func (s *Session) dispatchLocked(ctx context.Context, busy State) (context.Context, context.CancelFunc, uint64) {
	s.state = busy
	s.err = nil
	callCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	return callCtx, cancel, s.epoch
}

// failLocked 记录失败，文稿与历史保持不变，调用方持有锁
func (s *Session) failLocked(ctx context.Context, op string, err error) {
	if s.presentation != nil {
		s.state = StateReady
	} else {
		s.state = StateIdle
	}
	s.err = classify(err)
	logger.Warn(ctx, op+" failed", "kind", s.err.Kind, "status", s.err.StatusCode, "error", err.Error())
}

func checkGenerateResult(res *service.GenerateResult) error {
	if res == nil || res.Presentation == nil {
		return &ir.ValidationError{Path: "presentation", Constraint: ir.ConstraintRequired, Detail: "response has no presentation"}
	}
	if strings.TrimSpace(res.ID) == "" {
		return &ir.ValidationError{Path: "presentation_id", Constraint: ir.ConstraintRequired, Detail: "response has no presentation id"}
	}
	return nil
}

func checkRefineResult(id string, res *service.RefineResult) error {
	if res == nil || res.Presentation == nil {
		return &ir.ValidationError{Path: "presentation", Constraint: ir.ConstraintRequired, Detail: "response has no presentation"}
	}
	if res.ID != "" && res.ID != id {
		return &ir.ValidationError{Path: "presentation_id", Constraint: ir.ConstraintUnique, Detail: "refine returned a different presentation id " + res.ID}
	}
	return nil
}

func classify(err error) *Failure {
	var te *service.TransportError
	switch {
	case errors.Is(err, ir.ErrInvalidIR):
		return &Failure{Kind: FailureInvalidIR, Message: err.Error()}
	case errors.Is(err, service.ErrInvalidRequest):
		return &Failure{Kind: FailureInvalidRequest, Message: err.Error()}
	case errors.As(err, &te):
		msg := te.Message
		if msg == "" {
			msg = te.Error()
		}
		return &Failure{Kind: FailureTransport, Message: msg, StatusCode: te.StatusCode}
	default:
		return &Failure{Kind: FailureTransport, Message: err.Error()}
	}
}
