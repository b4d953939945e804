package deck

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"slidedeck-ai/internal/domain/entity"
	"slidedeck-ai/internal/domain/ir"
	"slidedeck-ai/internal/domain/refs"
	"slidedeck-ai/internal/domain/repository"
	"slidedeck-ai/internal/domain/service"
	wfmodel "slidedeck-ai/internal/workflow/model"
	apperrors "slidedeck-ai/pkg/errors"
	"slidedeck-ai/pkg/logger"
	"slidedeck-ai/pkg/metrics"
)

const (
	contentTypePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	contentTypePNG  = "image/png"
)

// GenerateCommand 生成请求。NumSlides 为 0 表示由模型决定。
type GenerateCommand struct {
	Prompt    string
	NumSlides int
	Mode      ir.GenerationMode
	File      *service.Attachment
}

// Result 生成或修改后的演示文稿及其资源地址
type Result struct {
	ID           string
	Presentation *ir.Presentation
	DownloadURL  string
	PreviewURLs  []string
	Mode         ir.GenerationMode
	Tokens       *ir.DesignTokens
	Revision     int
}

// Artifact 下载或预览的二进制内容
type Artifact struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Service 演示文稿应用服务
type Service struct {
	generator DeckGenerator
	builder   DocumentBuilder
	renderer  PreviewRenderer
	scanner   TemplateScanner
	registry  repository.PresentationRepository
	store     repository.ArtifactStore
	locator   refs.Locator
	limits    Limits
	now       func() time.Time

	// 同一演示文稿的修改串行执行，保证 revision 单调；按 ID 哈希分片
	locks [lockStripes]sync.Mutex
}

const lockStripes = 64

// Options 可选配置
type Options struct {
	PublicBaseURL string
	Limits        Limits
}

func NewService(
	generator DeckGenerator,
	builder DocumentBuilder,
	renderer PreviewRenderer,
	scanner TemplateScanner,
	registry repository.PresentationRepository,
	store repository.ArtifactStore,
	opts Options,
) *Service {
	limits := opts.Limits
	if limits == (Limits{}) {
		limits = DefaultLimits()
	}
	return &Service{
		generator: generator,
		builder:   builder,
		renderer:  renderer,
		scanner:   scanner,
		registry:  registry,
		store:     store,
		locator:   refs.NewLocator(opts.PublicBaseURL),
		limits:    limits,
		now:       time.Now,
	}
}

// Generate 生成新的演示文稿
func (s *Service) Generate(ctx context.Context, cmd GenerateCommand) (res *Result, err error) {
	mode, perr := ir.ParseGenerationMode(string(cmd.Mode))
	if perr != nil {
		return nil, invalidParam("%v", perr)
	}
	cmd.Mode = mode

	start := time.Now()
	defer func() { observe("generate", string(mode), start, err) }()

	if err := s.limits.checkGenerate(cmd); err != nil {
		return nil, err
	}

	var tokens *ir.DesignTokens
	if cmd.File != nil {
		tokens = s.scanner.ScanOrDefault(ctx, cmd.File.Data)
	}

	out, err := s.generator.Generate(ctx, &wfmodel.DeckGenerateInput{
		Prompt:    strings.TrimSpace(cmd.Prompt),
		NumSlides: cmd.NumSlides,
		Tokens:    tokens,
	})
	if err != nil {
		return nil, llmError(apperrors.CodeGenerationFailed, "deck generation failed", err)
	}
	recordWarnings(out.Warnings)

	id := uuid.NewString()
	ctx = logger.WithContext(ctx, logger.PresentationIDKey, id)

	arts, err := s.storeArtifacts(ctx, id, 1, out.Presentation)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rec := &entity.PresentationRecord{
		ID:           id,
		Presentation: out.Presentation,
		Mode:         mode,
		Tokens:       tokens,
		PPTXKey:      arts.pptxKey,
		PreviewKeys:  arts.previewKeys,
		Revision:     1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.registry.Save(ctx, rec); err != nil {
		s.discard(ctx, entity.ArtifactPrefix(id))
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to save presentation")
	}

	metrics.DeckSlideCount.Observe(float64(out.Presentation.SlideCount()))
	logger.Info(ctx, "presentation generated",
		"mode", string(mode),
		"slides", out.Presentation.SlideCount(),
		"previews", len(arts.previewKeys),
		"warnings", len(out.Warnings),
		"prompt_tokens", out.Usage.PromptTokens,
		"completion_tokens", out.Usage.CompletionTokens,
	)
	return s.result(rec), nil
}

// Refine 按指令修改已有演示文稿，ID 不变，revision 加 1
func (s *Service) Refine(ctx context.Context, id, instruction string) (res *Result, err error) {
	start := time.Now()
	defer func() { observe("refine", "", start, err) }()

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, invalidParam("presentation_id is required")
	}
	if err := s.limits.checkInstruction(instruction); err != nil {
		return nil, err
	}
	ctx = logger.WithContext(ctx, logger.PresentationIDKey, id)

	unlock := s.lock(id)
	defer unlock()

	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	out, err := s.generator.Refine(ctx, &wfmodel.DeckRefineInput{
		Current:     rec.Presentation,
		Instruction: strings.TrimSpace(instruction),
	})
	if err != nil {
		return nil, llmError(apperrors.CodeRefineFailed, "deck refinement failed", err)
	}
	recordWarnings(out.Warnings)

	// 新修订版写入独立前缀，登记成功前当前修订版的产物保持不变
	prevRevision := rec.Revision
	next := *rec
	next.Revision++
	arts, err := s.storeArtifacts(ctx, id, next.Revision, out.Presentation)
	if err != nil {
		return nil, err
	}

	next.Presentation = out.Presentation
	next.PPTXKey = arts.pptxKey
	next.PreviewKeys = arts.previewKeys
	next.UpdatedAt = s.now().UTC()
	if err := s.registry.Save(ctx, &next); err != nil {
		s.discard(ctx, entity.RevisionPrefix(id, next.Revision))
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to save presentation")
	}
	s.discard(ctx, entity.RevisionPrefix(id, prevRevision))

	logger.Info(ctx, "presentation refined",
		"revision", next.Revision,
		"slides", out.Presentation.SlideCount(),
		"warnings", len(out.Warnings),
	)
	return s.result(&next), nil
}

// Download 返回 .pptx
func (s *Service) Download(ctx context.Context, id string) (*Artifact, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	data, _, err := s.store.Get(ctx, rec.PPTXKey)
	if err != nil {
		if errors.Is(err, repository.ErrArtifactNotFound) {
			return nil, apperrors.New(apperrors.CodeArtifactNotFound, "presentation file not found")
		}
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to read presentation file")
	}
	return &Artifact{Data: data, ContentType: contentTypePPTX, Filename: refs.DownloadFilename(id)}, nil
}

// Preview 返回第 index 页（从 0 开始）的 PNG
func (s *Service) Preview(ctx context.Context, id string, index int) (*Artifact, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(rec.PreviewKeys) {
		return nil, apperrors.New(apperrors.CodePreviewNotFound, "preview not found").
			WithDetail(fmt.Sprintf("presentation has %d previews", len(rec.PreviewKeys)))
	}
	data, _, err := s.store.Get(ctx, rec.PreviewKeys[index])
	if err != nil {
		if errors.Is(err, repository.ErrArtifactNotFound) {
			return nil, apperrors.New(apperrors.CodePreviewNotFound, "preview not found")
		}
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to read preview")
	}
	return &Artifact{Data: data, ContentType: contentTypePNG}, nil
}

func (s *Service) load(ctx context.Context, id string) (*entity.PresentationRecord, error) {
	rec, err := s.registry.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, repository.ErrPresentationNotFound) {
			return nil, apperrors.New(apperrors.CodePresentationNotFound, "presentation not found")
		}
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to load presentation")
	}
	return rec, nil
}

type artifacts struct {
	pptxKey     string
	previewKeys []string
}

// storeArtifacts 先构建并渲染，全部就绪后再写入该修订版的前缀
func (s *Service) storeArtifacts(ctx context.Context, id string, revision int, p *ir.Presentation) (*artifacts, error) {
	pptx, err := s.builder.Build(ctx, p)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeGenerationFailed, "failed to build presentation file")
	}
	pngs := s.render(ctx, pptx)

	arts := &artifacts{pptxKey: entity.PPTXKeyFor(id, revision), previewKeys: []string{}}
	if err := s.store.Put(ctx, arts.pptxKey, pptx, contentTypePPTX); err != nil {
		s.discard(ctx, entity.RevisionPrefix(id, revision))
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to store presentation file")
	}
	for i, png := range pngs {
		key := entity.PreviewKeyFor(id, revision, i)
		if err := s.store.Put(ctx, key, png, contentTypePNG); err != nil {
			logger.Warn(ctx, "failed to store preview, dropping remaining previews",
				"index", i,
				"error", err.Error(),
			)
			break
		}
		arts.previewKeys = append(arts.previewKeys, key)
	}
	return arts, nil
}

// render 渲染失败时返回 nil，不影响请求结果
func (s *Service) render(ctx context.Context, pptx []byte) [][]byte {
	if s.renderer == nil {
		return nil
	}
	pngs, err := s.renderer.Render(ctx, pptx)
	if err != nil {
		logger.Warn(ctx, "preview rendering failed, continuing without previews", "error", err.Error())
		return nil
	}
	return pngs
}

func (s *Service) discard(ctx context.Context, prefix string) {
	if err := s.store.DeletePrefix(ctx, prefix); err != nil {
		logger.Warn(ctx, "failed to delete artifacts", "prefix", prefix, "error", err.Error())
	}
}

func (s *Service) result(rec *entity.PresentationRecord) *Result {
	return &Result{
		ID:           rec.ID,
		Presentation: rec.Presentation,
		DownloadURL:  s.locator.Download(rec.ID),
		PreviewURLs:  s.locator.Previews(rec.ID, len(rec.PreviewKeys)),
		Mode:         rec.Mode,
		Tokens:       rec.Tokens,
		Revision:     rec.Revision,
	}
}

func (s *Service) lock(id string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	mu := &s.locks[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

// llmError 模型输出不合法映射为 INVALID_IR，其余为调用失败
func llmError(code apperrors.ErrorCode, message string, err error) error {
	if ve, ok := ir.AsValidationError(err); ok {
		metrics.IRValidationTotal.WithLabelValues("rejected", string(ve.Constraint)).Inc()
		return apperrors.Wrap(err, apperrors.CodeInvalidIR, "model returned an invalid presentation").
			WithDetail(ve.Error())
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(err, apperrors.CodeServiceUnavailable, message)
	}
	return apperrors.Wrap(err, apperrors.CodeLLMCallFailed, message).WithDetail(err.Error())
}

func recordWarnings(warnings []ir.Warning) {
	metrics.IRValidationTotal.WithLabelValues("accepted", "").Inc()
	for _, w := range warnings {
		metrics.IRWarningsTotal.WithLabelValues(w.Kind).Inc()
	}
}

func observe(op, mode string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DeckOperationTotal.WithLabelValues(op, mode, status).Inc()
	metrics.DeckOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
