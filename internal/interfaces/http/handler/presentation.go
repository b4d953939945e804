// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	stderrors "errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"slidedeck-ai/internal/application/deck"
	"slidedeck-ai/internal/domain/ir"
	"slidedeck-ai/internal/domain/service"
	"slidedeck-ai/internal/interfaces/http/dto"
	"slidedeck-ai/pkg/errors"
)

// multipart 表单字段之外的余量
const formOverhead = 1 << 20

// DeckService 演示文稿应用服务
type DeckService interface {
	Generate(ctx context.Context, cmd deck.GenerateCommand) (*deck.Result, error)
	Refine(ctx context.Context, id, instruction string) (*deck.Result, error)
	Download(ctx context.Context, id string) (*deck.Artifact, error)
	Preview(ctx context.Context, id string, index int) (*deck.Artifact, error)
}

// PresentationHandler 演示文稿处理器
type PresentationHandler struct {
	svc            DeckService
	maxUploadBytes int64
}

// NewPresentationHandler 创建演示文稿处理器
func NewPresentationHandler(svc DeckService, maxUploadBytes int64) *PresentationHandler {
	return &PresentationHandler{svc: svc, maxUploadBytes: maxUploadBytes}
}

// Generate 生成演示文稿
// @Summary 生成演示文稿
// @Description JSON 或 multipart 表单；template/reference 模式需上传 .pptx
// @Tags Presentations
// @Accept json,mpfd
// @Produce json
// @Success 200 {object} dto.PresentationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /api/generate [post]
func (h *PresentationHandler) Generate(c *gin.Context) {
	var (
		cmd deck.GenerateCommand
		err error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		cmd, err = h.bindMultipart(c)
	} else {
		cmd, err = bindJSON(c)
	}
	if err != nil {
		dto.Error(c, err)
		return
	}

	res, err := h.svc.Generate(c.Request.Context(), cmd)
	if err != nil {
		dto.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToGenerateResponse(res))
}

// Refine 修改演示文稿
// @Summary 修改演示文稿
// @Tags Presentations
// @Accept json
// @Produce json
// @Param presentation_id path string true "演示文稿 ID"
// @Success 200 {object} dto.PresentationResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/refine/{presentation_id} [post]
func (h *PresentationHandler) Refine(c *gin.Context) {
	var req dto.RefineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	res, err := h.svc.Refine(c.Request.Context(), c.Param("presentation_id"), req.Instruction)
	if err != nil {
		dto.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToRefineResponse(res))
}

// Download 下载 .pptx
// @Summary 下载演示文稿
// @Tags Presentations
// @Produce application/vnd.openxmlformats-officedocument.presentationml.presentation
// @Param presentation_id path string true "演示文稿 ID"
// @Router /api/download/{presentation_id} [get]
func (h *PresentationHandler) Download(c *gin.Context) {
	art, err := h.svc.Download(c.Request.Context(), c.Param("presentation_id"))
	if err != nil {
		dto.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+art.Filename+`"`)
	c.Data(http.StatusOK, art.ContentType, art.Data)
}

// Preview 单页预览图
// @Summary 预览图
// @Tags Presentations
// @Produce png
// @Param presentation_id path string true "演示文稿 ID"
// @Param slide_index path int true "页序，从 0 开始"
// @Router /api/preview/{presentation_id}/{slide_index} [get]
func (h *PresentationHandler) Preview(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("slide_index"))
	if err != nil || index < 0 {
		dto.BadRequest(c, "slide_index must be a non-negative integer")
		return
	}
	art, err := h.svc.Preview(c.Request.Context(), c.Param("presentation_id"), index)
	if err != nil {
		dto.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, art.ContentType, art.Data)
}

func bindJSON(c *gin.Context) (deck.GenerateCommand, error) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return deck.GenerateCommand{}, invalid("invalid request body: " + err.Error())
	}
	return toCommand(req)
}

func (h *PresentationHandler) bindMultipart(c *gin.Context) (deck.GenerateCommand, error) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+formOverhead)
	}
	var req dto.GenerateRequest
	if err := c.ShouldBind(&req); err != nil {
		return deck.GenerateCommand{}, uploadError(err)
	}
	cmd, err := toCommand(req)
	if err != nil {
		return cmd, err
	}

	fh, err := c.FormFile("file")
	switch {
	case stderrors.Is(err, http.ErrMissingFile):
		return cmd, nil
	case err != nil:
		return cmd, uploadError(err)
	}
	data, err := readUpload(fh)
	if err != nil {
		return cmd, uploadError(err)
	}
	cmd.File = &service.Attachment{Name: fh.Filename, Data: data}
	return cmd, nil
}

func toCommand(req dto.GenerateRequest) (deck.GenerateCommand, error) {
	cmd := deck.GenerateCommand{
		Prompt: req.Prompt,
		Mode:   ir.GenerationMode(strings.TrimSpace(req.GenerationMode)),
	}
	if req.NumSlides != nil {
		// 显式传 0 与越界值同样拒绝
		if *req.NumSlides <= 0 {
			return cmd, invalid("num_slides must be a positive integer")
		}
		cmd.NumSlides = *req.NumSlides
	}
	return cmd, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	// multipart 解析可能不保留错误链，按文本兜底
	if stderrors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
		return errors.New(errors.CodePayloadTooLarge, "uploaded file too large")
	}
	return invalid("invalid form: " + err.Error())
}

func invalid(detail string) error {
	return errors.New(errors.CodeInvalidParam, "invalid parameter").WithDetail(detail)
}
