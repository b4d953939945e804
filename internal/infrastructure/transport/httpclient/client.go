// Package httpclient 通过 HTTP 调用演示文稿生成服务，实现 service.DeckTransport。
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"slidedeck-ai/internal/domain/ir"
	"slidedeck-ai/internal/domain/refs"
	"slidedeck-ai/internal/domain/service"
)

const (
	defaultTimeout          = 180 * time.Second
	defaultMaxResponseBytes = 16 << 20
	pptxContentType         = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

type Options struct {
	BaseURL string
	// Timeout 单次请求超时，生成通常需要一到两分钟
	Timeout          time.Duration
	MaxResponseBytes int64
	HTTPClient       *http.Client
}

// Client 生成服务客户端。不做任何重试。
type Client struct {
	baseURL          string
	locator          refs.Locator
	timeout          time.Duration
	maxResponseBytes int64
	httpClient       *http.Client
}

var _ service.DeckTransport = (*Client)(nil)

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("baseURL required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid baseURL: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limit := opts.MaxResponseBytes
	if limit <= 0 {
		limit = defaultMaxResponseBytes
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Client{
		baseURL:          baseURL,
		locator:          refs.NewLocator(baseURL),
		timeout:          timeout,
		maxResponseBytes: limit,
		httpClient:       hc,
	}, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

// DownloadRef 本地构造下载地址
func (c *Client) DownloadRef(id string) string { return c.locator.Download(id) }

// PreviewRef 本地构造预览地址
func (c *Client) PreviewRef(id string, index int) string { return c.locator.Preview(id, index) }

// Generate 调用 POST /api/generate。带附件时使用 multipart 表单，否则使用 JSON。
func (c *Client) Generate(ctx context.Context, req service.GenerateRequest) (*service.GenerateResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	mode := req.Mode
	if mode == "" {
		mode = ir.DefaultGenerationMode
	}

	var (
		body        []byte
		contentType string
		err         error
	)
	if req.File != nil {
		body, contentType, err = multipartBody(req, mode)
	} else {
		wire := generateRequest{Prompt: req.Prompt, GenerationMode: string(mode)}
		if req.NumSlides > 0 {
			n := req.NumSlides
			wire.NumSlides = &n
		}
		body, err = json.Marshal(wire)
		contentType = "application/json"
	}
	if err != nil {
		return nil, fmt.Errorf("encode generate request: %w", err)
	}

	var resp generateResponse
	if err := c.do(ctx, "generate", http.MethodPost, "/api/generate", contentType, body, &resp); err != nil {
		return nil, err
	}

	p, err := ir.Parse(resp.Presentation)
	if err != nil {
		return nil, fmt.Errorf("generate response: %w", err)
	}
	out := &service.GenerateResult{
		ID:           resp.PresentationID,
		Presentation: p,
		DownloadRef:  c.resolveDownload(resp.PresentationID, resp.DownloadURL),
		PreviewRefs:  c.resolvePreviews(resp.PreviewURLs),
		Mode:         mode,
	}
	if resp.GenerationMode != "" {
		m, err := ir.ParseGenerationMode(resp.GenerationMode)
		if err != nil {
			return nil, fmt.Errorf("generate response: %w", err)
		}
		out.Mode = m
	}
	if len(resp.DesignTokens) > 0 && string(resp.DesignTokens) != "null" {
		var tokens ir.DesignTokens
		if err := json.Unmarshal(resp.DesignTokens, &tokens); err != nil {
			return nil, fmt.Errorf("generate response design_tokens: %w", err)
		}
		out.Tokens = &tokens
	}
	return out, nil
}

// Refine 调用 POST /api/refine/{id}
func (c *Client) Refine(ctx context.Context, id, instruction string) (*service.RefineResult, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: presentation id is required", service.ErrInvalidRequest)
	}
	if strings.TrimSpace(instruction) == "" {
		return nil, fmt.Errorf("%w: instruction is required", service.ErrInvalidRequest)
	}

	body, err := json.Marshal(refineRequest{Instruction: instruction})
	if err != nil {
		return nil, fmt.Errorf("encode refine request: %w", err)
	}
	var resp refineResponse
	if err := c.do(ctx, "refine", http.MethodPost, "/api/refine/"+url.PathEscape(id), "application/json", body, &resp); err != nil {
		return nil, err
	}

	p, err := ir.Parse(resp.Presentation)
	if err != nil {
		return nil, fmt.Errorf("refine response: %w", err)
	}
	rid := resp.PresentationID
	if rid == "" {
		rid = id
	}
	return &service.RefineResult{
		ID:           rid,
		Presentation: p,
		DownloadRef:  c.resolveDownload(rid, resp.DownloadURL),
		PreviewRefs:  c.resolvePreviews(resp.PreviewURLs),
	}, nil
}

// Fetch 解引用下载或预览地址，返回内容与 Content-Type
func (c *Client) Fetch(ctx context.Context, ref string) ([]byte, string, error) {
	target := c.locator.Resolve(ref)
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", err
	}
	c.setHeaders(ctx, req, "", "*/*")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", networkError("fetch", err)
	}
	defer resp.Body.Close()

	// 文档与预览图比 JSON 响应大，放宽到四倍
	raw, err := readBody("fetch", resp, c.maxResponseBytes*4)
	if err != nil {
		return nil, "", err
	}
	return raw, resp.Header.Get("Content-Type"), nil
}

func (c *Client) do(ctx context.Context, op, method, path, contentType string, body []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.setHeaders(ctx, req, contentType, "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return networkError(op, err)
	}
	raw, err := readBody(op, resp, c.maxResponseBytes)
	_ = resp.Body.Close()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ir.ValidationError{Path: "$", Constraint: ir.ConstraintType, Detail: "malformed response body: " + err.Error()}
	}
	return nil
}

// readBody 非 2xx 响应转为 TransportError；成功响应超过 limit 时报错而不是截断
func readBody(op string, resp *http.Response, limit int64) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, networkError(op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if int64(len(raw)) > limit {
			raw = raw[:limit]
		}
		return nil, parseHTTPError(op, resp.StatusCode, raw)
	}
	if int64(len(raw)) > limit {
		return nil, tooLargeError(op, resp.StatusCode, limit)
	}
	return raw, nil
}

func (c *Client) setHeaders(ctx context.Context, req *http.Request, contentType, accept string) {
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-Request-ID", uuid.NewString())
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
}

func (c *Client) resolveDownload(id, serverRef string) string {
	if strings.TrimSpace(serverRef) == "" {
		return c.locator.Download(id)
	}
	return c.locator.Resolve(serverRef)
}

func (c *Client) resolvePreviews(serverRefs []string) []string {
	out := make([]string, 0, len(serverRefs))
	for _, r := range serverRefs {
		out = append(out, c.locator.Resolve(r))
	}
	return out
}

func multipartBody(req service.GenerateRequest, mode ir.GenerationMode) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("prompt", req.Prompt); err != nil {
		return nil, "", err
	}
	if req.NumSlides > 0 {
		if err := w.WriteField("num_slides", strconv.Itoa(req.NumSlides)); err != nil {
			return nil, "", err
		}
	}
	if err := w.WriteField("generation_mode", string(mode)); err != nil {
		return nil, "", err
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, req.File.Name))
	h.Set("Content-Type", pptxContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.File.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
