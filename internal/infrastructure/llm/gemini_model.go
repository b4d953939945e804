package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	genai "google.golang.org/genai"
)

const geminiTypeName = "Gemini"

var ErrEmptyCandidate = errors.New("gemini: response has no candidates")

// GeminiConfig Gemini ChatModel 配置
type GeminiConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature *float32
	Timeout     time.Duration
	// JSONOutput 要求模型直接输出 application/json
	JSONOutput bool
}

// GeminiChatModel 以 eino BaseChatModel 形式封装 genai 客户端
type GeminiChatModel struct {
	cli         *genai.Client
	model       string
	maxTokens   int
	temperature *float32
	jsonOutput  bool
}

var _ model.BaseChatModel = (*GeminiChatModel)(nil)

func NewGeminiChatModel(ctx context.Context, cfg *GeminiConfig) (*GeminiChatModel, error) {
	if cfg == nil {
		return nil, fmt.Errorf("gemini config is nil")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("gemini model is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	cli, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &GeminiChatModel{
		cli:         cli,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		jsonOutput:  cfg.JSONOutput,
	}, nil
}

func (m *GeminiChatModel) GetType() string { return geminiTypeName }

func (m *GeminiChatModel) IsCallbacksEnabled() bool { return true }

func (m *GeminiChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (outMsg *schema.Message, err error) {
	options := model.GetCommonOptions(&model.Options{
		Model:       &m.model,
		MaxTokens:   &m.maxTokens,
		Temperature: m.temperature,
	}, opts...)

	conf := &model.Config{Model: m.model}
	if options.Model != nil && *options.Model != "" {
		conf.Model = *options.Model
	}
	if options.MaxTokens != nil {
		conf.MaxTokens = *options.MaxTokens
	}
	if options.Temperature != nil {
		conf.Temperature = *options.Temperature
	}

	ctx = callbacks.EnsureRunInfo(ctx, m.GetType(), components.ComponentOfChatModel)
	ctx = callbacks.OnStart(ctx, &model.CallbackInput{Messages: input, Config: conf})
	defer func() {
		if err != nil {
			callbacks.OnError(ctx, err)
		}
	}()

	system, contents := toGeminiContents(input)
	gc := &genai.GenerateContentConfig{SystemInstruction: system}
	if options.Temperature != nil {
		gc.Temperature = options.Temperature
	}
	if conf.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(conf.MaxTokens)
	}
	if m.jsonOutput {
		gc.ResponseMIMEType = "application/json"
	}

	resp, err := m.cli.Models.GenerateContent(ctx, conf.Model, contents, gc)
	if err != nil {
		return nil, err
	}
	outMsg, usage, err := fromGeminiResponse(resp)
	if err != nil {
		return nil, err
	}

	callbacks.OnEnd(ctx, &model.CallbackOutput{Message: outMsg, Config: conf, TokenUsage: usage})
	return outMsg, nil
}

// Stream 不使用流式接口，整段生成后以单元素流返回
func (m *GeminiChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// toGeminiContents system 消息合并为 SystemInstruction，其余按角色转换
func toGeminiContents(input []*schema.Message) (*genai.Content, []*genai.Content) {
	var systemParts []*genai.Part
	contents := make([]*genai.Content, 0, len(input))
	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			systemParts = append(systemParts, &genai.Part{Text: msg.Content})
		case schema.Assistant:
			contents = append(contents, &genai.Content{Role: "model", Parts: []*genai.Part{{Text: msg.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: msg.Content}}})
		}
	}
	var system *genai.Content
	if len(systemParts) > 0 {
		system = &genai.Content{Parts: systemParts}
	}
	return system, contents
}

func fromGeminiResponse(resp *genai.GenerateContentResponse) (*schema.Message, *model.TokenUsage, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, nil, ErrEmptyCandidate
	}
	cand := resp.Candidates[0]
	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}

	out := schema.AssistantMessage(sb.String(), nil)
	out.ResponseMeta = &schema.ResponseMeta{FinishReason: string(cand.FinishReason)}

	var usage *model.TokenUsage
	if u := resp.UsageMetadata; u != nil {
		usage = &model.TokenUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
		out.ResponseMeta.Usage = &schema.TokenUsage{
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
		}
	}
	return out, usage, nil
}
