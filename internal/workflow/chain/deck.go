package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"slidedeck-ai/internal/domain/ir"
	llmctx "slidedeck-ai/internal/domain/service"
	wfmodel "slidedeck-ai/internal/workflow/model"
	wfnode "slidedeck-ai/internal/workflow/node"
	workflowport "slidedeck-ai/internal/workflow/port"
	workflowprompt "slidedeck-ai/internal/workflow/prompt"
	"slidedeck-ai/pkg/logger"
)

const rawPreviewRunes = 500

// DeckChain 生成与修改演示文稿的两条链：模板 -> LLM -> 截取 JSON -> IR 归一化。
type DeckChain struct {
	factory    workflowport.ChatModelFactory
	prompts    *workflowprompt.Registry
	normalizer *ir.Normalizer

	generateOnce  sync.Once
	generateChain compose.Runnable[*wfmodel.DeckGenerateInput, *wfmodel.DeckOutput]
	generateErr   error

	refineOnce  sync.Once
	refineChain compose.Runnable[*wfmodel.DeckRefineInput, *wfmodel.DeckOutput]
	refineErr   error
}

func NewDeckChain(factory workflowport.ChatModelFactory, normalizer *ir.Normalizer) *DeckChain {
	if normalizer == nil {
		normalizer = ir.NewNormalizer()
	}
	return &DeckChain{
		factory:    factory,
		prompts:    workflowprompt.NewRegistry(),
		normalizer: normalizer,
	}
}

// Generate 从提示词生成演示文稿
func (c *DeckChain) Generate(ctx context.Context, in *wfmodel.DeckGenerateInput) (*wfmodel.DeckOutput, error) {
	if c == nil || c.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	c.generateOnce.Do(func() {
		c.generateChain, c.generateErr = buildDeckChain(context.Background(), c, "deck_generate", c.generateState)
	})
	if c.generateErr != nil {
		return nil, c.generateErr
	}
	return c.generateChain.Invoke(ctx, in)
}

// Refine 按指令修改演示文稿，返回完整的新版本
func (c *DeckChain) Refine(ctx context.Context, in *wfmodel.DeckRefineInput) (*wfmodel.DeckOutput, error) {
	if c == nil || c.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil || in.Current == nil {
		return nil, fmt.Errorf("input is nil")
	}
	c.refineOnce.Do(func() {
		c.refineChain, c.refineErr = buildDeckChain(context.Background(), c, "deck_refine", c.refineState)
	})
	if c.refineErr != nil {
		return nil, c.refineErr
	}
	return c.refineChain.Invoke(ctx, in)
}

type deckChainState struct {
	Workflow string
	PromptID workflowprompt.PromptID
	Vars     map[string]any

	Provider    string
	Model       string
	Temperature *float32
	MaxTokens   *int

	Messages []*schema.Message
	OutMsg   *schema.Message
}

func (c *DeckChain) generateState(in *wfmodel.DeckGenerateInput) (*deckChainState, error) {
	return &deckChainState{
		Workflow: llmctx.WorkflowDeckGenerate,
		PromptID: workflowprompt.PromptDeckGenerateV1,
		Vars: map[string]any{
			"prompt":       strings.TrimSpace(in.Prompt),
			"num_slides":   in.NumSlides,
			"design_block": wfnode.BuildDesignConstraintsBlock(in.Tokens),
		},
		Provider:    strings.TrimSpace(in.Provider),
		Model:       strings.TrimSpace(in.Model),
		Temperature: in.Temperature,
		MaxTokens:   in.MaxTokens,
	}, nil
}

func (c *DeckChain) refineState(in *wfmodel.DeckRefineInput) (*deckChainState, error) {
	current, err := json.MarshalIndent(in.Current, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode current presentation: %w", err)
	}
	return &deckChainState{
		Workflow: llmctx.WorkflowDeckRefine,
		PromptID: workflowprompt.PromptDeckRefineV1,
		Vars: map[string]any{
			"current_json": string(current),
			"instruction":  strings.TrimSpace(in.Instruction),
		},
		Provider:    strings.TrimSpace(in.Provider),
		Model:       strings.TrimSpace(in.Model),
		Temperature: in.Temperature,
		MaxTokens:   in.MaxTokens,
	}, nil
}

func buildDeckChain[I any](ctx context.Context, c *DeckChain, name string, initFn func(I) (*deckChainState, error)) (compose.Runnable[I, *wfmodel.DeckOutput], error) {
	chain := compose.NewChain[I, *wfmodel.DeckOutput]()

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, in I) (*deckChainState, error) {
			st, err := initFn(in)
			if err != nil {
				return nil, err
			}
			if st.Provider == "" {
				st.Provider = c.factory.DefaultProvider()
			}
			return st, nil
		}),
		compose.WithNodeName(name+".init"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *deckChainState) (*deckChainState, error) {
			tpl, err := c.prompts.ChatTemplate(st.PromptID)
			if err != nil {
				return nil, err
			}
			msgs, err := tpl.Format(ctx, st.Vars)
			if err != nil {
				return nil, fmt.Errorf("format prompt %s: %w", st.PromptID, err)
			}
			st.Messages = msgs
			return st, nil
		}),
		compose.WithNodeName(name+".template"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *deckChainState) (*deckChainState, error) {
			ctx = llmctx.WithWorkflowProvider(ctx, st.Workflow, st.Provider)
			chatModel, err := c.factory.Get(ctx, st.Provider)
			if err != nil {
				return nil, err
			}

			outMsg, err := chatModel.Generate(ctx, st.Messages, buildDeckModelOptions(st, true)...)
			if err != nil && wfnode.IsResponseFormatUnsupportedError(err) {
				logger.Warn(ctx, "llm response_format not supported, fallback to prompt-only",
					"provider", st.Provider,
					"model", st.Model,
					"error", err.Error(),
				)
				outMsg, err = chatModel.Generate(ctx, st.Messages, buildDeckModelOptions(st, false)...)
			}
			if err != nil {
				return nil, err
			}
			if outMsg == nil || strings.TrimSpace(outMsg.Content) == "" {
				return nil, fmt.Errorf("empty llm response")
			}
			st.OutMsg = outMsg
			return st, nil
		}),
		compose.WithNodeName(name+".llm"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *deckChainState) (*wfmodel.DeckOutput, error) {
			raw := wfnode.ExtractJSONObject(st.OutMsg.Content)
			p, warnings, err := c.normalizer.Parse([]byte(raw))
			if err != nil {
				logger.Warn(ctx, "llm output rejected by normalizer",
					"workflow", st.Workflow,
					"error", err.Error(),
					"raw_preview", wfnode.TruncateByRunes(raw, rawPreviewRunes),
				)
				return nil, err
			}

			out := &wfmodel.DeckOutput{
				Presentation: p,
				Warnings:     warnings,
				Usage: wfmodel.LLMUsageMeta{
					Provider:    st.Provider,
					Model:       st.Model,
					GeneratedAt: time.Now().UTC(),
				},
				RawPreview: wfnode.TruncateByRunes(raw, rawPreviewRunes),
			}
			if st.Temperature != nil {
				out.Usage.Temperature = float64(*st.Temperature)
			}
			if st.OutMsg.ResponseMeta != nil && st.OutMsg.ResponseMeta.Usage != nil {
				out.Usage.PromptTokens = st.OutMsg.ResponseMeta.Usage.PromptTokens
				out.Usage.CompletionTokens = st.OutMsg.ResponseMeta.Usage.CompletionTokens
			}
			return out, nil
		}),
		compose.WithNodeName(name+".parse"),
	)

	return chain.Compile(ctx)
}

func buildDeckModelOptions(st *deckChainState, enableJSON bool) []model.Option {
	opts := make([]model.Option, 0, 4)
	if st.Temperature != nil {
		opts = append(opts, model.WithTemperature(*st.Temperature))
	}
	if st.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*st.MaxTokens))
	}
	if st.Model != "" {
		opts = append(opts, model.WithModel(st.Model))
	}
	if enableJSON {
		// IR 元素是按 type 区分的联合类型，这里只要求 JSON 对象，不下发 json_schema
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{"type": "json_object"},
		}))
	}
	return opts
}
