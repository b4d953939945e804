//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"slidedeck-ai/internal/application/deck"
	"slidedeck-ai/internal/config"
	"slidedeck-ai/internal/infrastructure/llm"
	"slidedeck-ai/internal/infrastructure/pptx"
	"slidedeck-ai/internal/interfaces/http/router"
	"slidedeck-ai/internal/workflow/chain"
	workflowport "slidedeck-ai/internal/workflow/port"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		DataSet,
		EngineSet,
		RouterSet,
	)
	return nil, nil, nil
}

// DataSet 登记表、产物存储与 Redis
var DataSet = wire.NewSet(
	ProvideRedisClient,
	ProvidePresentationRegistry,
	ProvideArtifactStore,
	ProvideRateLimiter,
)

// EngineSet 生成链、文档构建与预览渲染
var EngineSet = wire.NewSet(
	llm.NewEinoFactory,
	wire.Bind(new(workflowport.ChatModelFactory), new(*llm.EinoFactory)),
	ProvideDeckChain,
	wire.Bind(new(deck.DeckGenerator), new(*chain.DeckChain)),
	ProvideImageLoader,
	wire.Bind(new(pptx.ImageSource), new(*pptx.ImageLoader)),
	pptx.NewBuilder,
	wire.Bind(new(deck.DocumentBuilder), new(*pptx.Builder)),
	pptx.NewScanner,
	wire.Bind(new(deck.TemplateScanner), new(*pptx.Scanner)),
	ProvidePreviewRenderer,
	ProvideDeckService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvidePresentationHandler,
	ProvideHealthHandler,
	router.New,
)
