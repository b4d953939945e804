package wire

import (
	"context"
	"fmt"

	"slidedeck-ai/internal/application/deck"
	"slidedeck-ai/internal/config"
	"slidedeck-ai/internal/domain/ir"
	"slidedeck-ai/internal/domain/repository"
	"slidedeck-ai/internal/infrastructure/llm"
	"slidedeck-ai/internal/infrastructure/persistence/memory"
	"slidedeck-ai/internal/infrastructure/persistence/redis"
	"slidedeck-ai/internal/infrastructure/pptx"
	"slidedeck-ai/internal/infrastructure/render"
	"slidedeck-ai/internal/infrastructure/storage"
	"slidedeck-ai/internal/interfaces/http/handler"
	"slidedeck-ai/internal/interfaces/http/middleware"
	"slidedeck-ai/internal/workflow/chain"
	"slidedeck-ai/pkg/logger"
)

// ProvideRedisClient 提供 Redis 客户端，未启用时返回 nil
func ProvideRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	logger.Info(ctx, "redis connected", "addr", cfg.Cache.Redis.Addr())
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvidePresentationRegistry 按 registry.driver 选择登记表
func ProvidePresentationRegistry(cfg *config.Config, client *redis.Client) (repository.PresentationRepository, error) {
	rc := cfg.Registry
	switch rc.Driver {
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("registry.driver redis requires cache.redis.enabled")
		}
		return redis.NewPresentationRegistry(client, rc.KeyPrefix, rc.TTL), nil
	case "memory", "":
		return memory.NewPresentationRegistry(rc.MemorySize, rc.TTL)
	default:
		return nil, fmt.Errorf("unsupported registry driver %q", rc.Driver)
	}
}

// ProvideArtifactStore 提供产物存储
func ProvideArtifactStore(ctx context.Context, cfg *config.Config) (repository.ArtifactStore, error) {
	return storage.New(ctx, &cfg.Storage)
}

// ProvideRateLimiter 提供限流器。Redis 未启用时返回 nil 接口，中间件据此放行。
func ProvideRateLimiter(client *redis.Client) middleware.RateLimiter {
	if client == nil {
		return nil
	}
	return redis.NewRateLimiter(client)
}

// ProvideDeckChain 提供生成链
func ProvideDeckChain(cfg *config.Config, factory *llm.EinoFactory) *chain.DeckChain {
	var opts []ir.Option
	if cfg.Generation.StrictTitles {
		opts = append(opts, ir.WithStrictTitles())
	}
	return chain.NewDeckChain(factory, ir.NewNormalizer(opts...))
}

// ProvideImageLoader 提供图片加载器
func ProvideImageLoader(cfg *config.Config) *pptx.ImageLoader {
	return pptx.NewImageLoader(cfg.Render.ImageFetchTimeout, cfg.Render.AssetsDir, cfg.Render.AllowPrivateImageHosts)
}

// ProvidePreviewRenderer 提供预览渲染器，关闭渲染时返回 nil，生成结果不带预览
func ProvidePreviewRenderer(ctx context.Context, cfg *config.Config) deck.PreviewRenderer {
	if !cfg.Render.Enabled {
		logger.Info(ctx, "preview rendering disabled")
		return nil
	}
	return render.NewRenderer(cfg.Render)
}

// ProvideDeckService 提供演示文稿应用服务
func ProvideDeckService(
	cfg *config.Config,
	generator deck.DeckGenerator,
	builder deck.DocumentBuilder,
	renderer deck.PreviewRenderer,
	scanner deck.TemplateScanner,
	registry repository.PresentationRepository,
	store repository.ArtifactStore,
) *deck.Service {
	return deck.NewService(generator, builder, renderer, scanner, registry, store, deck.Options{
		PublicBaseURL: cfg.Server.HTTP.PublicBaseURL,
		Limits:        deck.LimitsFromConfig(cfg.Generation),
	})
}

// ProvidePresentationHandler 提供演示文稿处理器
func ProvidePresentationHandler(cfg *config.Config, svc *deck.Service) *handler.PresentationHandler {
	return handler.NewPresentationHandler(svc, cfg.Generation.MaxUploadBytes)
}

// ProvideHealthHandler 提供健康检查处理器。Redis 只用于限流时为可选依赖。
func ProvideHealthHandler(cfg *config.Config, registry repository.PresentationRepository, store repository.ArtifactStore, client *redis.Client) *handler.HealthHandler {
	deps := []handler.Dependency{
		{Name: "registry", Checker: registry},
		{Name: "storage", Checker: store},
	}
	if client != nil && cfg.Registry.Driver != "redis" {
		deps = append(deps, handler.Dependency{Name: "redis", Checker: client, Optional: true})
	}
	return handler.NewHealthHandler(cfg.App.Version, deps...)
}
