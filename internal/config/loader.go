// Package config 提供配置加载功能
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// DefaultDir 默认配置目录
const DefaultDir = "configs"

var envPattern = regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)

// Load 从默认目录加载配置
func Load() (*Config, error) {
	return LoadFrom(DefaultDir)
}

// LoadFrom 加载配置文件
// 按优先级加载：默认配置 -> 环境配置 -> 环境变量
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 1. 加载默认配置，命令行客户端允许没有配置文件
	if err := loadConfigFile(v, filepath.Join(dir, "config.yaml"), true); err != nil {
		return nil, err
	}

	// 2. 加载环境特定配置
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	envFile := filepath.Join(dir, fmt.Sprintf("config.%s.yaml", env))
	if err := loadConfigFile(v, envFile, true); err != nil {
		return nil, err
	}

	// 3. 绑定环境变量 (直接覆盖)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值 (兜底)
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadConfigFile 读取文件，执行环境变量替换，并加载到 viper
func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	reader := strings.NewReader(expandEnv(string(content)))
	if v.ConfigFileUsed() == "" {
		if err := v.ReadConfig(reader); err != nil {
			return fmt.Errorf("failed to read processed config %s: %w", path, err)
		}
		// 手动标记已加载文件，后续文件走合并
		v.SetConfigFile(path)
	} else {
		if err := v.MergeConfig(reader); err != nil {
			return fmt.Errorf("failed to merge processed config %s: %w", path, err)
		}
	}
	return nil
}

// expandEnv 替换字符串中的 ${VAR:default} 占位符
func expandEnv(s string) string {
	// g1: 变量名, g2: 默认值部分（含冒号）, g3: 默认值内容
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envPattern.FindStringSubmatch(match)
		key := submatch[1]
		hasDefault := submatch[2] != ""
		defVal := submatch[3]

		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		if hasDefault {
			return defVal
		}
		// 保留原样以便识别未定义的变量
		return match
	})
}

// MustLoad 加载配置，失败时 panic
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate 检查取值之间的约束
func (c *Config) Validate() error {
	switch c.Registry.Driver {
	case "redis", "memory":
	default:
		return fmt.Errorf("invalid registry.driver %q, expected redis or memory", c.Registry.Driver)
	}
	if c.Registry.Driver == "redis" && !c.Cache.Redis.Enabled {
		return fmt.Errorf("registry.driver redis requires cache.redis.enabled")
	}
	switch c.Storage.Driver {
	case "disk", "minio":
	default:
		return fmt.Errorf("invalid storage.driver %q, expected disk or minio", c.Storage.Driver)
	}
	g := c.Generation
	if g.MinSlides < 1 || g.MaxSlides < g.MinSlides {
		return fmt.Errorf("invalid generation slide range [%d, %d]", g.MinSlides, g.MaxSlides)
	}
	if g.PromptMinChars < 1 || g.PromptMaxChars < g.PromptMinChars {
		return fmt.Errorf("invalid generation prompt range [%d, %d]", g.PromptMinChars, g.PromptMaxChars)
	}
	if g.InstructionMinChars < 1 || g.InstructionMaxChars < g.InstructionMinChars {
		return fmt.Errorf("invalid generation instruction range [%d, %d]", g.InstructionMinChars, g.InstructionMaxChars)
	}
	if c.Security.RateLimit.Enabled && !c.Cache.Redis.Enabled {
		return fmt.Errorf("security.rate_limit requires cache.redis.enabled")
	}
	return nil
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	// 应用默认值
	v.SetDefault("app.name", "slidedeck-ai")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	// HTTP 服务器默认值，生成请求可能持续数分钟
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8000)
	v.SetDefault("server.http.read_timeout", "60s")
	v.SetDefault("server.http.write_timeout", "300s")
	v.SetDefault("server.http.idle_timeout", "120s")
	v.SetDefault("server.http.public_base_url", "")

	// 客户端默认值
	v.SetDefault("client.base_url", "http://localhost:8000")
	v.SetDefault("client.timeout", "180s")
	v.SetDefault("client.max_response_bytes", 16<<20)

	// Redis 默认值
	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 20)
	v.SetDefault("cache.redis.min_idle_conns", 2)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")

	// 登记表默认值
	v.SetDefault("registry.driver", "memory")
	v.SetDefault("registry.ttl", "168h")
	v.SetDefault("registry.key_prefix", "slidedeck:presentation:")
	v.SetDefault("registry.memory_size", 512)

	// 存储默认值
	v.SetDefault("storage.driver", "disk")
	v.SetDefault("storage.disk.root", "data/presentations")
	v.SetDefault("storage.minio.bucket", "slidedeck")
	v.SetDefault("storage.minio.use_ssl", true)

	// LLM 默认值
	v.SetDefault("llm.default_provider", "openai")

	// 输入限制默认值
	v.SetDefault("generation.prompt_min_chars", 3)
	v.SetDefault("generation.prompt_max_chars", 5000)
	v.SetDefault("generation.instruction_min_chars", 3)
	v.SetDefault("generation.instruction_max_chars", 2000)
	v.SetDefault("generation.min_slides", 1)
	v.SetDefault("generation.max_slides", 30)
	v.SetDefault("generation.max_upload_bytes", 20<<20)
	v.SetDefault("generation.strict_titles", false)

	// 预览渲染默认值
	v.SetDefault("render.enabled", true)
	v.SetDefault("render.soffice_path", "soffice")
	v.SetDefault("render.pdftoppm_path", "pdftoppm")
	v.SetDefault("render.dpi", 96)
	v.SetDefault("render.timeout", "120s")
	v.SetDefault("render.image_fetch_timeout", "10s")
	v.SetDefault("render.assets_dir", "")
	v.SetDefault("render.allow_private_image_hosts", false)

	// 可观测性默认值
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.insecure", true)
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")

	// 安全默认值
	v.SetDefault("security.rate_limit.enabled", false)
	v.SetDefault("security.rate_limit.requests", 10)
	v.SetDefault("security.rate_limit.window", "60s")
	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("security.cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "X-Request-ID"})
}
