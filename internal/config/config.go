// Package config 提供配置加载和管理功能
package config

import (
	"fmt"
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Client        ClientConfig        `yaml:"client" mapstructure:"client"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Registry      RegistryConfig      `yaml:"registry" mapstructure:"registry"`
	Storage       StorageConfig       `yaml:"storage" mapstructure:"storage"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Generation    GenerationConfig    `yaml:"generation" mapstructure:"generation"`
	Render        RenderConfig        `yaml:"render" mapstructure:"render"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	// PublicBaseURL 响应中下载/预览地址的前缀，为空时返回站内相对路径
	PublicBaseURL string `yaml:"public_base_url" mapstructure:"public_base_url"`
}

// Addr 监听地址
func (c HTTPServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ClientConfig 命令行客户端访问生成服务的配置
type ClientConfig struct {
	BaseURL          string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxResponseBytes int64         `yaml:"max_response_bytes" mapstructure:"max_response_bytes"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled" mapstructure:"enabled"`
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// Addr host:port
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RegistryConfig 演示文稿登记表配置
type RegistryConfig struct {
	// Driver redis | memory
	Driver    string        `yaml:"driver" mapstructure:"driver"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
	KeyPrefix string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	// MemorySize memory 驱动的 LRU 容量
	MemorySize int `yaml:"memory_size" mapstructure:"memory_size"`
}

// StorageConfig 产物存储配置
type StorageConfig struct {
	// Driver disk | minio
	Driver string      `yaml:"driver" mapstructure:"driver"`
	Disk   DiskConfig  `yaml:"disk" mapstructure:"disk"`
	MinIO  MinIOConfig `yaml:"minio" mapstructure:"minio"`
}

// DiskConfig 本地磁盘存储
type DiskConfig struct {
	Root string `yaml:"root" mapstructure:"root"`
}

// MinIOConfig S3 兼容对象存储
type MinIOConfig struct {
	Endpoint        string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" mapstructure:"secret_access_key"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	Region          string `yaml:"region" mapstructure:"region"`
	UseSSL          bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
	Prefix          string `yaml:"prefix" mapstructure:"prefix"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider" mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
}

// ProviderConfig LLM 提供商配置
type ProviderConfig struct {
	// Kind openai | gemini，为空时按 openai 兼容协议处理
	Kind        string        `yaml:"kind" mapstructure:"kind"`
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// GenerationConfig 生成请求的输入限制
type GenerationConfig struct {
	PromptMinChars      int   `yaml:"prompt_min_chars" mapstructure:"prompt_min_chars"`
	PromptMaxChars      int   `yaml:"prompt_max_chars" mapstructure:"prompt_max_chars"`
	InstructionMinChars int   `yaml:"instruction_min_chars" mapstructure:"instruction_min_chars"`
	InstructionMaxChars int   `yaml:"instruction_max_chars" mapstructure:"instruction_max_chars"`
	MinSlides           int   `yaml:"min_slides" mapstructure:"min_slides"`
	MaxSlides           int   `yaml:"max_slides" mapstructure:"max_slides"`
	MaxUploadBytes      int64 `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
	// StrictTitles 每页多个标题文本框时直接拒绝
	StrictTitles bool `yaml:"strict_titles" mapstructure:"strict_titles"`
}

// RenderConfig 预览渲染配置
type RenderConfig struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled"`
	SofficePath       string        `yaml:"soffice_path" mapstructure:"soffice_path"`
	PdftoppmPath      string        `yaml:"pdftoppm_path" mapstructure:"pdftoppm_path"`
	DPI               int           `yaml:"dpi" mapstructure:"dpi"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	ImageFetchTimeout time.Duration `yaml:"image_fetch_timeout" mapstructure:"image_fetch_timeout"`
	// AssetsDir 图片元素本地路径的根目录，为空时只允许 http(s) 图片
	AssetsDir string `yaml:"assets_dir" mapstructure:"assets_dir"`
	// AllowPrivateImageHosts 允许图片地址指向内网，仅用于本地开发
	AllowPrivateImageHosts bool `yaml:"allow_private_image_hosts" mapstructure:"allow_private_image_hosts"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure   bool    `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
}

// RateLimitConfig 限流配置，滑动窗口内每个客户端最多 Requests 次
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Requests int           `yaml:"requests" mapstructure:"requests"`
	Window   time.Duration `yaml:"window" mapstructure:"window"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}
