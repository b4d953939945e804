// Package storage 提供产物存储实现：本地磁盘与 S3 兼容对象存储。
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"slidedeck-ai/internal/config"
	"slidedeck-ai/internal/domain/repository"
)

const (
	ContentTypePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	ContentTypePNG  = "image/png"
)

// New 按配置选择存储驱动
func New(ctx context.Context, cfg *config.StorageConfig) (repository.ArtifactStore, error) {
	switch cfg.Driver {
	case "disk", "":
		return NewDiskStore(cfg.Disk.Root)
	case "minio":
		return NewMinIOStore(ctx, cfg.MinIO)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// cleanKey 规范化对象键，拒绝越界路径
func cleanKey(key string) (string, error) {
	k := strings.TrimLeft(strings.TrimSpace(key), "/")
	if k == "" {
		return "", fmt.Errorf("artifact key is required")
	}
	cleaned := path.Clean(k)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid artifact key %q", key)
	}
	return cleaned, nil
}

func contentTypeFor(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".pptx":
		return ContentTypePPTX
	case ".png":
		return ContentTypePNG
	default:
		return "application/octet-stream"
	}
}
