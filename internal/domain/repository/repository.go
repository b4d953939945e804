// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"errors"

	"slidedeck-ai/internal/domain/entity"
)

var (
	ErrPresentationNotFound = errors.New("presentation not found")
	ErrArtifactNotFound     = errors.New("artifact not found")
)

// PresentationRepository 演示文稿登记表。记录按 TTL 过期。
type PresentationRepository interface {
	// Get 不存在或已过期时返回 ErrPresentationNotFound
	Get(ctx context.Context, id string) (*entity.PresentationRecord, error)
	// Save 按 ID 覆盖写入并刷新过期时间
	Save(ctx context.Context, rec *entity.PresentationRecord) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// ArtifactStore 产物（.pptx 与预览图）存储
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get 不存在时返回 ErrArtifactNotFound
	Get(ctx context.Context, key string) ([]byte, string, error)
	// DeletePrefix 删除前缀下的所有对象
	DeletePrefix(ctx context.Context, prefix string) error
	Ping(ctx context.Context) error
}
