package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"slidedeck-ai/internal/domain/entity"
	"slidedeck-ai/internal/domain/repository"
	"slidedeck-ai/pkg/metrics"
)

const driverName = "redis"

// PresentationRegistry 以 JSON 记录存放演示文稿，键带 TTL
type PresentationRegistry struct {
	client *Client
	prefix string
	ttl    time.Duration
	group  singleflight.Group
}

var _ repository.PresentationRepository = (*PresentationRegistry)(nil)

// NewPresentationRegistry 创建登记表，ttl <= 0 表示不过期
func NewPresentationRegistry(client *Client, prefix string, ttl time.Duration) *PresentationRegistry {
	return &PresentationRegistry{client: client, prefix: prefix, ttl: ttl}
}

func (r *PresentationRegistry) key(id string) string {
	return r.prefix + id
}

// Get 并发读取同一 ID 时合并为一次 Redis 往返
func (r *PresentationRegistry) Get(ctx context.Context, id string) (*entity.PresentationRecord, error) {
	key := r.key(id)
	ctx, span := tracer.Start(ctx, "registry.Get",
		trace.WithAttributes(attribute.String("registry.key", key)))
	defer span.End()

	v, err, shared := r.group.Do(key, func() (interface{}, error) {
		return r.client.rdb.Get(ctx, key).Bytes()
	})
	span.SetAttributes(attribute.Bool("registry.shared", shared))
	if err != nil {
		if IsNil(err) {
			span.SetAttributes(attribute.Bool("registry.hit", false))
			metrics.RegistryLookupTotal.WithLabelValues(driverName, "miss").Inc()
			return nil, repository.ErrPresentationNotFound
		}
		span.RecordError(err)
		metrics.RegistryLookupTotal.WithLabelValues(driverName, "error").Inc()
		return nil, err
	}

	// 共享结果的字节切片只读，解码出的记录各自独立
	var rec entity.PresentationRecord
	if err := json.Unmarshal(v.([]byte), &rec); err != nil {
		span.RecordError(err)
		metrics.RegistryLookupTotal.WithLabelValues(driverName, "error").Inc()
		return nil, fmt.Errorf("failed to decode presentation record: %w", err)
	}
	span.SetAttributes(attribute.Bool("registry.hit", true))
	metrics.RegistryLookupTotal.WithLabelValues(driverName, "hit").Inc()
	return &rec, nil
}

func (r *PresentationRegistry) Save(ctx context.Context, rec *entity.PresentationRecord) error {
	key := r.key(rec.ID)
	ctx, span := tracer.Start(ctx, "registry.Save",
		trace.WithAttributes(
			attribute.String("registry.key", key),
			attribute.Int("registry.revision", rec.Revision),
			attribute.Int64("registry.ttl_ms", r.ttl.Milliseconds()),
		))
	defer span.End()

	data, err := json.Marshal(rec)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal presentation record: %w", err)
	}
	ttl := r.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (r *PresentationRegistry) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "registry.Delete",
		trace.WithAttributes(attribute.String("registry.key", r.key(id))))
	defer span.End()

	if err := r.client.rdb.Del(ctx, r.key(id)).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (r *PresentationRegistry) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}
