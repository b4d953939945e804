// Package memory 提供进程内的演示文稿登记表，Redis 未启用时使用
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"slidedeck-ai/internal/domain/entity"
	"slidedeck-ai/internal/domain/repository"
	"slidedeck-ai/pkg/metrics"
)

const driverName = "memory"

type entry struct {
	data      []byte
	expiresAt time.Time
}

// PresentationRegistry LRU 淘汰加 TTL 过期。记录以 JSON 存放，调用方拿到的都是独立副本。
type PresentationRegistry struct {
	mu    sync.Mutex
	cache *lru.Cache[string, entry]
	ttl   time.Duration
	now   func() time.Time
}

var _ repository.PresentationRepository = (*PresentationRegistry)(nil)

func NewPresentationRegistry(size int, ttl time.Duration) (*PresentationRegistry, error) {
	if size <= 0 {
		size = 512
	}
	cache, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}
	return &PresentationRegistry{cache: cache, ttl: ttl, now: time.Now}, nil
}

func (r *PresentationRegistry) Get(_ context.Context, id string) (*entity.PresentationRecord, error) {
	r.mu.Lock()
	e, ok := r.cache.Get(id)
	if ok && !e.expiresAt.IsZero() && !r.now().Before(e.expiresAt) {
		r.cache.Remove(id)
		ok = false
	}
	r.mu.Unlock()

	if !ok {
		metrics.RegistryLookupTotal.WithLabelValues(driverName, "miss").Inc()
		return nil, repository.ErrPresentationNotFound
	}
	var rec entity.PresentationRecord
	if err := json.Unmarshal(e.data, &rec); err != nil {
		metrics.RegistryLookupTotal.WithLabelValues(driverName, "error").Inc()
		return nil, fmt.Errorf("failed to decode presentation record: %w", err)
	}
	metrics.RegistryLookupTotal.WithLabelValues(driverName, "hit").Inc()
	return &rec, nil
}

func (r *PresentationRegistry) Save(_ context.Context, rec *entity.PresentationRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal presentation record: %w", err)
	}
	e := entry{data: data}
	if r.ttl > 0 {
		e.expiresAt = r.now().Add(r.ttl)
	}
	r.mu.Lock()
	r.cache.Add(rec.ID, e)
	r.mu.Unlock()
	return nil
}

func (r *PresentationRegistry) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	r.cache.Remove(id)
	r.mu.Unlock()
	return nil
}

func (r *PresentationRegistry) Ping(context.Context) error { return nil }
