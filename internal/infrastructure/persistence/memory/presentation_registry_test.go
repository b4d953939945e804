package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"slidedeck-ai/internal/domain/entity"
	"slidedeck-ai/internal/domain/ir"
	"slidedeck-ai/internal/domain/repository"
)

func record(t *testing.T, id, title string) *entity.PresentationRecord {
	t.Helper()
	p, err := ir.Parse([]byte(`{"title":"` + title + `","slides":[{"elements":[]}]}`))
	if err != nil {
		t.Fatal(err)
	}
	return &entity.PresentationRecord{ID: id, Presentation: p, Mode: ir.ModeFromScratch, Revision: 1}
}

func TestRegistryReturnsIndependentCopies(t *testing.T) {
	ctx := context.Background()
	reg, err := NewPresentationRegistry(4, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.Save(ctx, record(t, "a", "First")); err != nil {
		t.Fatal(err)
	}

	got, err := reg.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	got.Presentation.Title = "mutated"
	again, _ := reg.Get(ctx, "a")
	if again.Presentation.Title != "First" {
		t.Errorf("stored record was mutated through a returned copy: %q", again.Presentation.Title)
	}

	if _, err := reg.Get(ctx, "missing"); !errors.Is(err, repository.ErrPresentationNotFound) {
		t.Errorf("Get(missing) error = %v", err)
	}
}

func TestRegistryExpiresAndEvicts(t *testing.T) {
	ctx := context.Background()
	reg, err := NewPresentationRegistry(2, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	for _, id := range []string{"a", "b", "c"} {
		if err := reg.Save(ctx, record(t, id, id)); err != nil {
			t.Fatal(err)
		}
	}
	// 容量为 2，最早的 a 被淘汰
	if _, err := reg.Get(ctx, "a"); !errors.Is(err, repository.ErrPresentationNotFound) {
		t.Errorf("evicted record error = %v", err)
	}
	if _, err := reg.Get(ctx, "c"); err != nil {
		t.Errorf("Get(c) error = %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := reg.Get(ctx, "c"); !errors.Is(err, repository.ErrPresentationNotFound) {
		t.Errorf("expired record error = %v", err)
	}

	if err := reg.Delete(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Get(ctx, "b"); !errors.Is(err, repository.ErrPresentationNotFound) {
		t.Errorf("deleted record error = %v", err)
	}
}
