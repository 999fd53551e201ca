package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"ambient-stream-be/pkg/store"
)

func TestSessionRepositoryRoundTrip(t *testing.T) {
	repo := NewSessionRepository(time.Minute)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	first := &store.SessionRecord{ID: "a", Status: store.StatusStreaming, Key: "C", CreatedAt: base.Add(time.Second)}
	second := &store.SessionRecord{ID: "b", Status: store.StatusIdle, Key: "A", CreatedAt: base}
	if err := repo.Save(ctx, first); err != nil {
		t.Fatal(err)
	}
	_ = repo.Save(ctx, second)

	first.Key = "mutated"
	got, err := repo.Get(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Key != "C" {
		t.Errorf("stored record aliased caller memory: key=%s", got.Key)
	}

	list, _ := repo.List(ctx)
	if len(list) != 2 || list[0].ID != "b" {
		t.Errorf("list = %+v, want b before a", list)
	}

	_ = repo.Delete(ctx, "a")
	if _, err := repo.Get(ctx, "a"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSessionRepositoryExpiry(t *testing.T) {
	repo := NewSessionRepository(20 * time.Millisecond)
	ctx := context.Background()
	_ = repo.Save(ctx, &store.SessionRecord{ID: "x"})
	time.Sleep(40 * time.Millisecond)
	if _, err := repo.Get(ctx, "x"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected expired record, got %v", err)
	}
}
