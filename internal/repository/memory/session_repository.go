package memory

import (
	"context"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"

	"ambient-stream-be/pkg/store"
)

// SessionRepository is the single-instance session registry.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionRepository{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (r *SessionRepository) Save(_ context.Context, rec *store.SessionRecord) error {
	cp := *rec
	r.cache.Set(rec.ID, &cp, cache.DefaultExpiration)
	return nil
}

func (r *SessionRepository) Get(_ context.Context, id string) (*store.SessionRecord, error) {
	if x, found := r.cache.Get(id); found {
		cp := *x.(*store.SessionRecord)
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (r *SessionRepository) List(_ context.Context) ([]store.SessionRecord, error) {
	items := r.cache.Items()
	out := make([]store.SessionRecord, 0, len(items))
	for _, item := range items {
		out = append(out, *item.Object.(*store.SessionRecord))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *SessionRepository) Delete(_ context.Context, id string) error {
	r.cache.Delete(id)
	return nil
}

func (r *SessionRepository) Close() error {
	r.cache.Flush()
	return nil
}
