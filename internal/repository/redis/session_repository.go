package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"ambient-stream-be/pkg/store"
)

const (
	sessionKeyPrefix = "stream:session:"
	// set of ids, pruned lazily when members have expired
	sessionIndexKey = "stream:sessions"
	defaultTTL      = time.Hour
)

// SessionRepository shares the registry between instances.
type SessionRepository struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewSessionRepository(client *goredis.Client, ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &SessionRepository{client: client, ttl: ttl}
}

func (r *SessionRepository) key(id string) string {
	return sessionKeyPrefix + id
}

func (r *SessionRepository) Save(ctx context.Context, rec *store.SessionRecord) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, r.key(rec.ID), val, r.ttl)
		pipe.SAdd(ctx, sessionIndexKey, rec.ID)
		return nil
	})
	return err
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*store.SessionRecord, error) {
	val, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec store.SessionRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *SessionRepository) List(ctx context.Context) ([]store.SessionRecord, error) {
	ids, err := r.client.SMembers(ctx, sessionIndexKey).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []store.SessionRecord{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]store.SessionRecord, 0, len(vals))
	var stale []interface{}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var rec store.SessionRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	if len(stale) > 0 {
		r.client.SRem(ctx, sessionIndexKey, stale...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, r.key(id))
		pipe.SRem(ctx, sessionIndexKey, id)
		return nil
	})
	return err
}

// Close leaves the shared client open; the container owns it.
func (r *SessionRepository) Close() error {
	return nil
}
