package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"ambient-stream-be/internal/entity"
	"ambient-stream-be/internal/repository/contract"
)

// PresetRepository backs presets when no database is configured. Entries
// never expire.
type PresetRepository struct {
	cache *cache.Cache
}

func NewPresetRepository() contract.PresetRepository {
	return &PresetRepository{cache: cache.New(cache.NoExpiration, 0)}
}

func presetKey(name string) string {
	return strings.ToLower(name)
}

func (r *PresetRepository) Create(_ context.Context, preset *entity.Preset) error {
	if preset.Id == uuid.Nil {
		preset.Id = uuid.New()
	}
	if preset.CreatedAt.IsZero() {
		preset.CreatedAt = time.Now()
	}
	cp := *preset
	return r.cache.Add(presetKey(preset.Name), &cp, cache.NoExpiration)
}

func (r *PresetRepository) Update(_ context.Context, preset *entity.Preset) error {
	now := time.Now()
	preset.UpdatedAt = &now
	cp := *preset
	r.cache.Set(presetKey(preset.Name), &cp, cache.NoExpiration)
	return nil
}

func (r *PresetRepository) FindByName(_ context.Context, name string) (*entity.Preset, error) {
	x, found := r.cache.Get(presetKey(name))
	if !found {
		return nil, nil
	}
	cp := *x.(*entity.Preset)
	return &cp, nil
}

func (r *PresetRepository) FindAll(_ context.Context, limit, offset int) ([]*entity.Preset, error) {
	items := r.cache.Items()
	all := make([]*entity.Preset, 0, len(items))
	for _, item := range items {
		cp := *item.Object.(*entity.Preset)
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	if offset >= len(all) {
		return []*entity.Preset{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *PresetRepository) Count(_ context.Context) (int64, error) {
	return int64(r.cache.ItemCount()), nil
}
