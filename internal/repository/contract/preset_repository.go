package contract

import (
	"context"

	"ambient-stream-be/internal/entity"
)

type PresetRepository interface {
	Create(ctx context.Context, preset *entity.Preset) error
	Update(ctx context.Context, preset *entity.Preset) error
	// FindByName returns nil, nil when no preset matches.
	FindByName(ctx context.Context, name string) (*entity.Preset, error)
	FindAll(ctx context.Context, limit, offset int) ([]*entity.Preset, error)
	Count(ctx context.Context) (int64, error)
}
