package implementation

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"ambient-stream-be/internal/entity"
	"ambient-stream-be/internal/mapper"
	"ambient-stream-be/internal/model"
	"ambient-stream-be/internal/repository/contract"
	"ambient-stream-be/internal/repository/specification"
)

type PresetRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PresetMapper
}

func NewPresetRepository(db *gorm.DB) contract.PresetRepository {
	return &PresetRepositoryImpl{
		db:     db,
		mapper: mapper.NewPresetMapper(),
	}
}

func (r *PresetRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *PresetRepositoryImpl) Create(ctx context.Context, preset *entity.Preset) error {
	m := r.mapper.ToModel(preset)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*preset = *r.mapper.ToEntity(m)
	return nil
}

func (r *PresetRepositoryImpl) Update(ctx context.Context, preset *entity.Preset) error {
	m := r.mapper.ToModel(preset)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*preset = *r.mapper.ToEntity(m)
	return nil
}

func (r *PresetRepositoryImpl) FindByName(ctx context.Context, name string) (*entity.Preset, error) {
	var m model.Preset
	query := r.applySpecifications(r.db.WithContext(ctx), specification.ByName{Name: name})
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *PresetRepositoryImpl) FindAll(ctx context.Context, limit, offset int) ([]*entity.Preset, error) {
	var models []*model.Preset
	query := r.applySpecifications(r.db.WithContext(ctx),
		specification.OrderBy{Field: "name"},
		specification.Pagination{Limit: limit, Offset: offset},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*entity.Preset, 0, len(models))
	for _, m := range models {
		out = append(out, r.mapper.ToEntity(m))
	}
	return out, nil
}

func (r *PresetRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Preset{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
