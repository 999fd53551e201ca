package mapper

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"ambient-stream-be/internal/entity"
	"ambient-stream-be/internal/model"
	"ambient-stream-be/pkg/generator"
	"ambient-stream-be/pkg/weather"
)

type PresetMapper struct{}

func NewPresetMapper() *PresetMapper {
	return &PresetMapper{}
}

func (m *PresetMapper) ToEntity(p *model.Preset) *entity.Preset {
	if p == nil {
		return nil
	}

	var updatedAt *time.Time
	if !p.UpdatedAt.IsZero() {
		t := p.UpdatedAt
		updatedAt = &t
	}

	out := &entity.Preset{
		Id:          p.Id,
		Name:        p.Name,
		Description: p.Description,
		Key:         p.Key,
		Scale:       p.Scale,
		Mode:        p.Mode,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   updatedAt,
	}
	if len(p.Parameters) > 0 {
		var params weather.ParameterSet
		if err := json.Unmarshal(p.Parameters, &params); err == nil {
			out.Parameters = &params
		}
	}
	if len(p.Probabilities) > 0 {
		var probs generator.Probabilities
		if err := json.Unmarshal(p.Probabilities, &probs); err == nil {
			out.Probabilities = &probs
		}
	}
	return out
}

func (m *PresetMapper) ToModel(p *entity.Preset) *model.Preset {
	if p == nil {
		return nil
	}

	var updatedAt time.Time
	if p.UpdatedAt != nil {
		updatedAt = *p.UpdatedAt
	}

	out := &model.Preset{
		Id:          p.Id,
		Name:        p.Name,
		Description: p.Description,
		Key:         p.Key,
		Scale:       p.Scale,
		Mode:        p.Mode,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   updatedAt,
	}
	if p.Parameters != nil {
		if raw, err := json.Marshal(p.Parameters); err == nil {
			out.Parameters = datatypes.JSON(raw)
		}
	}
	if p.Probabilities != nil {
		if raw, err := json.Marshal(p.Probabilities); err == nil {
			out.Probabilities = datatypes.JSON(raw)
		}
	}
	return out
}
