package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ambient-stream-be/internal/dto"
	"ambient-stream-be/internal/entity"
	"ambient-stream-be/internal/pkg/logger"
	"ambient-stream-be/internal/pkg/serverutils"
	"ambient-stream-be/internal/repository/contract"
	"ambient-stream-be/pkg/generator"
	"ambient-stream-be/pkg/theory"
)

var ErrPresetNotFound = errors.New("preset not found")

type IPresetService interface {
	List(ctx context.Context, limit, offset int) (*dto.ListPresetsResponse, error)
	Get(ctx context.Context, name string) (*dto.PresetResponse, error)
	Create(ctx context.Context, req *dto.CreatePresetRequest) (*dto.PresetResponse, error)
	// ApplyPreset overlays the named preset on cfg and validates the result.
	ApplyPreset(ctx context.Context, name string, cfg generator.Config) (generator.Config, error)
}

type presetService struct {
	repo   contract.PresetRepository
	logger logger.ILogger
}

func NewPresetService(repo contract.PresetRepository, log logger.ILogger) IPresetService {
	return &presetService{repo: repo, logger: log}
}

func (s *presetService) List(ctx context.Context, limit, offset int) (*dto.ListPresetsResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	presets, err := s.repo.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}

	res := &dto.ListPresetsResponse{Presets: make([]*dto.PresetResponse, 0, len(presets)), Total: total}
	for _, p := range presets {
		res.Presets = append(res.Presets, toPresetResponse(p))
	}
	return res, nil
}

func (s *presetService) Get(ctx context.Context, name string) (*dto.PresetResponse, error) {
	p, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, serverutils.NewHTTPError(404, fmt.Sprintf("preset %q not found", name))
	}
	return toPresetResponse(p), nil
}

func (s *presetService) Create(ctx context.Context, req *dto.CreatePresetRequest) (*dto.PresetResponse, error) {
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}

	preset := &entity.Preset{
		Id:            uuid.New(),
		Name:          req.Name,
		Description:   req.Description,
		Key:           req.Key,
		Scale:         req.Scale,
		Mode:          req.Mode,
		Parameters:    req.Parameters,
		Probabilities: req.Probabilities,
		CreatedAt:     time.Now(),
	}
	if err := checkPreset(preset); err != nil {
		return nil, serverutils.NewHTTPError(400, err.Error())
	}

	existing, err := s.repo.FindByName(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, serverutils.NewHTTPError(409, fmt.Sprintf("preset %q already exists", req.Name))
	}

	if err := s.repo.Create(ctx, preset); err != nil {
		return nil, err
	}
	s.logger.Info("PRESET", "Preset created", map[string]interface{}{
		"name":  preset.Name,
		"key":   preset.Key,
		"scale": preset.Scale,
	})
	return toPresetResponse(preset), nil
}

func (s *presetService) ApplyPreset(ctx context.Context, name string, cfg generator.Config) (generator.Config, error) {
	if name == "" {
		return cfg, nil
	}
	p, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return cfg, err
	}
	if p == nil {
		return cfg, fmt.Errorf("%w: %s", ErrPresetNotFound, name)
	}
	out := p.Apply(cfg)
	if err := out.Validate(); err != nil {
		return cfg, fmt.Errorf("preset %s: %w", name, err)
	}
	return out, nil
}

// checkPreset rejects values that would fail when a session opens with them.
func checkPreset(p *entity.Preset) error {
	var errs []error
	if p.Key != "" {
		if _, err := theory.ParsePitchClass(p.Key); err != nil {
			errs = append(errs, err)
		}
	}
	if p.Scale != "" {
		if _, err := theory.ParseScale(p.Scale); err != nil {
			errs = append(errs, err)
		}
	}
	if p.Mode != "" {
		if _, err := theory.ParseMode(p.Mode); err != nil {
			errs = append(errs, err)
		}
	}
	if p.Parameters != nil || p.Probabilities != nil {
		if err := p.Apply(generator.DefaultConfig()).Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func toPresetResponse(p *entity.Preset) *dto.PresetResponse {
	return &dto.PresetResponse{
		Id:            p.Id,
		Name:          p.Name,
		Description:   p.Description,
		Key:           p.Key,
		Scale:         p.Scale,
		Mode:          p.Mode,
		Parameters:    p.Parameters,
		Probabilities: p.Probabilities,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
