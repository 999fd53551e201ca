package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v5"
	"github.com/go-playground/validator/v10"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ambient-stream-be/internal/config"
	"ambient-stream-be/internal/pkg/logger"
	"ambient-stream-be/pkg/weather"
)

const (
	weatherModule   = "WEATHER"
	currentCacheKey = "weather:current"
)

var ErrNoWeather = errors.New("no weather sample available")

type IWeatherService interface {
	// Current returns the cached sample, fetching one when the feed is enabled
	// and the cache is cold.
	Current(ctx context.Context) (*weather.Sample, error)
	// Fetch queries the forecast API, bypassing the cache.
	Fetch(ctx context.Context) (*weather.Sample, error)
	// Publish validates a sample, caches it and puts it on the weather topic.
	Publish(ctx context.Context, sample *weather.Sample) error
	// Run polls the forecast API until ctx is done.
	Run(ctx context.Context)
}

type weatherService struct {
	cfg       config.WeatherConfig
	client    *http.Client
	publisher message.Publisher
	cache     *cache.Cache
	validate  *validator.Validate
	logger    logger.ILogger
	tracer    trace.Tracer
	maxTries  uint
}

func NewWeatherService(cfg config.WeatherConfig, publisher message.Publisher, log logger.ILogger) IWeatherService {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &weatherService{
		cfg:       cfg,
		client:    &http.Client{Timeout: 10 * time.Second},
		publisher: publisher,
		cache:     cache.New(ttl, 2*ttl),
		validate:  validator.New(),
		logger:    log,
		tracer:    otel.Tracer("weather-service"),
		maxTries:  4,
	}
}

type forecastResponse struct {
	Current struct {
		Time          string  `json:"time"`
		Temperature2m float64 `json:"temperature_2m"`
		WeatherCode   int     `json:"weather_code"`
	} `json:"current"`
}

func (s *weatherService) Current(ctx context.Context) (*weather.Sample, error) {
	if x, found := s.cache.Get(currentCacheKey); found {
		cp := *x.(*weather.Sample)
		return &cp, nil
	}
	if !s.cfg.Enabled {
		return nil, ErrNoWeather
	}
	sample, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(currentCacheKey, sample)
	cp := *sample
	return &cp, nil
}

func (s *weatherService) Fetch(ctx context.Context) (*weather.Sample, error) {
	ctx, span := s.tracer.Start(ctx, "WeatherService.Fetch", trace.WithAttributes(
		attribute.Float64("weather.latitude", s.cfg.Latitude),
		attribute.Float64("weather.longitude", s.cfg.Longitude),
	))
	defer span.End()

	params := url.Values{}
	params.Add("latitude", strconv.FormatFloat(s.cfg.Latitude, 'f', 4, 64))
	params.Add("longitude", strconv.FormatFloat(s.cfg.Longitude, 'f', 4, 64))
	params.Add("current", "temperature_2m,weather_code")
	endpoint := s.cfg.BaseURL + "/v1/forecast?" + params.Encode()

	attempt := 0
	operation := func() (*forecastResponse, error) {
		attempt++
		return s.get(ctx, endpoint)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(s.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Warn(weatherModule, "Forecast request failed, retrying", map[string]interface{}{
				"attempt": attempt,
				"retry":   next.String(),
				"error":   err.Error(),
			})
		}),
	)
	span.SetAttributes(attribute.Int("weather.attempts", attempt))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch")
		return nil, fmt.Errorf("fetch forecast: %w", err)
	}

	observed, perr := time.Parse("2006-01-02T15:04", res.Current.Time)
	if perr != nil {
		observed = time.Now().UTC()
	}
	sample := &weather.Sample{
		TemperatureC:  res.Current.Temperature2m,
		ConditionCode: res.Current.WeatherCode,
		Location:      s.cfg.Location,
		ObservedAt:    observed,
	}
	if err := s.validate.Struct(sample); err != nil {
		return nil, fmt.Errorf("forecast out of range: %w", err)
	}
	return sample, nil
}

func (s *weatherService) get(ctx context.Context, endpoint string) (*forecastResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("forecast api returned %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(fmt.Errorf("forecast api returned %d: %s", resp.StatusCode, body))
	}

	var out forecastResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, backoff.Permanent(err)
	}
	return &out, nil
}

func (s *weatherService) Publish(ctx context.Context, sample *weather.Sample) error {
	if sample == nil {
		return ErrNoWeather
	}
	if err := s.validate.Struct(sample); err != nil {
		return err
	}
	if sample.ObservedAt.IsZero() {
		sample.ObservedAt = time.Now().UTC()
	}
	cp := *sample
	s.cache.SetDefault(currentCacheKey, &cp)

	payload, err := json.Marshal(sample)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := s.publisher.Publish(s.cfg.Topic, msg); err != nil {
		return err
	}

	s.logger.Info(weatherModule, "Weather sample published", map[string]interface{}{
		"temperature_c": sample.TemperatureC,
		"condition":     string(sample.Condition()),
		"band":          string(sample.Band()),
		"location":      sample.Location,
	})
	return nil
}

func (s *weatherService) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info(weatherModule, "Weather polling disabled", nil)
		return
	}
	interval := s.cfg.PollInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	s.poll(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *weatherService) poll(ctx context.Context) {
	sample, err := s.Fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error(weatherModule, "Weather poll failed", map[string]interface{}{"error": err.Error()})
		}
		return
	}
	if err := s.Publish(ctx, sample); err != nil {
		s.logger.Error(weatherModule, "Failed to publish weather sample", map[string]interface{}{"error": err.Error()})
	}
}
