package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"ambient-stream-be/pkg/generator"
	"ambient-stream-be/pkg/weather"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Music    MusicConfig
	Weather  WeatherConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	StreamLogFilePath  string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string
	SentryDSN          string
	InstanceID         string
	SessionStore       string // "memory" or "redis"
	SessionTTL         time.Duration
	AutoStart          bool
	SendBuffer         int
}

type DatabaseConfig struct {
	Connection string
}

type MusicConfig struct {
	Key       string
	Scale     string
	Mode      string
	LockKey   bool
	LockScale bool
	LockMode  bool

	Tempo              float64
	Density            float64
	OctaveMin          int
	OctaveMax          int
	InstrumentMin      int
	InstrumentMax      int
	VelocityMin        int
	VelocityMax        int
	DurationMinMs      float64
	DurationMaxMs      float64
	SustainProbability float64

	SilenceProbability      float64
	PedalProbability        float64
	ChordProbability        float64
	CounterpointProbability float64

	ContextChangeProbability float64
	ContextDwell             time.Duration
	SustainRest              time.Duration

	IntervalMinMs float64
	IntervalMaxMs float64
	FixedTickMs   float64
	Channel       int // -1 leaves notes without a channel
}

type WeatherConfig struct {
	Enabled      bool
	BaseURL      string
	Latitude     float64
	Longitude    float64
	Location     string
	PollInterval time.Duration
	CacheTTL     time.Duration
	Topic        string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			StreamLogFilePath:  getEnv("STREAM_LOG_FILE_PATH", "logs/stream.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
			SentryDSN:          getEnv("SENTRY_DSN", ""),
			InstanceID:         getEnv("INSTANCE_ID", hostname()),
			SessionStore:       getEnv("SESSION_STORE", "memory"),
			SessionTTL:         getEnvAsDuration("SESSION_TTL", time.Hour),
			AutoStart:          getEnvAsBool("STREAM_AUTO_START", true),
			SendBuffer:         getEnvAsInt("STREAM_SEND_BUFFER", 256),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Music: MusicConfig{
			Key:       getEnv("MUSIC_KEY", ""),
			Scale:     getEnv("MUSIC_SCALE", ""),
			Mode:      getEnv("MUSIC_MODE", ""),
			LockKey:   getEnvAsBool("MUSIC_LOCK_KEY", false),
			LockScale: getEnvAsBool("MUSIC_LOCK_SCALE", false),
			LockMode:  getEnvAsBool("MUSIC_LOCK_MODE", false),

			Tempo:              getEnvAsFloat("MUSIC_TEMPO", 80),
			Density:            getEnvAsFloat("MUSIC_DENSITY", 0.5),
			OctaveMin:          getEnvAsInt("MUSIC_OCTAVE_MIN", 3),
			OctaveMax:          getEnvAsInt("MUSIC_OCTAVE_MAX", 5),
			InstrumentMin:      getEnvAsInt("MUSIC_INSTRUMENT_MIN", 21),
			InstrumentMax:      getEnvAsInt("MUSIC_INSTRUMENT_MAX", 108),
			VelocityMin:        getEnvAsInt("MUSIC_VELOCITY_MIN", 40),
			VelocityMax:        getEnvAsInt("MUSIC_VELOCITY_MAX", 100),
			DurationMinMs:      getEnvAsFloat("MUSIC_DURATION_MIN_MS", 300),
			DurationMaxMs:      getEnvAsFloat("MUSIC_DURATION_MAX_MS", 2000),
			SustainProbability: getEnvAsFloat("MUSIC_SUSTAIN_PROBABILITY", 0.6),

			SilenceProbability:      getEnvAsFloat("MUSIC_SILENCE_PROBABILITY", 0.2),
			PedalProbability:        getEnvAsFloat("MUSIC_PEDAL_PROBABILITY", 0.1),
			ChordProbability:        getEnvAsFloat("MUSIC_CHORD_PROBABILITY", 0.4),
			CounterpointProbability: getEnvAsFloat("MUSIC_COUNTERPOINT_PROBABILITY", 0),

			ContextChangeProbability: getEnvAsFloat("MUSIC_CONTEXT_PROBABILITY", 0.01),
			ContextDwell:             getEnvAsDuration("MUSIC_CONTEXT_DWELL", 2*time.Minute),
			SustainRest:              getEnvAsDuration("MUSIC_SUSTAIN_REST", 20*time.Second),

			IntervalMinMs: getEnvAsFloat("MUSIC_INTERVAL_MIN_MS", 250),
			IntervalMaxMs: getEnvAsFloat("MUSIC_INTERVAL_MAX_MS", 1200),
			FixedTickMs:   getEnvAsFloat("MUSIC_FIXED_TICK_MS", 0),
			Channel:       getEnvAsInt("MUSIC_MIDI_CHANNEL", -1),
		},
		Weather: WeatherConfig{
			Enabled:      getEnvAsBool("WEATHER_ENABLED", false),
			BaseURL:      getEnv("WEATHER_BASE_URL", "https://api.open-meteo.com"),
			Latitude:     getEnvAsFloat("WEATHER_LATITUDE", 52.52),
			Longitude:    getEnvAsFloat("WEATHER_LONGITUDE", 13.41),
			Location:     getEnv("WEATHER_LOCATION", "Berlin"),
			PollInterval: getEnvAsDuration("WEATHER_POLL_INTERVAL", 15*time.Minute),
			CacheTTL:     getEnvAsDuration("WEATHER_CACHE_TTL", 10*time.Minute),
			Topic:        getEnv("WEATHER_TOPIC", "weather.samples"),
		},
	}
}

// GeneratorConfig maps the environment knobs onto a generator configuration.
func (m MusicConfig) GeneratorConfig() generator.Config {
	cfg := generator.DefaultConfig()
	cfg.Key, cfg.Scale, cfg.Mode = m.Key, m.Scale, m.Mode
	cfg.LockKey, cfg.LockScale, cfg.LockMode = m.LockKey, m.LockScale, m.LockMode

	cfg.Parameters = weather.ParameterSet{
		Tempo:              m.Tempo,
		Density:            m.Density,
		MinOctave:          m.OctaveMin,
		MaxOctave:          m.OctaveMax,
		MinVelocity:        m.VelocityMin,
		MaxVelocity:        m.VelocityMax,
		MinDurationMs:      m.DurationMinMs,
		MaxDurationMs:      m.DurationMaxMs,
		SustainProbability: m.SustainProbability,
	}
	cfg.InstrumentMin, cfg.InstrumentMax = m.InstrumentMin, m.InstrumentMax
	cfg.Probabilities = generator.Probabilities{
		Silence:      m.SilenceProbability,
		Pedal:        m.PedalProbability,
		Chord:        m.ChordProbability,
		Counterpoint: m.CounterpointProbability,
	}
	cfg.ContextChangeProbability = m.ContextChangeProbability
	cfg.ContextMinDwell = m.ContextDwell
	cfg.SustainRestPeriod = m.SustainRest
	cfg.IntervalMinMs, cfg.IntervalMaxMs = m.IntervalMinMs, m.IntervalMaxMs
	cfg.FixedTickMs = m.FixedTickMs
	if m.Channel >= 0 {
		ch := m.Channel
		cfg.Channel = &ch
	}
	return cfg
}

func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "local"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
