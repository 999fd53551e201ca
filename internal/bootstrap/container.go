package bootstrap

import (
	"context"
	"log"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"ambient-stream-be/internal/config"
	"ambient-stream-be/internal/controller"
	"ambient-stream-be/internal/handler"
	"ambient-stream-be/internal/pkg/logger"
	"ambient-stream-be/internal/repository/contract"
	"ambient-stream-be/internal/repository/implementation"
	"ambient-stream-be/internal/repository/memory"
	redisRepo "ambient-stream-be/internal/repository/redis"
	"ambient-stream-be/internal/service"
	"ambient-stream-be/internal/websocket"
	pktNats "ambient-stream-be/pkg/nats"
	"ambient-stream-be/pkg/store"
)

type Container struct {
	// Controllers
	HealthController  controller.IHealthController
	TheoryController  controller.ITheoryController
	SessionController controller.ISessionController
	WeatherController controller.IWeatherController
	PresetController  controller.IPresetController
	LogController     controller.ILogController

	// WebSockets
	StreamHandler *handler.StreamHandler
	WebSocketHub  *websocket.Hub

	// Background Services (Exposed for main.go to run)
	StreamService   service.IStreamService
	WeatherService  service.IWeatherService
	ConsumerService service.IConsumerService

	cfg       *config.Config
	sysLogger *logger.ZapLogger
	streamLog *logger.ZapLogger
	pubSub    *gochannel.GoChannel
	natsPub   *pktNats.Publisher
	natsSub   *pktNats.Subscriber
	rdb       *redis.Client
	registry  store.Store
	stopRelay func()
}

// NewContainer wires every component. db may be nil, in which case presets
// live in memory. NATS and Redis are optional: failures are logged and the
// stream runs on local fallbacks.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	streamLog := logger.NewIsolatedLogger(cfg.App.StreamLogFilePath)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 16},
		watermillLogger,
	)

	// 3. Infrastructure
	deps := map[string]bool{"database": db != nil}

	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}
	deps["nats"] = natsPub != nil

	rdb := connectRedis(cfg.App.RedisURL)
	deps["redis"] = rdb != nil

	var registry store.Store
	if cfg.App.SessionStore == "redis" && rdb != nil {
		registry = redisRepo.NewSessionRepository(rdb, cfg.App.SessionTTL)
		log.Printf("[INFO] Session registry: REDIS")
	} else {
		registry = memory.NewSessionRepository(cfg.App.SessionTTL)
		log.Printf("[INFO] Session registry: MEMORY")
	}

	var presetRepo contract.PresetRepository
	if db != nil {
		presetRepo = implementation.NewPresetRepository(db)
	} else {
		presetRepo = memory.NewPresetRepository()
		if n, err := service.SeedPresets(context.Background(), presetRepo); err == nil {
			log.Printf("[INFO] No database configured, %d presets kept in memory", n)
		}
	}

	// 4. Services
	var publisher service.EventPublisher
	if natsPub != nil {
		publisher = natsPub
	}

	presetService := service.NewPresetService(presetRepo, sysLogger)
	streamService := service.NewStreamService(
		cfg.Music.GeneratorConfig(),
		presetService,
		registry,
		publisher,
		cfg.App.InstanceID,
		sysLogger,
		service.WithStreamLogger(streamLog),
	)
	weatherService := service.NewWeatherService(cfg.Weather, pubSub, sysLogger)

	wsHub := websocket.NewHub(rdb, cfg.App.InstanceID, streamLog)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Weather.Topic,
		streamService,
		weatherService,
		wsHub,
		sysLogger,
	)

	streamHandler := handler.NewStreamHandler(streamService, wsHub, handler.StreamHandlerConfig{
		JwtSecret:   cfg.App.JwtSecret,
		AutoStart:   cfg.App.AutoStart,
		SendBuffer:  cfg.App.SendBuffer,
		MidiChannel: cfg.Music.Channel,
	}, streamLog)

	// 5. Controllers
	return &Container{
		HealthController:  controller.NewHealthController(streamService, wsHub, cfg.App.InstanceID, deps),
		TheoryController:  controller.NewTheoryController(),
		SessionController: controller.NewSessionController(streamService, cfg.App.JwtSecret),
		WeatherController: controller.NewWeatherController(weatherService, cfg.App.JwtSecret),
		PresetController:  controller.NewPresetController(presetService, cfg.App.JwtSecret),
		LogController:     controller.NewLogController(sysLogger, streamLog, cfg.App.JwtSecret),

		StreamHandler: streamHandler,
		WebSocketHub:  wsHub,

		StreamService:   streamService,
		WeatherService:  weatherService,
		ConsumerService: consumerService,

		cfg:       cfg,
		sysLogger: sysLogger,
		streamLog: streamLog,
		pubSub:    pubSub,
		natsPub:   natsPub,
		natsSub:   natsSub,
		rdb:       rdb,
		registry:  registry,
	}
}

func connectRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		rdb.Close()
		return nil
	}
	return rdb
}

// Start launches the hub, the weather consumer, the bus relay and the
// weather poller. They stop when ctx is cancelled.
func (c *Container) Start(ctx context.Context) error {
	go c.WebSocketHub.Run(ctx)

	if err := c.ConsumerService.Consume(ctx); err != nil {
		return err
	}

	if c.natsSub != nil {
		stop, err := c.ConsumerService.Relay(ctx, c.natsSub, c.cfg.App.InstanceID)
		if err != nil {
			c.sysLogger.Warn("BOOT", "Weather relay unavailable", map[string]interface{}{"error": err.Error()})
		} else {
			c.stopRelay = stop
		}
	}

	go c.WeatherService.Run(ctx)
	return nil
}

// Shutdown stops every session (each emits its all-notes-off) and releases
// the infrastructure clients.
func (c *Container) Shutdown(ctx context.Context) error {
	err := c.StreamService.Shutdown(ctx)

	if c.stopRelay != nil {
		c.stopRelay()
	}
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if cerr := c.pubSub.Close(); cerr != nil {
		log.Printf("[WARN] Failed to close event bus: %v", cerr)
	}
	if cerr := c.registry.Close(); cerr != nil {
		log.Printf("[WARN] Failed to close session registry: %v", cerr)
	}
	if c.rdb != nil {
		c.rdb.Close()
	}
	_ = c.sysLogger.Sync()
	_ = c.streamLog.Sync()
	return err
}
