package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-playground/validator/v10"

	"ambient-stream-be/internal/pkg/logger"
	"ambient-stream-be/pkg/events"
	pktNats "ambient-stream-be/pkg/nats"
	"ambient-stream-be/pkg/weather"
)

const consumerModule = "CONSUMER"

// Broadcaster pushes a frame to every connected listener. *websocket.Hub
// implements it.
type Broadcaster interface {
	Broadcast(frameType string, data interface{})
}

// EventSubscriber is satisfied by *nats.Subscriber.
type EventSubscriber interface {
	Subscribe(ctx context.Context, subject, durableName string, handler pktNats.EventHandler) (func(), error)
}

type IConsumerService interface {
	// Consume applies every sample on the weather topic to the live sessions.
	Consume(ctx context.Context) error
	// Relay feeds WEATHER_SAMPLE events from the bus into the weather topic.
	Relay(ctx context.Context, sub EventSubscriber, instanceID string) (func(), error)
}

type consumerService struct {
	subscriber  message.Subscriber
	topicName   string
	stream      IStreamService
	weather     IWeatherService
	broadcaster Broadcaster
	logger      logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	stream IStreamService,
	weatherService IWeatherService,
	broadcaster Broadcaster,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:  subscriber,
		topicName:   topicName,
		stream:      stream,
		weather:     weatherService,
		broadcaster: broadcaster,
		logger:      log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	var sample weather.Sample
	if err := json.Unmarshal(msg.Payload, &sample); err != nil {
		cs.logger.Error(consumerModule, "Failed to unmarshal weather sample", map[string]interface{}{
			"message_id": msg.UUID, "error": err.Error(),
		})
		// a malformed payload never becomes valid
		msg.Ack()
		return
	}

	touched := cs.stream.ApplyWeather(&sample)
	if cs.broadcaster != nil {
		cs.broadcaster.Broadcast("weather", map[string]interface{}{
			"sample":     sample,
			"parameters": weather.DeriveGenerationParameters(&sample),
		})
	}

	cs.logger.Info(consumerModule, "Weather applied", map[string]interface{}{
		"condition": string(sample.Condition()),
		"band":      string(sample.Band()),
		"sessions":  touched,
	})
	msg.Ack()
}

var durableUnsafe = regexp.MustCompile(`[^A-Za-z0-9_-]`)

func (cs *consumerService) Relay(ctx context.Context, sub EventSubscriber, instanceID string) (func(), error) {
	// one durable per instance so every instance sees every sample
	durable := "weather-relay-" + durableUnsafe.ReplaceAllString(instanceID, "_")
	return sub.Subscribe(ctx, pktNats.Subject(events.TypeWeatherSample), durable, func(ctx context.Context, evt events.Event) error {
		sample, err := sampleFromEvent(evt)
		if err != nil {
			cs.logger.Warn(consumerModule, "Dropping malformed weather event", map[string]interface{}{"error": err.Error()})
			return nil
		}
		if err := cs.weather.Publish(ctx, sample); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				cs.logger.Warn(consumerModule, "Dropping out-of-range weather event", map[string]interface{}{"error": err.Error()})
				return nil
			}
			return err
		}
		return nil
	})
}

func sampleFromEvent(evt events.Event) (*weather.Sample, error) {
	raw, err := json.Marshal(evt.Payload())
	if err != nil {
		return nil, err
	}
	var sample weather.Sample
	if err := json.Unmarshal(raw, &sample); err != nil {
		return nil, fmt.Errorf("weather event: %w", err)
	}
	if sample.ObservedAt.IsZero() {
		sample.ObservedAt = evt.Timestamp()
	}
	return &sample, nil
}
