package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"ambient-stream-be/internal/pkg/serverutils"
	"ambient-stream-be/internal/service"
)

// ClientCounter is satisfied by *websocket.Hub.
type ClientCounter interface {
	Count() int
}

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	stream     service.IStreamService
	clients    ClientCounter
	instanceID string
	deps       map[string]bool
	startedAt  time.Time
}

// NewHealthController reports which optional backends were reachable at boot.
func NewHealthController(stream service.IStreamService, clients ClientCounter, instanceID string, deps map[string]bool) IHealthController {
	return &healthController{
		stream:     stream,
		clients:    clients,
		instanceID: instanceID,
		deps:       deps,
		startedAt:  time.Now(),
	}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
}

func (c *healthController) Health(ctx *fiber.Ctx) error {
	clients := 0
	if c.clients != nil {
		clients = c.clients.Count()
	}
	res := fiber.Map{
		"status":       "ok",
		"instance_id":  c.instanceID,
		"uptime":       time.Since(c.startedAt).Round(time.Second).String(),
		"sessions":     len(c.stream.Snapshots()),
		"clients":      clients,
		"dependencies": c.deps,
	}
	if sample := c.stream.LatestWeather(); sample != nil {
		res["weather"] = fiber.Map{"condition": sample.Condition(), "band": sample.Band()}
	}
	return ctx.JSON(serverutils.SuccessResponse("healthy", res))
}
