package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"ambient-stream-be/internal/pkg/serverutils"
	"ambient-stream-be/internal/service"
	"ambient-stream-be/internal/session"
	"ambient-stream-be/pkg/store"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	GetAll(ctx *fiber.Ctx) error
	GetLocal(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Start(ctx *fiber.Ctx) error
	Stop(ctx *fiber.Ctx) error
}

type sessionController struct {
	service   service.IStreamService
	jwtSecret string
}

func NewSessionController(service service.IStreamService, jwtSecret string) ISessionController {
	return &sessionController{service: service, jwtSecret: jwtSecret}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/sessions")
	h.Get("", c.GetAll)
	h.Get("/local", c.GetLocal)
	h.Get("/:id", c.Show)
	h.Post("/:id/start", serverutils.JwtMiddleware(c.jwtSecret), c.Start)
	h.Post("/:id/stop", serverutils.JwtMiddleware(c.jwtSecret), c.Stop)
}

// GetAll lists the registry, which spans every instance sharing it.
func (c *sessionController) GetAll(ctx *fiber.Ctx) error {
	res, err := c.service.List(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("success get all sessions", res))
}

func (c *sessionController) GetLocal(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("success get local sessions", c.service.Snapshots()))
}

func (c *sessionController) Show(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewHTTPError(fiber.StatusBadRequest, "invalid session id")
	}

	// live state when the session runs here, registry record otherwise
	if sess, ok := c.service.Get(id); ok {
		return ctx.JSON(serverutils.SuccessResponse("success show session", sess.Snapshot()))
	}
	rec, err := c.service.Record(ctx.UserContext(), id.String())
	if errors.Is(err, store.ErrNotFound) {
		return serverutils.NewHTTPError(fiber.StatusNotFound, "session not found")
	}
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("success show session", rec))
}

func (c *sessionController) Start(ctx *fiber.Ctx) error {
	return c.transition(ctx, c.service.Start)
}

func (c *sessionController) Stop(ctx *fiber.Ctx) error {
	return c.transition(ctx, c.service.Stop)
}

func (c *sessionController) transition(ctx *fiber.Ctx, apply func(uuid.UUID) (session.Snapshot, error)) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewHTTPError(fiber.StatusBadRequest, "invalid session id")
	}
	snap, err := apply(id)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return serverutils.NewHTTPError(fiber.StatusNotFound, err.Error())
		}
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("success", snap))
}
