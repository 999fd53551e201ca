package controller

import (
	"github.com/gofiber/fiber/v2"

	"ambient-stream-be/internal/dto"
	"ambient-stream-be/internal/pkg/serverutils"
	"ambient-stream-be/internal/service"
)

type IPresetController interface {
	RegisterRoutes(r fiber.Router)
	GetAll(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Create(ctx *fiber.Ctx) error
}

type presetController struct {
	service   service.IPresetService
	jwtSecret string
}

func NewPresetController(service service.IPresetService, jwtSecret string) IPresetController {
	return &presetController{service: service, jwtSecret: jwtSecret}
}

func (c *presetController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/presets")
	h.Get("", c.GetAll)
	h.Get("/:name", c.Show)
	h.Post("", serverutils.JwtMiddleware(c.jwtSecret), c.Create)
}

func (c *presetController) GetAll(ctx *fiber.Ctx) error {
	res, err := c.service.List(ctx.UserContext(), ctx.QueryInt("limit", 50), ctx.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("success get all presets", res))
}

func (c *presetController) Show(ctx *fiber.Ctx) error {
	res, err := c.service.Get(ctx.UserContext(), ctx.Params("name"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("success show preset", res))
}

func (c *presetController) Create(ctx *fiber.Ctx) error {
	var req dto.CreatePresetRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewHTTPError(fiber.StatusBadRequest, err.Error())
	}

	res, err := c.service.Create(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("success create preset", res))
}
