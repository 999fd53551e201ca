package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"ambient-stream-be/internal/pkg/serverutils"
	"ambient-stream-be/internal/service"
	"ambient-stream-be/pkg/weather"
)

type IWeatherController interface {
	RegisterRoutes(r fiber.Router)
	GetCurrent(ctx *fiber.Ctx) error
	Publish(ctx *fiber.Ctx) error
}

type weatherController struct {
	service   service.IWeatherService
	jwtSecret string
}

func NewWeatherController(service service.IWeatherService, jwtSecret string) IWeatherController {
	return &weatherController{service: service, jwtSecret: jwtSecret}
}

type weatherResponse struct {
	Sample     *weather.Sample         `json:"sample"`
	Condition  weather.Condition       `json:"condition"`
	Band       weather.TemperatureBand `json:"band"`
	Parameters weather.ParameterSet    `json:"parameters"`
}

func newWeatherResponse(s *weather.Sample) weatherResponse {
	return weatherResponse{
		Sample:     s,
		Condition:  s.Condition(),
		Band:       s.Band(),
		Parameters: weather.DeriveGenerationParameters(s),
	}
}

func (c *weatherController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/weather")
	h.Get("/current", c.GetCurrent)
	h.Post("", serverutils.JwtMiddleware(c.jwtSecret), c.Publish)
}

func (c *weatherController) GetCurrent(ctx *fiber.Ctx) error {
	sample, err := c.service.Current(ctx.UserContext())
	if errors.Is(err, service.ErrNoWeather) {
		return serverutils.NewHTTPError(fiber.StatusNotFound, err.Error())
	}
	if err != nil {
		return serverutils.NewHTTPError(fiber.StatusBadGateway, err.Error())
	}
	return ctx.JSON(serverutils.SuccessResponse("success get current weather", newWeatherResponse(sample)))
}

// Publish injects a sample as if the feed had produced it.
func (c *weatherController) Publish(ctx *fiber.Ctx) error {
	var sample weather.Sample
	if err := ctx.BodyParser(&sample); err != nil {
		return serverutils.NewHTTPError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(sample); err != nil {
		return err
	}
	if err := c.service.Publish(ctx.UserContext(), &sample); err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("weather sample queued", newWeatherResponse(&sample)))
}
