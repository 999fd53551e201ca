package controller

import (
	"github.com/gofiber/fiber/v2"

	"ambient-stream-be/internal/pkg/logger"
	"ambient-stream-be/internal/pkg/serverutils"
)

// LogTailer is satisfied by *logger.ZapLogger.
type LogTailer interface {
	Tail(level string, limit int) ([]logger.LogEntry, error)
}

type ILogController interface {
	RegisterRoutes(r fiber.Router)
	GetLogs(ctx *fiber.Ctx) error
}

type logController struct {
	app       LogTailer
	stream    LogTailer
	jwtSecret string
}

func NewLogController(app, stream LogTailer, jwtSecret string) ILogController {
	return &logController{app: app, stream: stream, jwtSecret: jwtSecret}
}

func (c *logController) RegisterRoutes(r fiber.Router) {
	r.Get("/logs", serverutils.JwtMiddleware(c.jwtSecret), c.GetLogs)
}

// GetLogs returns the newest entries; ?source=stream reads the session log.
func (c *logController) GetLogs(ctx *fiber.Ctx) error {
	src := c.app
	if ctx.Query("source") == "stream" {
		src = c.stream
	}
	limit := ctx.QueryInt("limit", 100)
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	entries, err := src.Tail(ctx.Query("level"), limit)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("success get logs", entries))
}
