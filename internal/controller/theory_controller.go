package controller

import (
	"github.com/gofiber/fiber/v2"

	"ambient-stream-be/internal/dto"
	"ambient-stream-be/internal/pkg/serverutils"
	"ambient-stream-be/pkg/theory"
)

type ITheoryController interface {
	RegisterRoutes(r fiber.Router)
	GetScales(ctx *fiber.Ctx) error
	GetModes(ctx *fiber.Ctx) error
	GetPitchClasses(ctx *fiber.Ctx) error
}

type theoryController struct{}

func NewTheoryController() ITheoryController {
	return &theoryController{}
}

func (c *theoryController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/theory")
	h.Get("/scales", c.GetScales)
	h.Get("/modes", c.GetModes)
	h.Get("/pitch-classes", c.GetPitchClasses)
}

func (c *theoryController) GetScales(ctx *fiber.Ctx) error {
	scales := theory.Scales()
	res := make([]dto.ScaleResponse, 0, len(scales))
	for _, s := range scales {
		def, _ := theory.Lookup(s)
		res = append(res, dto.ScaleResponse{
			Name:        string(def.Name),
			Degrees:     def.Degrees,
			DefaultMode: string(def.DefaultMode),
		})
	}
	return ctx.JSON(serverutils.SuccessResponse("success get scales", res))
}

func (c *theoryController) GetModes(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("success get modes", theory.Modes()))
}

// GetPitchClasses resolves a key/scale/mode triple. With min and max it also
// lists the absolute pitches in that range.
func (c *theoryController) GetPitchClasses(ctx *fiber.Ctx) error {
	var req dto.PitchClassesRequest
	if err := ctx.QueryParser(&req); err != nil {
		return serverutils.NewHTTPError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	key, err := theory.ParsePitchClass(req.Key)
	if err != nil {
		return serverutils.NewHTTPError(fiber.StatusBadRequest, err.Error())
	}
	scale, err := theory.ParseScale(req.Scale)
	if err != nil {
		return serverutils.NewHTTPError(fiber.StatusBadRequest, err.Error())
	}
	def, _ := theory.Lookup(scale)
	mode := def.DefaultMode
	if req.Mode != "" {
		if mode, err = theory.ParseMode(req.Mode); err != nil {
			return serverutils.NewHTTPError(fiber.StatusBadRequest, err.Error())
		}
	}

	pcs, err := theory.PitchClassesFor(key, scale, mode)
	if err != nil {
		return serverutils.NewHTTPError(fiber.StatusBadRequest, err.Error())
	}

	res := dto.PitchClassesResponse{
		Key:          key.String(),
		Scale:        string(scale),
		Mode:         string(mode),
		PitchClasses: make([]int, len(pcs)),
		Names:        make([]string, len(pcs)),
	}
	for i, pc := range pcs {
		res.PitchClasses[i] = int(pc)
		res.Names[i] = pc.String()
	}
	if req.Max > 0 {
		res.Pitches = theory.AbsolutePitchesInRange(pcs, req.Min, req.Max)
	}
	return ctx.JSON(serverutils.SuccessResponse("success get pitch classes", res))
}
