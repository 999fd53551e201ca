package dto

type ScaleResponse struct {
	Name        string `json:"name"`
	Degrees     []int  `json:"degrees"`
	DefaultMode string `json:"default_mode"`
}

type PitchClassesRequest struct {
	Key   string `query:"key" validate:"required"`
	Scale string `query:"scale" validate:"required"`
	Mode  string `query:"mode"`
	Min   int    `query:"min" validate:"gte=0,lte=127"`
	Max   int    `query:"max" validate:"gte=0,lte=127"`
}

type PitchClassesResponse struct {
	Key          string   `json:"key"`
	Scale        string   `json:"scale"`
	Mode         string   `json:"mode"`
	PitchClasses []int    `json:"pitch_classes"`
	Names        []string `json:"names"`
	Pitches      []int    `json:"pitches,omitempty"`
}
