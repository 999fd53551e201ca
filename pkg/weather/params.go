package weather

import "ambient-stream-be/pkg/theory"

type bandProfile struct {
	tempo              float64
	density            float64
	minOctave          int
	maxOctave          int
	minVelocity        int
	maxVelocity        int
	minDurationMs      float64
	maxDurationMs      float64
	sustainProbability float64
}

var bandProfiles = map[TemperatureBand]bandProfile{
	BandFreezing: {60, 0.3, 2, 4, 30, 70, 900, 2600, 0.7},
	BandCold:     {70, 0.4, 3, 5, 35, 85, 600, 2200, 0.65},
	BandMild:     {80, 0.5, 3, 5, 40, 100, 300, 2000, 0.6},
	BandWarm:     {96, 0.6, 4, 6, 50, 110, 250, 1500, 0.5},
	BandHot:      {112, 0.7, 4, 6, 60, 120, 200, 1200, 0.4},
}

type conditionProfile struct {
	densityDelta  float64
	velocityDelta int
	sustainDelta  float64
	durationScale float64
	scales        []theory.ScaleType
}

var conditionProfiles = map[Condition]conditionProfile{
	ConditionClear:   {0, 0, 0, 1, []theory.ScaleType{theory.ScaleMajor, theory.ScalePentatonicMajor}},
	ConditionCloudy:  {0, 0, 0, 1, []theory.ScaleType{theory.ScaleMajor, theory.ScaleMinor}},
	ConditionFog:     {0, -15, 0.2, 1, []theory.ScaleType{theory.ScaleWholeTone, theory.ScalePentatonicMinor}},
	ConditionDrizzle: {0.05, 0, 0, 1, []theory.ScaleType{theory.ScaleMinor, theory.ScalePentatonicMinor}},
	ConditionRain:    {0.1, 0, 0.1, 1, []theory.ScaleType{theory.ScaleMinor, theory.ScaleHarmonicMinor}},
	ConditionSnow:    {-0.1, 0, 0, 1.25, []theory.ScaleType{theory.ScalePentatonicMajor, theory.ScaleWholeTone}},
	ConditionStorm:   {0.2, 10, 0, 1, []theory.ScaleType{theory.ScaleHarmonicMinor, theory.ScaleBlues}},
}

// DeriveGenerationParameters is pure: the same sample always yields the same set.
// A nil sample yields Defaults.
func DeriveGenerationParameters(sample *Sample) ParameterSet {
	if sample == nil {
		return Defaults()
	}

	band := sample.Band()
	condition := sample.Condition()
	bp := bandProfiles[band]
	cp := conditionProfiles[condition]

	p := ParameterSet{
		Tempo:              bp.tempo,
		Density:            clampFloat(bp.density+cp.densityDelta, 0, 1),
		MinOctave:          bp.minOctave,
		MaxOctave:          bp.maxOctave,
		MinVelocity:        bp.minVelocity,
		MaxVelocity:        clampInt(bp.maxVelocity+cp.velocityDelta, bp.minVelocity+1, 127),
		MinDurationMs:      bp.minDurationMs * cp.durationScale,
		MaxDurationMs:      bp.maxDurationMs * cp.durationScale,
		SustainProbability: clampFloat(bp.sustainProbability+cp.sustainDelta, 0, 1),
		Condition:          condition,
		Band:               band,
	}
	p.PreferredScales = append([]theory.ScaleType(nil), cp.scales...)
	return p
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
