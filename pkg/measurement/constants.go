package measurement

import (
	"fmt"
	"os"
	"strconv"
)

// Constants are the empirically fitted calibration values of the depth heuristics and the
// fitting height allowance.
type Constants struct {
	FittingHeightOffsetMM float64 `json:"fitting_height_offset_mm"`
	TiltBaseline          float64 `json:"tilt_baseline"`
	MaxTiltDeg            float64 `json:"max_tilt_deg"`
	VertexScale           float64 `json:"vertex_scale"`
	VertexOffsetMM        float64 `json:"vertex_offset_mm"`
	MaxVertexMM           float64 `json:"max_vertex_mm"`
}

func DefaultConstants() Constants {
	return Constants{
		FittingHeightOffsetMM: 11.0,
		TiltBaseline:          0.2,
		MaxTiltDeg:            15.0,
		VertexScale:           100,
		VertexOffsetMM:        8,
		MaxVertexMM:           14.0,
	}
}

var constantEnvKeys = []struct {
	key string
	dst func(*Constants) *float64
}{
	{"MEASURE_FITTING_HEIGHT_OFFSET_MM", func(c *Constants) *float64 { return &c.FittingHeightOffsetMM }},
	{"MEASURE_TILT_BASELINE", func(c *Constants) *float64 { return &c.TiltBaseline }},
	{"MEASURE_MAX_TILT_DEG", func(c *Constants) *float64 { return &c.MaxTiltDeg }},
	{"MEASURE_VERTEX_SCALE", func(c *Constants) *float64 { return &c.VertexScale }},
	{"MEASURE_VERTEX_OFFSET_MM", func(c *Constants) *float64 { return &c.VertexOffsetMM }},
	{"MEASURE_MAX_VERTEX_MM", func(c *Constants) *float64 { return &c.MaxVertexMM }},
}

// ConstantsFromEnv starts from DefaultConstants and overrides every MEASURE_* variable that
// is set.
func ConstantsFromEnv() (Constants, error) {
	c := DefaultConstants()
	for _, k := range constantEnvKeys {
		raw := os.Getenv(k.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Constants{}, fmt.Errorf("parse %s: %w", k.key, err)
		}
		*k.dst(&c) = v
	}

	if c.TiltBaseline <= 0 {
		return Constants{}, fmt.Errorf("MEASURE_TILT_BASELINE must be positive, got %v", c.TiltBaseline)
	}

	return c, nil
}
