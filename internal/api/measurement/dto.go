package measurement

import (
	"time"

	"LensFitter/pkg/measurement"
)

// LandmarksRequest carries a landmark sequence produced on the client.
type LandmarksRequest struct {
	Landmarks    [][]float64 `json:"landmarks" validate:"max=2048"`
	Width        int         `json:"width"`
	Height       int         `json:"height"`
	FrameWidthMM float64     `json:"frame_width_mm"`
}

func (r LandmarksRequest) Frame() measurement.FrameContext {
	return measurement.FrameContext{
		WidthPx:      r.Width,
		HeightPx:     r.Height,
		FrameWidthMM: r.FrameWidthMM,
	}
}

type ListRequest struct {
	Limit  int `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset int `query:"offset" validate:"omitempty,min=0"`
}

type RecordResponse struct {
	ID              string                      `json:"id"`
	Measurements    measurement.Measurements    `json:"measurements"`
	FrameDimensions measurement.FrameDimensions `json:"frameDimensions"`
	FrameWidthMM    float64                     `json:"frameWidthMm"`
	Landmarks       [][3]float64                `json:"landmarks,omitempty"`
	PhotoURL        string                      `json:"photoUrl,omitempty"`
	CreatedAt       time.Time                   `json:"createdAt"`
}

type ListResponse struct {
	Measurements []RecordResponse `json:"measurements"`
	Total        int              `json:"total"`
	Limit        int              `json:"limit"`
	Offset       int              `json:"offset"`
}

type HealthResponse struct {
	Message string `json:"message"`
}

// SocketError is sent in place of a result when one websocket request fails.
type SocketError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
