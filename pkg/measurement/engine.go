package measurement

import "math"

type FrameContext struct {
	WidthPx      int     `json:"width"`
	HeightPx     int     `json:"height"`
	FrameWidthMM float64 `json:"frame_width_mm"`
}

type Measurements struct {
	PD     float64 `json:"pd"`
	FH     float64 `json:"fh"`
	Tilt   float64 `json:"tilt"`
	Vertex float64 `json:"vertex"`
}

// Diagnostics holds intermediate values. RawTilt and RawVertex are the values before
// clamping.
type Diagnostics struct {
	MMPerPixel  float64 `json:"mm_per_pixel"`
	ReferencePx float64 `json:"reference_px"`
	PupilPx     float64 `json:"pupil_px"`
	RawTilt     float64 `json:"raw_tilt"`
	RawVertex   float64 `json:"raw_vertex"`
}

type FrameDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Result struct {
	Measurements    Measurements    `json:"measurements"`
	Landmarks       [][3]float64    `json:"landmarks"`
	FrameDimensions FrameDimensions `json:"frameDimensions"`
	Diagnostics     Diagnostics     `json:"-"`
}

type Engine struct {
	anchors   Anchors
	constants Constants
}

type Option func(*Engine)

func WithAnchors(a Anchors) Option {
	return func(e *Engine) {
		e.anchors = a
	}
}

func WithConstants(c Constants) Option {
	return func(e *Engine) {
		e.constants = c
	}
}

// New returns an engine for the MediaPipe topology with the default constants unless
// overridden. An Engine holds no mutable state and is safe for concurrent use.
func New(opts ...Option) *Engine {
	e := &Engine{
		anchors:   MediaPipeAnchors,
		constants: DefaultConstants(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Anchors() Anchors {
	return e.anchors
}

func (e *Engine) Constants() Constants {
	return e.constants
}

var defaultEngine = New()

// Compute runs the default engine.
func Compute(landmarks []Landmark, frame FrameContext) (Result, error) {
	return defaultEngine.Compute(landmarks, frame)
}

// Compute derives PD, fitting height, tilt and vertex distance from one landmark sequence.
// Either all four measurements are returned or an *Error describing the failure.
func (e *Engine) Compute(landmarks []Landmark, frame FrameContext) (Result, error) {
	if err := ValidateFrame(frame); err != nil {
		return Result{}, err
	}
	if err := e.anchors.resolve(len(landmarks)); err != nil {
		return Result{}, err
	}
	if err := e.checkFinite(landmarks); err != nil {
		return Result{}, err
	}

	a := e.anchors
	c := e.constants
	widthPx := float64(frame.WidthPx)
	heightPx := float64(frame.HeightPx)

	refPx := planarDistance(landmarks[a.LeftReference], landmarks[a.RightReference], widthPx, heightPx)
	if refPx == 0 {
		return Result{}, &Error{Kind: ErrCalibrationFailure, Field: "reference_px", Value: refPx}
	}
	mmPerPx := frame.FrameWidthMM / refPx

	leftPupil := landmarks[a.LeftPupil]
	pupilPx := planarDistance(leftPupil, landmarks[a.RightPupil], widthPx, heightPx)
	pd := pupilPx * mmPerPx

	eyeHeightPx := math.Abs(landmarks[a.LeftEyeLowerLid].Y-leftPupil.Y) * heightPx
	fh := eyeHeightPx*mmPerPx + c.FittingHeightOffsetMM

	tiltRad := math.Atan2(landmarks[a.Chin].Z-landmarks[a.Forehead].Z, c.TiltBaseline)
	rawTilt := math.Abs(tiltRad * (180 / math.Pi))

	rawVertex := math.Abs(landmarks[a.NoseTip].Z)*c.VertexScale + c.VertexOffsetMM

	measurements := Measurements{
		PD:     pd,
		FH:     fh,
		Tilt:   math.Min(rawTilt, c.MaxTiltDeg),
		Vertex: math.Min(rawVertex, c.MaxVertexMM),
	}
	if !allFinite(measurements.PD, measurements.FH, measurements.Tilt, measurements.Vertex) {
		return Result{}, &Error{Kind: ErrCalibrationFailure, Field: "mm_per_pixel", Value: mmPerPx}
	}

	return Result{
		Measurements: measurements,
		Landmarks:    Export(landmarks),
		FrameDimensions: FrameDimensions{
			Width:  frame.WidthPx,
			Height: frame.HeightPx,
		},
		Diagnostics: Diagnostics{
			MMPerPixel:  mmPerPx,
			ReferencePx: refPx,
			PupilPx:     pupilPx,
			RawTilt:     rawTilt,
			RawVertex:   rawVertex,
		},
	}, nil
}

// ValidateFrame reports the first non-usable frame parameter. Callers that pay for detection
// use it to fail before the detector runs.
func ValidateFrame(frame FrameContext) error {
	if frame.WidthPx <= 0 {
		return &Error{Kind: ErrInvalidParameter, Field: "frame_width_px", Value: float64(frame.WidthPx)}
	}
	if frame.HeightPx <= 0 {
		return &Error{Kind: ErrInvalidParameter, Field: "frame_height_px", Value: float64(frame.HeightPx)}
	}
	if !(frame.FrameWidthMM > 0) || math.IsInf(frame.FrameWidthMM, 1) {
		return &Error{Kind: ErrInvalidParameter, Field: "frame_width_mm", Value: frame.FrameWidthMM}
	}
	return nil
}

// checkFinite rejects anchors carrying NaN or Inf so they never reach the caller.
func (e *Engine) checkFinite(landmarks []Landmark) error {
	for _, n := range e.anchors.named() {
		l := landmarks[n.index]
		if !allFinite(l.X, l.Y, l.Z) {
			return &Error{Kind: ErrMalformedLandmarkSet, Field: n.name, Index: n.index, Len: len(landmarks), Reason: "non-finite coordinate"}
		}
	}
	return nil
}

func allFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
