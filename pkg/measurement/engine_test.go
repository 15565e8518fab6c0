package measurement

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticFace returns a 478 point MediaPipe-shaped sequence with the anchors placed at
// the positions of the worked example: 640x480 frame, references 0.6 of the width apart,
// pupils 0.1 apart and the lower lid 0.02 below the left pupil.
func syntheticFace() []Landmark {
	landmarks := make([]Landmark, 478)
	for i := range landmarks {
		landmarks[i] = Landmark{X: 0.5, Y: 0.5, Z: 0}
	}
	a := MediaPipeAnchors
	landmarks[a.LeftReference] = Landmark{X: 0.2, Y: 0.5}
	landmarks[a.RightReference] = Landmark{X: 0.8, Y: 0.5}
	landmarks[a.LeftPupil] = Landmark{X: 0.45, Y: 0.45}
	landmarks[a.RightPupil] = Landmark{X: 0.55, Y: 0.45}
	landmarks[a.LeftEyeLowerLid] = Landmark{X: 0.45, Y: 0.47}
	landmarks[a.NoseTip] = Landmark{X: 0.5, Y: 0.55, Z: -0.02}
	landmarks[a.Forehead] = Landmark{X: 0.5, Y: 0.2, Z: -0.01}
	landmarks[a.Chin] = Landmark{X: 0.5, Y: 0.9, Z: 0.01}
	return landmarks
}

var exampleFrame = FrameContext{WidthPx: 640, HeightPx: 480, FrameWidthMM: 140}

func TestCompute_WorkedExample(t *testing.T) {
	t.Parallel()

	res, err := Compute(syntheticFace(), exampleFrame)
	require.NoError(t, err)

	assert.InDelta(t, 384.0, res.Diagnostics.ReferencePx, 1e-9)
	assert.InDelta(t, 64.0, res.Diagnostics.PupilPx, 1e-9)
	assert.InDelta(t, 140.0/384.0, res.Diagnostics.MMPerPixel, 1e-12)
	assert.InDelta(t, 23.3333, res.Measurements.PD, 1e-3)
	assert.InDelta(t, 14.5, res.Measurements.FH, 1e-9)

	wantTilt := math.Abs(math.Atan2(0.02, 0.2) * 180 / math.Pi)
	assert.InDelta(t, wantTilt, res.Measurements.Tilt, 1e-12)
	assert.InDelta(t, 10.0, res.Measurements.Vertex, 1e-12)

	assert.Equal(t, FrameDimensions{Width: 640, Height: 480}, res.FrameDimensions)
	require.Len(t, res.Landmarks, 478)
}

func TestCompute_Deterministic(t *testing.T) {
	t.Parallel()

	face := syntheticFace()
	first, err := Compute(face, exampleFrame)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := Compute(face, exampleFrame)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCompute_ConcurrentCallsAgree(t *testing.T) {
	t.Parallel()

	face := syntheticFace()
	want, err := Compute(face, exampleFrame)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]Measurements, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := Compute(face, exampleFrame)
			if err == nil {
				results[i] = res.Measurements
			}
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want.Measurements, got)
	}
}

func TestCompute_ScaleInvariance(t *testing.T) {
	t.Parallel()

	face := syntheticFace()
	base, err := Compute(face, exampleFrame)
	require.NoError(t, err)

	doubled := exampleFrame
	doubled.FrameWidthMM *= 2
	scaled, err := Compute(face, doubled)
	require.NoError(t, err)

	offset := DefaultConstants().FittingHeightOffsetMM
	assert.Equal(t, base.Measurements.PD*2, scaled.Measurements.PD)
	assert.InDelta(t, (base.Measurements.FH-offset)*2, scaled.Measurements.FH-offset, 1e-9)
	assert.Equal(t, base.Measurements.Tilt, scaled.Measurements.Tilt)
	assert.Equal(t, base.Measurements.Vertex, scaled.Measurements.Vertex)
}

func TestCompute_DepthIgnoredInPlanarDistance(t *testing.T) {
	t.Parallel()

	face := syntheticFace()
	face[MediaPipeAnchors.LeftPupil].Z = 0.4
	face[MediaPipeAnchors.RightPupil].Z = -0.4

	res, err := Compute(face, exampleFrame)
	require.NoError(t, err)
	assert.InDelta(t, 64.0, res.Diagnostics.PupilPx, 1e-9)
}

func TestCompute_AxesDenormalisedIndependently(t *testing.T) {
	t.Parallel()

	face := syntheticFace()
	face[MediaPipeAnchors.LeftPupil] = Landmark{X: 0.45, Y: 0.40}
	face[MediaPipeAnchors.RightPupil] = Landmark{X: 0.55, Y: 0.50}

	res, err := Compute(face, exampleFrame)
	require.NoError(t, err)

	want := math.Sqrt(64*64 + 48*48)
	assert.InDelta(t, want, res.Diagnostics.PupilPx, 1e-9)
}

func TestCompute_TiltClamp(t *testing.T) {
	t.Parallel()

	t.Run("above bound is capped", func(t *testing.T) {
		t.Parallel()
		face := syntheticFace()
		face[MediaPipeAnchors.Forehead].Z = -0.1
		face[MediaPipeAnchors.Chin].Z = 0.1

		res, err := Compute(face, exampleFrame)
		require.NoError(t, err)
		assert.Equal(t, 15.0, res.Measurements.Tilt)
		assert.InDelta(t, 45.0, res.Diagnostics.RawTilt, 1e-9)
	})

	t.Run("sign of depth difference is dropped", func(t *testing.T) {
		t.Parallel()
		face := syntheticFace()
		face[MediaPipeAnchors.Forehead].Z = 0.01
		face[MediaPipeAnchors.Chin].Z = -0.01

		res, err := Compute(face, exampleFrame)
		require.NoError(t, err)
		assert.InDelta(t, math.Atan2(0.02, 0.2)*180/math.Pi, res.Measurements.Tilt, 1e-12)
	})

	t.Run("exactly at bound is unchanged", func(t *testing.T) {
		t.Parallel()
		face := syntheticFace()
		probe, err := Compute(face, exampleFrame)
		require.NoError(t, err)

		c := DefaultConstants()
		c.MaxTiltDeg = probe.Diagnostics.RawTilt
		res, err := New(WithConstants(c)).Compute(face, exampleFrame)
		require.NoError(t, err)
		assert.Equal(t, probe.Diagnostics.RawTilt, res.Measurements.Tilt)
	})
}

func TestCompute_VertexClamp(t *testing.T) {
	t.Parallel()

	t.Run("above bound is capped", func(t *testing.T) {
		t.Parallel()
		face := syntheticFace()
		face[MediaPipeAnchors.NoseTip].Z = -0.5

		res, err := Compute(face, exampleFrame)
		require.NoError(t, err)
		assert.Equal(t, 14.0, res.Measurements.Vertex)
		assert.InDelta(t, 58.0, res.Diagnostics.RawVertex, 1e-9)
	})

	t.Run("exactly at bound is unchanged", func(t *testing.T) {
		t.Parallel()
		face := syntheticFace()
		face[MediaPipeAnchors.NoseTip].Z = -0.0625

		c := DefaultConstants()
		c.VertexOffsetMM = 7.75
		res, err := New(WithConstants(c)).Compute(face, exampleFrame)
		require.NoError(t, err)
		assert.Equal(t, 14.0, res.Diagnostics.RawVertex)
		assert.Equal(t, 14.0, res.Measurements.Vertex)
	})
}

func TestCompute_DegenerateCalibration(t *testing.T) {
	t.Parallel()

	face := syntheticFace()
	face[MediaPipeAnchors.RightReference] = Landmark{X: 0.2, Y: 0.5, Z: 0.3}

	res, err := Compute(face, exampleFrame)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCalibrationFailure))
	assert.False(t, errors.Is(err, ErrMalformedLandmarkSet))
	assert.Equal(t, Result{}, res)
}

func TestCompute_MalformedLandmarkSet(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 200, 468, 473} {
		face := syntheticFace()[:n]
		_, err := Compute(face, exampleFrame)
		require.Error(t, err, "length %d", n)
		assert.True(t, errors.Is(err, ErrMalformedLandmarkSet), "length %d", n)
	}

	_, err := Compute(syntheticFace()[:473], exampleFrame)
	var merr *Error
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, "left_pupil", merr.Field)
	assert.Equal(t, 473, merr.Index)
	assert.Equal(t, 473, merr.Len)

	_, err = Compute(syntheticFace()[:474], exampleFrame)
	assert.NoError(t, err)
}

func TestCompute_NonFiniteAnchor(t *testing.T) {
	t.Parallel()

	face := syntheticFace()
	face[MediaPipeAnchors.Chin].Z = math.NaN()

	_, err := Compute(face, exampleFrame)
	assert.True(t, errors.Is(err, ErrMalformedLandmarkSet))
	assert.Contains(t, err.Error(), "chin")
}

func TestCompute_InvalidParameter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		frame FrameContext
		field string
	}{
		{"zero width", FrameContext{WidthPx: 0, HeightPx: 480, FrameWidthMM: 140}, "frame_width_px"},
		{"negative height", FrameContext{WidthPx: 640, HeightPx: -1, FrameWidthMM: 140}, "frame_height_px"},
		{"zero reference", FrameContext{WidthPx: 640, HeightPx: 480, FrameWidthMM: 0}, "frame_width_mm"},
		{"negative reference", FrameContext{WidthPx: 640, HeightPx: 480, FrameWidthMM: -5}, "frame_width_mm"},
		{"nan reference", FrameContext{WidthPx: 640, HeightPx: 480, FrameWidthMM: math.NaN()}, "frame_width_mm"},
		{"inf reference", FrameContext{WidthPx: 640, HeightPx: 480, FrameWidthMM: math.Inf(1)}, "frame_width_mm"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Compute(syntheticFace(), tt.frame)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidParameter))

			var merr *Error
			require.True(t, errors.As(err, &merr))
			assert.Equal(t, tt.field, merr.Field)
		})
	}
}

func TestCompute_FailureDoesNotAffectNextCall(t *testing.T) {
	t.Parallel()

	_, err := Compute(nil, exampleFrame)
	require.Error(t, err)

	res, err := Compute(syntheticFace(), exampleFrame)
	require.NoError(t, err)
	assert.InDelta(t, 23.3333, res.Measurements.PD, 1e-3)
}

func TestCompute_RemappedAnchors(t *testing.T) {
	t.Parallel()

	anchors := Anchors{
		LeftPupil:       0,
		RightPupil:      1,
		LeftReference:   2,
		RightReference:  3,
		LeftEyeLowerLid: 4,
		NoseTip:         5,
		Forehead:        6,
		Chin:            7,
	}
	require.NoError(t, anchors.Validate())
	assert.Equal(t, 8, anchors.MinLandmarks())

	mp := syntheticFace()
	a := MediaPipeAnchors
	small := []Landmark{
		mp[a.LeftPupil], mp[a.RightPupil], mp[a.LeftReference], mp[a.RightReference],
		mp[a.LeftEyeLowerLid], mp[a.NoseTip], mp[a.Forehead], mp[a.Chin],
	}

	want, err := Compute(mp, exampleFrame)
	require.NoError(t, err)
	got, err := New(WithAnchors(anchors)).Compute(small, exampleFrame)
	require.NoError(t, err)

	assert.Equal(t, want.Measurements, got.Measurements)
	assert.Len(t, got.Landmarks, 8)
}

func TestAnchors_Validate(t *testing.T) {
	t.Parallel()

	a := MediaPipeAnchors
	assert.NoError(t, a.Validate())
	assert.Equal(t, 474, a.MinLandmarks())

	a.Chin = -1
	assert.Error(t, a.Validate())
}

func TestExport_PreservesOrder(t *testing.T) {
	t.Parallel()

	points := [][3]float64{{0.1, 0.2, 0.3}, {0.4, 0.5, -0.6}, {0.7, 0.8, 0.9}}
	assert.Equal(t, points, Export(FromTriples(points)))
}

func TestFromPoints(t *testing.T) {
	t.Parallel()

	landmarks, err := FromPoints([][]float64{{0.1, 0.2, 0.3}, {0.4, 0.5, -0.6}})
	require.NoError(t, err)
	assert.Equal(t, []Landmark{{X: 0.1, Y: 0.2, Z: 0.3}, {X: 0.4, Y: 0.5, Z: -0.6}}, landmarks)

	for _, bad := range [][]float64{{0.1, 0.2}, {0.1, 0.2, 0.3, 0.4}, {}} {
		_, err := FromPoints([][]float64{{0.5, 0.5, 0}, bad})
		require.Error(t, err, "%v", bad)
		assert.True(t, errors.Is(err, ErrMalformedLandmarkSet), "%v", bad)

		var merr *Error
		require.True(t, errors.As(err, &merr))
		assert.Equal(t, 1, merr.Index)
		assert.Equal(t, 2, merr.Len)
	}
}

func TestCompute_TinyReferenceSeparation(t *testing.T) {
	t.Parallel()

	face := syntheticFace()
	// dx*dx underflows to zero at this separation.
	face[MediaPipeAnchors.LeftReference] = Landmark{X: 1e-170, Y: 0.5}
	face[MediaPipeAnchors.RightReference] = Landmark{X: 2e-170, Y: 0.5}

	res, err := Compute(face, exampleFrame)
	require.NoError(t, err)
	assert.Greater(t, res.Diagnostics.ReferencePx, 0.0)
	assert.False(t, math.IsInf(res.Measurements.PD, 0))
}

func TestConstantsFromEnv(t *testing.T) {
	t.Setenv("MEASURE_MAX_TILT_DEG", "20")
	t.Setenv("MEASURE_VERTEX_OFFSET_MM", "7.5")

	c, err := ConstantsFromEnv()
	require.NoError(t, err)

	want := DefaultConstants()
	want.MaxTiltDeg = 20
	want.VertexOffsetMM = 7.5
	assert.Equal(t, want, c)

	t.Setenv("MEASURE_TILT_BASELINE", "abc")
	_, err = ConstantsFromEnv()
	assert.Error(t, err)

	t.Setenv("MEASURE_TILT_BASELINE", "0")
	_, err = ConstantsFromEnv()
	assert.Error(t, err)
}
