package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"LensFitter/pkg/measurement"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func faceFile(t *testing.T, wrap bool) string {
	t.Helper()

	points := make([][3]float64, 478)
	for i := range points {
		points[i] = [3]float64{0.5, 0.5, 0}
	}
	points[127] = [3]float64{0.2, 0.5, 0}
	points[356] = [3]float64{0.8, 0.5, 0}
	points[473] = [3]float64{0.45, 0.45, 0}
	points[468] = [3]float64{0.55, 0.45, 0}
	points[27] = [3]float64{0.45, 0.47, 0}
	points[1] = [3]float64{0.5, 0.55, -0.02}

	var body interface{} = points
	if wrap {
		body = map[string]interface{}{
			"landmarks":      points,
			"width":          640,
			"height":         480,
			"frame_width_mm": 140.0,
		}
	}

	raw, err := jsoniter.Marshal(body)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "landmarks.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func TestRun_BareArrayWithFlags(t *testing.T) {
	var out bytes.Buffer
	err := run(faceFile(t, false), 640, 480, 140, false, &out)
	require.NoError(t, err)

	var res measurement.Result
	require.NoError(t, jsoniter.Unmarshal(out.Bytes(), &res))
	assert.InDelta(t, 23.3333, res.Measurements.PD, 1e-3)
	assert.InDelta(t, 10.0, res.Measurements.Vertex, 1e-9)
	assert.Equal(t, 640, res.FrameDimensions.Width)
	assert.Len(t, res.Landmarks, 478)
	assert.NotContains(t, out.String(), "diagnostics")
}

func TestRun_RequestObjectWithDiagnostics(t *testing.T) {
	var out bytes.Buffer
	err := run(faceFile(t, true), 0, 0, 0, true, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), `"diagnostics"`)
	assert.Contains(t, out.String(), `"frameDimensions"`)
}

func TestRun_MissingDimensions(t *testing.T) {
	var out bytes.Buffer
	err := run(faceFile(t, false), 0, 0, 140, false, &out)
	assert.ErrorIs(t, err, measurement.ErrInvalidParameter)
	assert.Empty(t, out.String())
}

func TestRun_RejectsPointWithoutDepth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "landmarks.json")
	require.NoError(t, os.WriteFile(path, []byte(`[[0.1, 0.2, 0.0], [0.3, 0.4]]`), 0o600))

	var out bytes.Buffer
	err := run(path, 640, 480, 140, false, &out)
	assert.ErrorIs(t, err, measurement.ErrMalformedLandmarkSet)
	assert.Empty(t, out.String())
}

func TestDecodeInput_Garbage(t *testing.T) {
	_, err := decodeInput([]byte(`"nope"`))
	assert.Error(t, err)
}
