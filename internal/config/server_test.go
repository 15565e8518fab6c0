package config

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"LensFitter/database/sqlite"
	measurementApi "LensFitter/internal/api/measurement"
	jwtPkg "LensFitter/pkg/jwt"
	"LensFitter/pkg/landmarker"
	"LensFitter/pkg/measurement"
	redisPkg "LensFitter/pkg/redis"
	jsoniter "github.com/json-iterator/go"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDetector struct {
	calls  int
	frames []landmarker.Frame
}

func (s *stubDetector) Detect(_ context.Context, frame landmarker.Frame) (landmarker.Detection, error) {
	s.calls++
	s.frames = append(s.frames, frame)

	landmarks := make([]measurement.Landmark, 478)
	for i := range landmarks {
		landmarks[i] = measurement.Landmark{X: 0.5, Y: 0.5}
	}
	a := measurement.MediaPipeAnchors
	landmarks[a.LeftReference] = measurement.Landmark{X: 0.2, Y: 0.5}
	landmarks[a.RightReference] = measurement.Landmark{X: 0.8, Y: 0.5}
	landmarks[a.LeftPupil] = measurement.Landmark{X: 0.45, Y: 0.45}
	landmarks[a.RightPupil] = measurement.Landmark{X: 0.55, Y: 0.45}
	landmarks[a.LeftEyeLowerLid] = measurement.Landmark{X: 0.45, Y: 0.47}

	return landmarker.Detection{Found: true, Landmarks: landmarks}, nil
}

func (s *stubDetector) Close() error { return nil }

func newTestServer(t *testing.T, withDB bool) (*Server, *stubDetector) {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv(jwtPkg.AccessTokenSecret, "server-test-secret")

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	detector := &stubDetector{}
	opts := []ServerOption{
		WithFiber(NewFiber(logger)),
		WithLogger(logger),
		WithMiddleware(),
		WithLandmarker(detector, 0),
		WithMeasurementEngine(),
		WithBcryptUtils(),
	}
	if withDB {
		db, err := sqlite.New(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		opts = append(opts, WithDB(db))
	}

	srv, err := NewServer(opts...)
	require.NoError(t, err)
	srv.RegisterHandler()
	srv.Mount()

	return srv, detector
}

func pngUpload(t *testing.T, path, token string) *http.Request {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 320, 240))
	for y := 0; y < 240; y++ {
		for x := 0; x < 320; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var raw bytes.Buffer
	require.NoError(t, png.Encode(&raw, img))

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", "face.png")
	require.NoError(t, err)
	_, err = part.Write(raw.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.WriteField("frame_width_mm", "140"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func jsonRequest(t *testing.T, method, path string, payload interface{}) *http.Request {
	t.Helper()
	raw, err := jsoniter.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func readJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, jsoniter.NewDecoder(resp.Body).Decode(v))
}

func TestNewServer_RequiresDetector(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	_, err := NewServer(WithFiber(NewFiber(logger)), WithLogger(logger))
	assert.Error(t, err)
}

func TestServer_HealthRoutes(t *testing.T) {
	srv, _ := newTestServer(t, false)

	for _, path := range []string{"/", "/health", "/api/health"} {
		resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"), path)

		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-Request-ID", "health-check-1")
		resp, err = srv.App().Test(req)
		require.NoError(t, err)
		assert.Equal(t, "health-check-1", resp.Header.Get("X-Request-ID"), path)
	}
}

func TestServer_HealthReportsDependencies(t *testing.T) {
	srv, _ := newTestServer(t, true)
	srv.redisServer = redisPkg.NewFromClient(goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	}))

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	readJSON(t, resp, &body)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "up", body.Checks["database"])
	assert.Equal(t, "down", body.Checks["redis"])
}

func TestServer_ProcessImage(t *testing.T) {
	srv, detector := newTestServer(t, false)

	resp, err := srv.App().Test(pngUpload(t, "/api/process_image", ""), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res measurement.Result
	readJSON(t, resp, &res)
	assert.Equal(t, measurement.FrameDimensions{Width: 320, Height: 240}, res.FrameDimensions)
	assert.InDelta(t, 23.3333, res.Measurements.PD, 1e-3)
	assert.Len(t, res.Landmarks, 478)

	require.Equal(t, 1, detector.calls)
	assert.Equal(t, 320, detector.frames[0].Width)
	assert.Equal(t, 240, detector.frames[0].Height)
}

func TestServer_WithoutDatabase(t *testing.T) {
	srv, _ := newTestServer(t, false)

	resp, err := srv.App().Test(jsonRequest(t, http.MethodPost, "/api/v1/users", map[string]string{
		"name": "Ana", "email": "ana@example.com", "password": "password123",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	token, _, err := jwtPkg.Sign(map[string]interface{}{"id": "u1", "email": "ana@example.com"}, time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/measurements", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = srv.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_AccountAndHistoryFlow(t *testing.T) {
	srv, _ := newTestServer(t, true)
	app := srv.App()

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/users", map[string]string{
		"name": "Ana", "email": "Ana@Example.com", "password": "password123",
	}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "ana@example.com", "password": "password123",
	}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login struct {
		AccessToken string `json:"accessToken"`
	}
	readJSON(t, resp, &login)
	require.NotEmpty(t, login.AccessToken)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	var me map[string]interface{}
	readJSON(t, resp, &me)
	assert.Equal(t, "ana@example.com", me["email"])

	resp, err = app.Test(pngUpload(t, "/api/v1/measurements", login.AccessToken), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var saved measurementApi.RecordResponse
	readJSON(t, resp, &saved)
	require.NotEmpty(t, saved.ID)
	assert.Equal(t, 140.0, saved.FrameWidthMM)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/measurements", nil)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list measurementApi.ListResponse
	readJSON(t, resp, &list)
	assert.Equal(t, 1, list.Total)
	require.Len(t, list.Measurements, 1)
	assert.Equal(t, saved.ID, list.Measurements[0].ID)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/measurements/"+saved.ID, nil)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var record measurementApi.RecordResponse
	readJSON(t, resp, &record)
	assert.Len(t, record.Landmarks, 478)
}
