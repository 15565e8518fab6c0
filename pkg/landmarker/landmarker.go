// Package landmarker hides the external face landmark detector behind a single operation.
package landmarker

import (
	"context"
	"errors"
	"os"
	"time"

	"LensFitter/pkg/measurement"
)

var (
	ErrDetectorUnavailable = errors.New("landmark detector unavailable")
	ErrDetectorRejected    = errors.New("landmark detector rejected the frame")
)

// Frame is an encoded RGB image (JPEG) with its pixel dimensions.
type Frame struct {
	Data   []byte
	Width  int
	Height int
}

// Detection is either a found face with its ordered landmark sequence or not-found.
type Detection struct {
	Found     bool
	Landmarks []measurement.Landmark
}

type Detector interface {
	Detect(ctx context.Context, frame Frame) (Detection, error)
	Close() error
}

type Config struct {
	URL              string
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
	CacheTTL         time.Duration
}

func DefaultConfig() Config {
	return Config{
		URL:              "ws://localhost:8000/api/v1/face/landmarks/ws",
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      10 * time.Second,
		WriteTimeout:     5 * time.Second,
		PingInterval:     30 * time.Second,
		CacheTTL:         10 * time.Minute,
	}
}

func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if url := os.Getenv("LANDMARKER_WS_URL"); url != "" {
		cfg.URL = url
	}
	cfg.ReadTimeout = durationFromEnv("LANDMARKER_READ_TIMEOUT", cfg.ReadTimeout)
	cfg.WriteTimeout = durationFromEnv("LANDMARKER_WRITE_TIMEOUT", cfg.WriteTimeout)
	cfg.PingInterval = durationFromEnv("LANDMARKER_PING_INTERVAL", cfg.PingInterval)
	cfg.CacheTTL = durationFromEnv("LANDMARKER_CACHE_TTL", cfg.CacheTTL)

	return cfg
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
