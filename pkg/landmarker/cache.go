package landmarker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"LensFitter/pkg/measurement"
	redisPkg "LensFitter/pkg/redis"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

const cacheKeyPrefix = "landmarks:"

// Cache is the subset of the redis client the detection cache needs.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}

type cachedDetection struct {
	Found     bool         `json:"found"`
	Landmarks [][3]float64 `json:"landmarks,omitempty"`
}

type cachedDetector struct {
	next  Detector
	cache Cache
	ttl   time.Duration
	log   *logrus.Logger
}

// NewCachedDetector remembers detections per frame digest, so the same photo measured with
// another reference width does not go through the detector again. Cache failures fall
// through to the wrapped detector.
func NewCachedDetector(next Detector, cache Cache, ttl time.Duration, log *logrus.Logger) Detector {
	return &cachedDetector{
		next:  next,
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

func CacheKey(data []byte) string {
	sum := sha256.Sum256(data)
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

func (c *cachedDetector) Detect(ctx context.Context, frame Frame) (Detection, error) {
	key := CacheKey(frame.Data)

	raw, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		var entry cachedDetection
		if err := jsoniter.UnmarshalFromString(raw, &entry); err == nil {
			c.log.WithField("key", key).Debug("Landmark detection cache hit")
			detection := Detection{Found: entry.Found}
			if entry.Found {
				detection.Landmarks = measurement.FromTriples(entry.Landmarks)
			}
			return detection, nil
		}
		c.log.WithField("key", key).Warn("Discarding undecodable cached detection")
		if err := c.cache.Delete(ctx, key); err != nil {
			c.log.WithFields(logrus.Fields{
				"key":   key,
				"error": err.Error(),
			}).Warn("Landmark detection cache delete failed")
		}
	case !errors.Is(err, redisPkg.ErrCacheMiss):
		c.log.WithFields(logrus.Fields{
			"key":   key,
			"error": err.Error(),
		}).Warn("Landmark detection cache read failed")
	}

	detection, err := c.next.Detect(ctx, frame)
	if err != nil {
		return Detection{}, err
	}

	encoded, err := jsoniter.MarshalToString(cachedDetection{
		Found:     detection.Found,
		Landmarks: measurement.Export(detection.Landmarks),
	})
	if err == nil {
		if err := c.cache.Set(ctx, key, encoded, c.ttl); err != nil {
			c.log.WithFields(logrus.Fields{
				"key":   key,
				"error": err.Error(),
			}).Warn("Landmark detection cache write failed")
		}
	}

	return detection, nil
}

func (c *cachedDetector) Close() error {
	return c.next.Close()
}
