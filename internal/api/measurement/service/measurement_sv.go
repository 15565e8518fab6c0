package measurementService

import (
	"context"

	measurementApi "LensFitter/internal/api/measurement"
	contextPkg "LensFitter/pkg/context"
	"LensFitter/pkg/landmarker"
	"LensFitter/pkg/measurement"
	"LensFitter/pkg/utils"
	"github.com/sirupsen/logrus"
)

func (s *measurementService) ProcessImage(c context.Context, image []byte, frameWidthMM float64) (measurement.Result, error) {
	result, _, err := s.process(c, image, frameWidthMM)
	return result, err
}

// process decodes the upload, detects landmarks and measures them. The decoded image is
// returned for callers that store the photo.
func (s *measurementService) process(c context.Context, image []byte, frameWidthMM float64) (measurement.Result, *utils.DecodedImage, error) {
	requestID := contextPkg.GetRequestID(c)

	decoded, err := s.utils.DecodeImage(image)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to decode uploaded image")
		return measurement.Result{}, nil, err
	}

	frame := measurement.FrameContext{
		WidthPx:      decoded.Width,
		HeightPx:     decoded.Height,
		FrameWidthMM: frameWidthMM,
	}
	if err := measurement.ValidateFrame(frame); err != nil {
		return measurement.Result{}, nil, err
	}

	detection, err := s.detector.Detect(c, landmarker.Frame{
		Data:   decoded.JPEG,
		Width:  decoded.Width,
		Height: decoded.Height,
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Landmark detection failed")
		return measurement.Result{}, nil, err
	}
	if !detection.Found {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"width":      decoded.Width,
			"height":     decoded.Height,
		}).Info("No face detected")
		return measurement.Result{}, nil, measurement.ErrNoFaceDetected
	}

	result, err := s.compute(c, detection.Landmarks, frame)
	if err != nil {
		return measurement.Result{}, nil, err
	}

	return result, decoded, nil
}

func (s *measurementService) FromLandmarks(c context.Context, req measurementApi.LandmarksRequest) (measurement.Result, error) {
	landmarks, err := measurement.FromPoints(req.Landmarks)
	if err != nil {
		return measurement.Result{}, err
	}
	return s.compute(c, landmarks, req.Frame())
}

func (s *measurementService) compute(c context.Context, landmarks []measurement.Landmark, frame measurement.FrameContext) (measurement.Result, error) {
	requestID := contextPkg.GetRequestID(c)

	result, err := s.engine.Compute(landmarks, frame)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"landmarks":  len(landmarks),
			"error":      err.Error(),
		}).Warn("Measurement failed")
		return measurement.Result{}, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id":   requestID,
		"mm_per_px":    result.Diagnostics.MMPerPixel,
		"raw_tilt":     result.Diagnostics.RawTilt,
		"raw_vertex":   result.Diagnostics.RawVertex,
		"tilt_clamped": result.Diagnostics.RawTilt > result.Measurements.Tilt,
	}).Debug("Measurement computed")

	return result, nil
}
