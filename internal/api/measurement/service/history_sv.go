package measurementService

import (
	"context"
	"time"

	measurementApi "LensFitter/internal/api/measurement"
	"LensFitter/internal/entity"
	contextPkg "LensFitter/pkg/context"
	"LensFitter/pkg/measurement"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

const defaultPageSize = 20

func (s *measurementService) Save(c context.Context, user entity.UserLoginData, image []byte, frameWidthMM float64) (measurementApi.RecordResponse, error) {
	requestID := contextPkg.GetRequestID(c)

	if s.repo == nil {
		return measurementApi.RecordResponse{}, measurementApi.ErrHistoryUnavailable
	}

	result, decoded, err := s.process(c, image, frameWidthMM)
	if err != nil {
		return measurementApi.RecordResponse{}, err
	}

	landmarks, err := jsoniter.MarshalToString(result.Landmarks)
	if err != nil {
		return measurementApi.RecordResponse{}, err
	}

	now := time.Now().UTC()
	id, err := s.utils.NewULIDFromTimestamp(now)
	if err != nil {
		return measurementApi.RecordResponse{}, err
	}

	var photoKey string
	if s.s3Client != nil {
		photoKey, err = s.s3Client.Upload(c, photoPrefix+"/"+user.ID, decoded.JPEG, "image/jpeg")
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Error("Failed to upload measurement photo")
			return measurementApi.RecordResponse{}, measurementApi.ErrFailedToStorePhoto
		}
	}

	record := entity.Measurement{
		ID:            id,
		UserID:        user.ID,
		PD:            result.Measurements.PD,
		FH:            result.Measurements.FH,
		Tilt:          result.Measurements.Tilt,
		Vertex:        result.Measurements.Vertex,
		FrameWidthMM:  frameWidthMM,
		FrameWidthPx:  result.FrameDimensions.Width,
		FrameHeightPx: result.FrameDimensions.Height,
		Landmarks:     landmarks,
		PhotoKey:      photoKey,
		CreatedAt:     now,
	}

	repo, err := s.repo.NewClient(false)
	if err != nil {
		return measurementApi.RecordResponse{}, err
	}

	if err := repo.Measurements.Create(c, record); err != nil {
		if photoKey != "" {
			if delErr := s.s3Client.DeleteFile(context.WithoutCancel(c), photoKey); delErr != nil {
				s.log.WithFields(logrus.Fields{
					"request_id": requestID,
					"photo_key":  photoKey,
					"error":      delErr.Error(),
				}).Warn("Failed to remove orphaned measurement photo")
			}
		}
		return measurementApi.RecordResponse{}, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id":     requestID,
		"user_id":        user.ID,
		"measurement_id": id,
	}).Info("Measurement saved")

	res := s.toRecordResponse(c, record)
	res.Landmarks = result.Landmarks
	return res, nil
}

func (s *measurementService) List(c context.Context, user entity.UserLoginData, req measurementApi.ListRequest) (measurementApi.ListResponse, error) {
	if s.repo == nil {
		return measurementApi.ListResponse{}, measurementApi.ErrHistoryUnavailable
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	repo, err := s.repo.NewClient(false)
	if err != nil {
		return measurementApi.ListResponse{}, err
	}

	records, err := repo.Measurements.ListByUser(c, user.ID, limit, req.Offset)
	if err != nil {
		return measurementApi.ListResponse{}, err
	}

	total, err := repo.Measurements.CountByUser(c, user.ID)
	if err != nil {
		return measurementApi.ListResponse{}, err
	}

	res := measurementApi.ListResponse{
		Measurements: make([]measurementApi.RecordResponse, 0, len(records)),
		Total:        total,
		Limit:        limit,
		Offset:       req.Offset,
	}
	for _, record := range records {
		res.Measurements = append(res.Measurements, toSummary(record))
	}

	return res, nil
}

func (s *measurementService) Get(c context.Context, user entity.UserLoginData, id string) (measurementApi.RecordResponse, error) {
	record, err := s.owned(c, user, id)
	if err != nil {
		return measurementApi.RecordResponse{}, err
	}

	res := s.toRecordResponse(c, record)

	var landmarks [][3]float64
	if err := jsoniter.UnmarshalFromString(record.Landmarks, &landmarks); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id":     contextPkg.GetRequestID(c),
			"measurement_id": id,
			"error":          err.Error(),
		}).Warn("Stored landmarks are unreadable")
	}
	res.Landmarks = landmarks

	return res, nil
}

func (s *measurementService) Delete(c context.Context, user entity.UserLoginData, id string) error {
	record, err := s.owned(c, user, id)
	if err != nil {
		return err
	}

	repo, err := s.repo.NewClient(false)
	if err != nil {
		return err
	}

	if err := repo.Measurements.Delete(c, id); err != nil {
		return err
	}

	if record.PhotoKey != "" && s.s3Client != nil {
		if err := s.s3Client.DeleteFile(c, record.PhotoKey); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": contextPkg.GetRequestID(c),
				"photo_key":  record.PhotoKey,
				"error":      err.Error(),
			}).Warn("Failed to delete measurement photo")
		}
	}

	return nil
}

func (s *measurementService) owned(c context.Context, user entity.UserLoginData, id string) (entity.Measurement, error) {
	if s.repo == nil {
		return entity.Measurement{}, measurementApi.ErrHistoryUnavailable
	}

	repo, err := s.repo.NewClient(false)
	if err != nil {
		return entity.Measurement{}, err
	}

	record, err := repo.Measurements.GetByID(c, id)
	if err != nil {
		return entity.Measurement{}, err
	}
	if record.UserID != user.ID {
		return entity.Measurement{}, measurementApi.ErrMeasurementNotOwned
	}

	return record, nil
}

func (s *measurementService) toRecordResponse(c context.Context, record entity.Measurement) measurementApi.RecordResponse {
	res := toSummary(record)

	if record.PhotoKey != "" && s.s3Client != nil {
		url, err := s.s3Client.PresignUrl(record.PhotoKey)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": contextPkg.GetRequestID(c),
				"photo_key":  record.PhotoKey,
				"error":      err.Error(),
			}).Warn("Failed to presign measurement photo")
		}
		res.PhotoURL = url
	}

	return res
}

func toSummary(record entity.Measurement) measurementApi.RecordResponse {
	return measurementApi.RecordResponse{
		ID: record.ID,
		Measurements: measurement.Measurements{
			PD:     record.PD,
			FH:     record.FH,
			Tilt:   record.Tilt,
			Vertex: record.Vertex,
		},
		FrameDimensions: measurement.FrameDimensions{
			Width:  record.FrameWidthPx,
			Height: record.FrameHeightPx,
		},
		FrameWidthMM: record.FrameWidthMM,
		CreatedAt:    record.CreatedAt,
	}
}
