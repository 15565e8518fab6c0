package measurementService

import (
	"context"

	measurementApi "LensFitter/internal/api/measurement"
	measurementRepository "LensFitter/internal/api/measurement/repository"
	"LensFitter/internal/entity"
	"LensFitter/pkg/landmarker"
	"LensFitter/pkg/measurement"
	"LensFitter/pkg/s3"
	"LensFitter/pkg/utils"
	"github.com/sirupsen/logrus"
)

const photoPrefix = "measurements"

type MeasurementService interface {
	ProcessImage(c context.Context, image []byte, frameWidthMM float64) (measurement.Result, error)
	FromLandmarks(c context.Context, req measurementApi.LandmarksRequest) (measurement.Result, error)
	Save(c context.Context, user entity.UserLoginData, image []byte, frameWidthMM float64) (measurementApi.RecordResponse, error)
	List(c context.Context, user entity.UserLoginData, req measurementApi.ListRequest) (measurementApi.ListResponse, error)
	Get(c context.Context, user entity.UserLoginData, id string) (measurementApi.RecordResponse, error)
	Delete(c context.Context, user entity.UserLoginData, id string) error
}

type measurementService struct {
	log      *logrus.Logger
	repo     measurementRepository.Repository
	detector landmarker.Detector
	engine   *measurement.Engine
	s3Client s3.ItfS3
	utils    utils.IUtils
}

// New wires the measurement flow. repo and s3Client may be nil: without a repository the
// history operations fail with ErrHistoryUnavailable, without storage photos are not kept.
func New(
	log *logrus.Logger,
	repo measurementRepository.Repository,
	detector landmarker.Detector,
	engine *measurement.Engine,
	s3Client s3.ItfS3,
	utils utils.IUtils,
) MeasurementService {
	return &measurementService{
		log:      log,
		repo:     repo,
		detector: detector,
		engine:   engine,
		s3Client: s3Client,
		utils:    utils,
	}
}
