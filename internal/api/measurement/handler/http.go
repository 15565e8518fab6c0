package measurementHandler

import (
	measurementService "LensFitter/internal/api/measurement/service"
	"LensFitter/internal/middleware"
	"LensFitter/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type MeasurementHandler struct {
	log                *logrus.Logger
	measurementService measurementService.MeasurementService
	validator          *validator.Validate
	middleware         middleware.Middleware
	utils              utils.IUtils
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	ms measurementService.MeasurementService,
	utils utils.IUtils) *MeasurementHandler {
	return &MeasurementHandler{
		log:                log,
		measurementService: ms,
		validator:          validate,
		middleware:         middleware,
		utils:              utils,
	}
}

func (h *MeasurementHandler) Start(srv fiber.Router) {
	measurements := srv.Group("/measurements")
	measurements.Post("/process-image", h.middleware.NewRateLimiter, h.HandleProcessImage)
	measurements.Post("/landmarks", h.middleware.NewRateLimiter, h.HandleLandmarks)
	measurements.Get("/ws", h.HandleUpgrade, websocket.New(h.HandleSocket))

	measurements.Post("", h.middleware.NewTokenMiddleware, h.middleware.NewRateLimiter, h.HandleSave)
	measurements.Get("", h.middleware.NewTokenMiddleware, h.HandleList)
	measurements.Get("/:id", h.middleware.NewTokenMiddleware, h.HandleGet)
	measurements.Delete("/:id", h.middleware.NewTokenMiddleware, h.HandleDelete)
}

// StartRoot registers the unversioned routes existing mobile clients post to.
func (h *MeasurementHandler) StartRoot(app fiber.Router) {
	app.Post("/process_image", h.middleware.NewRateLimiter, h.HandleProcessImage)
	app.Post("/api/process_image", h.middleware.NewRateLimiter, h.HandleProcessImage)
}
