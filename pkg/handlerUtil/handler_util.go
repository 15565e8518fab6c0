package handlerUtil

import (
	"errors"

	"LensFitter/pkg/landmarker"
	"LensFitter/pkg/log"
	"LensFitter/pkg/measurement"
	"LensFitter/pkg/response"
	"LensFitter/pkg/utils"
	"github.com/gofiber/fiber/v2"
	fiberUtils "github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"traceId,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

type mapping struct {
	target  error
	status  int
	code    string
	message string
}

// Failures raised below the domain layer. Messages other than the engine's are fixed
// because the wrapped errors may carry internal addresses.
var mappings = []mapping{
	{measurement.ErrNoFaceDetected, fiber.StatusUnprocessableEntity, "NO_FACE_DETECTED", ""},
	{measurement.ErrMalformedLandmarkSet, fiber.StatusUnprocessableEntity, "MALFORMED_LANDMARKS", ""},
	{measurement.ErrCalibrationFailure, fiber.StatusUnprocessableEntity, "CALIBRATION_FAILURE", ""},
	{measurement.ErrInvalidParameter, fiber.StatusBadRequest, "INVALID_PARAMETER", ""},
	{landmarker.ErrDetectorRejected, fiber.StatusUnprocessableEntity, "IMAGE_REJECTED", "The landmark detector could not process this image"},
	{landmarker.ErrDetectorUnavailable, fiber.StatusServiceUnavailable, "DETECTOR_UNAVAILABLE", "Landmark detection is temporarily unavailable"},
	{utils.ErrNoFile, fiber.StatusBadRequest, "IMAGE_REQUIRED", "Missing image file"},
	{utils.ErrNotAnImage, fiber.StatusBadRequest, "INVALID_FILE_TYPE", "Invalid file type. Only images are allowed."},
	{utils.ErrFileTooLarge, fiber.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "File too large. Maximum size is 5MB."},
	{utils.ErrUndecodable, fiber.StatusBadRequest, "INVALID_IMAGE", "Could not read image file"},
	{utils.ErrEmptyImage, fiber.StatusBadRequest, "INVALID_IMAGE", "Image has no pixels"},
	{utils.ErrImageTooLarge, fiber.StatusRequestEntityTooLarge, "IMAGE_TOO_LARGE", "Image resolution too large. Maximum is 50 megapixels."},
}

// Classify resolves err to the status, machine code and client message it is reported with.
// ok is false for unexpected errors, which are reported as 500.
func Classify(err error) (status int, code string, message string, ok bool) {
	var respErr *response.Error
	if errors.As(err, &respErr) {
		return respErr.Code, respErr.Tag, respErr.Error(), true
	}

	for _, m := range mappings {
		if errors.Is(err, m.target) {
			message = m.message
			if message == "" {
				message = err.Error()
			}
			return m.status, m.code, message, true
		}
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, "", fiberErr.Message, true
	}

	return fiber.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", false
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	status, code, message, ok := Classify(err)

	fields := log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"code":       code,
		"path":       path,
		"operation":  operation,
	}

	if !ok {
		h.logger.WithFields(fields).Error("Unexpected error")
		return c.Status(status).JSON(ErrorResponse{
			Error:   message,
			Code:    code,
			TraceID: requestID,
		})
	}

	if status >= fiber.StatusInternalServerError {
		h.logger.WithFields(fields).Error("Operation failed")
	} else {
		h.logger.WithFields(fields).Warn("Operation failed with error response")
	}

	return c.Status(status).JSON(ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error: "Validation failed: " + err.Error(),
		Code:  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(ErrorResponse{
		Error: fiberUtils.StatusMessage(fiber.StatusRequestTimeout),
		Code:  "REQUEST_TIMEOUT",
	})
}

func (h *ErrorHandler) HandleUnauthorized(c *fiber.Ctx, requestID string, message string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"path":       c.Path(),
		"message":    message,
	}).Warn("Unauthorized access")

	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error: message,
		Code:  "UNAUTHORIZED",
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
