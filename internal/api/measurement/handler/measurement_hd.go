package measurementHandler

import (
	"strconv"
	"strings"
	"time"

	measurementApi "LensFitter/internal/api/measurement"
	contextPkg "LensFitter/pkg/context"
	"LensFitter/pkg/handlerUtil"
	"LensFitter/pkg/log"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

const processTimeout = 30 * time.Second

func (h *MeasurementHandler) HandleProcessImage(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), processTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	image, frameWidthMM, err := h.parseUpload(ctx)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "parse_upload")
	}

	h.log.WithFields(log.Fields{
		"request_id":     requestID,
		"image_size":     len(image),
		"frame_width_mm": frameWidthMM,
	}).Debug("Processing image")

	res, err := h.measurementService.ProcessImage(c, image, frameWidthMM)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "process_image")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}

func (h *MeasurementHandler) HandleLandmarks(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req measurementApi.LandmarksRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, fiber.NewError(fiber.StatusBadRequest, "invalid request body"), ctx.Path(), "parse_request_body")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	res, err := h.measurementService.FromLandmarks(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "measure_landmarks")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}

// parseUpload reads the multipart "image" file and "frame_width_mm" field.
func (h *MeasurementHandler) parseUpload(ctx *fiber.Ctx) ([]byte, float64, error) {
	file, err := ctx.FormFile("image")
	if err != nil {
		return nil, 0, measurementApi.ErrImageRequired
	}

	if err := h.utils.ValidateImageFile(file); err != nil {
		return nil, 0, err
	}

	raw := strings.TrimSpace(ctx.FormValue("frame_width_mm"))
	if raw == "" {
		return nil, 0, measurementApi.ErrFrameWidthRequired
	}

	frameWidthMM, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, 0, measurementApi.ErrInvalidFrameWidth
	}

	data, err := h.utils.ReadFile(file)
	if err != nil {
		return nil, 0, err
	}

	return data, frameWidthMM, nil
}
