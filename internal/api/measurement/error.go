package measurement

import (
	"LensFitter/pkg/response"
	"net/http"
)

var (
	ErrImageRequired       = response.NewTaggedError(http.StatusBadRequest, "IMAGE_REQUIRED", "Missing image file")
	ErrFrameWidthRequired  = response.NewTaggedError(http.StatusBadRequest, "FRAME_WIDTH_REQUIRED", "Missing frame_width_mm parameter")
	ErrInvalidFrameWidth   = response.NewTaggedError(http.StatusBadRequest, "INVALID_FRAME_WIDTH", "frame_width_mm must be a valid number")
	ErrMeasurementNotFound = response.NewTaggedError(http.StatusNotFound, "MEASUREMENT_NOT_FOUND", "measurement not found")
	ErrMeasurementNotOwned = response.NewTaggedError(http.StatusForbidden, "MEASUREMENT_NOT_OWNED", "measurement does not belong to user")
	ErrFailedToStorePhoto  = response.NewTaggedError(http.StatusInternalServerError, "PHOTO_UPLOAD_FAILED", "failed to store measurement photo")
	ErrHistoryUnavailable  = response.NewTaggedError(http.StatusServiceUnavailable, "HISTORY_UNAVAILABLE", "measurement history is not configured")
)
