package measurementHandler

import (
	"time"

	measurementApi "LensFitter/internal/api/measurement"
	"LensFitter/internal/middleware"
	contextPkg "LensFitter/pkg/context"
	"LensFitter/pkg/handlerUtil"
	"LensFitter/pkg/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/context"
)

const maxSocketMessage = 1 << 20

func (h *MeasurementHandler) HandleUpgrade(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}
	ctx.Locals(middleware.RequestIDKey, h.middleware.GetRequestID(ctx))
	return ctx.Next()
}

// HandleSocket answers each text message carrying a landmarks request with a result or a
// SocketError. A failed request never closes the connection.
func (h *MeasurementHandler) HandleSocket(conn *websocket.Conn) {
	requestID, _ := conn.Locals(middleware.RequestIDKey).(string)
	conn.SetReadLimit(maxSocketMessage)

	h.log.WithField("request_id", requestID).Info("Measurement socket opened")
	defer h.log.WithField("request_id", requestID).Info("Measurement socket closed")

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithFields(log.Fields{
					"request_id": requestID,
					"error":      err.Error(),
				}).Warn("Measurement socket read failed")
			}
			return
		}

		if messageType != websocket.TextMessage {
			if err := conn.WriteJSON(measurementApi.SocketError{
				Error: "only text messages carrying landmark requests are accepted",
				Code:  "UNSUPPORTED_MESSAGE",
			}); err != nil {
				return
			}
			continue
		}

		if err := conn.WriteJSON(h.measureMessage(requestID, message)); err != nil {
			h.log.WithFields(log.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Warn("Measurement socket write failed")
			return
		}
	}
}

func (h *MeasurementHandler) measureMessage(requestID string, message []byte) interface{} {
	var req measurementApi.LandmarksRequest
	if err := jsoniter.Unmarshal(message, &req); err != nil {
		return measurementApi.SocketError{Error: "invalid request body", Code: "INVALID_REQUEST"}
	}

	if err := h.validator.Struct(req); err != nil {
		return measurementApi.SocketError{Error: "Validation failed: " + err.Error(), Code: "VALIDATION_ERROR"}
	}

	c, cancel := context.WithTimeout(contextPkg.WithRequestID(context.Background(), requestID), 10*time.Second)
	defer cancel()

	res, err := h.measurementService.FromLandmarks(c, req)
	if err != nil {
		_, code, message, _ := handlerUtil.Classify(err)
		return measurementApi.SocketError{Error: message, Code: code}
	}

	return res
}
