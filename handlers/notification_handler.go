package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"communityAPI/internal/notification"
	"communityAPI/internal/store"
	"communityAPI/middleware"
)

type NotificationHandler struct {
	devices store.DeviceRegistry
	logger  *zap.SugaredLogger
	now     func() time.Time
}

func NewNotificationHandler(devices store.DeviceRegistry, logger *zap.SugaredLogger) *NotificationHandler {
	return &NotificationHandler{
		devices: devices,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// POST /api/v1/notifications/register-device
func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req notification.RegisterDeviceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !req.Valid() {
		respondWithError(w, http.StatusBadRequest, "token is required and platform must be ios, android or web")
		return
	}

	device := notification.DeviceToken{
		UserID:    userID,
		Token:     req.Token,
		Platform:  req.Platform,
		CreatedAt: h.now(),
	}
	if err := h.devices.RegisterDevice(ctx, device); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Device registered successfully"})
}
