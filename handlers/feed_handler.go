package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"communityAPI/internal/workspace"
	"communityAPI/middleware"
	"communityAPI/services"
)

type FeedHandler struct {
	hub      *services.FeedHub
	upgrader websocket.Upgrader
	logger   *zap.SugaredLogger
}

// NewFeedHandler only upgrades requests whose Origin is in allowedOrigins.
// A "*" entry allows any origin.
func NewFeedHandler(hub *services.FeedHub, allowedOrigins []string, logger *zap.SugaredLogger) *FeedHandler {
	return &FeedHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Native mobile clients send no Origin.
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(strings.TrimSuffix(a, "/"), u.Scheme+"://"+u.Host) {
				return true
			}
		}
		return false
	}
}

// GET /api/v1/workspaces/{topic}/feed
func (h *FeedHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	topic, ok := workspace.Parse(mux.Vars(r)["topic"])
	if !ok {
		respondWithError(w, http.StatusBadRequest, services.ErrUnknownTopic.Error())
		return
	}
	userID, _ := middleware.GetUserID(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Debugw("Could not upgrade connection", "topic", topic, "error", err)
		return
	}

	if _, ok := h.hub.Join(topic, userID, conn); !ok {
		h.logger.Warnw("Feed join refused, hub closed", "topic", topic)
	}
}
