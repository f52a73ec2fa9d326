package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"communityAPI/internal/badge"
	"communityAPI/middleware"
	"communityAPI/services"
)

type ReputationHandler struct {
	reputationService *services.ReputationService
	logger            *zap.SugaredLogger
}

func NewReputationHandler(reputationService *services.ReputationService, logger *zap.SugaredLogger) *ReputationHandler {
	return &ReputationHandler{
		reputationService: reputationService,
		logger:            logger,
	}
}

type badgesResponse struct {
	UserID string              `json:"user_id"`
	Badges []badge.EarnedBadge `json:"badges"`
}

// GET /api/v1/user/badges
func (h *ReputationHandler) GetMyBadges(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	h.writeBadges(w, r, userID)
}

// GET /api/v1/users/{userId}/badges
func (h *ReputationHandler) GetUserBadges(w http.ResponseWriter, r *http.Request) {
	h.writeBadges(w, r, mux.Vars(r)["userId"])
}

func (h *ReputationHandler) writeBadges(w http.ResponseWriter, r *http.Request, userID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rep, err := h.reputationService.GetReputation(ctx, userID)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, badgesResponse{UserID: userID, Badges: rep.Earned()})
}

// GET /api/v1/user/stats
func (h *ReputationHandler) GetMyStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	stats, err := h.reputationService.GetUserStats(ctx, userID)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

// GET /api/v1/community/leaderboard?limit=20
func (h *ReputationHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	limit := services.DefaultLeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	lb, err := h.reputationService.GetHelperLeaderboard(ctx, userID, limit)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, lb)
}
