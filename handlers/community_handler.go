package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"communityAPI/internal/badge"
	"communityAPI/internal/workspace"
	"communityAPI/middleware"
	"communityAPI/services"
)

const maxBodyBytes = 64 << 10

type CommunityHandler struct {
	reputationService *services.ReputationService
	logger            *zap.SugaredLogger
}

func NewCommunityHandler(reputationService *services.ReputationService, logger *zap.SugaredLogger) *CommunityHandler {
	return &CommunityHandler{
		reputationService: reputationService,
		logger:            logger,
	}
}

type createPostRequest struct {
	Content           string `json:"content"`
	AuthorDisplayName string `json:"authorDisplayName"`
}

type ratePostRequest struct {
	Score *int `json:"score"`
}

// GET /api/v1/workspaces
func (h *CommunityHandler) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, workspace.Catalog())
}

// GET /api/v1/badges
func (h *CommunityHandler) ListBadges(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, badge.Catalog())
}

// GET /api/v1/workspaces/{topic}/posts
func (h *CommunityHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	posts, err := h.reputationService.ListWorkspacePosts(ctx, mux.Vars(r)["topic"])
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, posts)
}

// POST /api/v1/workspaces/{topic}/posts
func (h *CommunityHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.reputationService.SubmitPost(ctx, userID, req.AuthorDisplayName, mux.Vars(r)["topic"], req.Content)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, p)
}

// GET /api/v1/workspaces/{topic}/posts/{postId}
func (h *CommunityHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	vars := mux.Vars(r)
	p, err := h.reputationService.GetPost(ctx, vars["topic"], vars["postId"])
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

// PUT /api/v1/workspaces/{topic}/posts/{postId}/rating
func (h *CommunityHandler) RatePost(w http.ResponseWriter, r *http.Request) {
	// Longer budget: the rating is followed by a badge scan of every workspace.
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req ratePostRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Score == nil {
		respondWithError(w, http.StatusBadRequest, services.ErrInvalidScore.Error())
		return
	}

	vars := mux.Vars(r)
	result, err := h.reputationService.RecordRating(ctx, vars["postId"], vars["topic"], userID, *req.Score)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
