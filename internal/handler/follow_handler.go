package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/fritter/internal/model"
)

// FollowServiceInterface はFollowハンドラーが必要とするサービスインターフェース。
type FollowServiceInterface interface {
	Create(ctx context.Context, followerID, source, kindName string) (*model.FollowView, error)
	Delete(ctx context.Context, userID, followID string) error
	ListFollowing(ctx context.Context, username string) ([]model.FollowView, error)
	ListFollowers(ctx context.Context, username string) ([]model.FollowView, error)
}

// FollowHandler はFollowのHTTPハンドラー。
type FollowHandler struct {
	service FollowServiceInterface
}

// NewFollowHandler はFollowHandlerを生成する。
func NewFollowHandler(service FollowServiceInterface) *FollowHandler {
	return &FollowHandler{service: service}
}

// followRequest はFollow作成リクエストのボディ。
type followRequest struct {
	Source string `json:"source"`
	Type   string `json:"type"`
}

// List はFollow一覧を返す。followingOfとfollowersOfのどちらか一方のみを受け付ける。
// GET /api/follow?followingOf=username | ?followersOf=username
func (h *FollowHandler) List(w http.ResponseWriter, r *http.Request) {
	followingOf := r.URL.Query().Get("followingOf")
	followersOf := r.URL.Query().Get("followersOf")

	// 両方指定・両方欠落はクエリ不正として扱う。
	if (followingOf == "") == (followersOf == "") {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidQueryError("followingOfまたはfollowersOfのどちらか一方を指定してください。"))
		return
	}

	var (
		views []model.FollowView
		err   error
	)
	if followingOf != "" {
		views, err = h.service.ListFollowing(r.Context(), followingOf)
	} else {
		views, err = h.service.ListFollowers(r.Context(), followersOf)
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toFollowResponses(views))
}

// Create はFollowの作成を処理する。
// POST /api/follow
func (h *FollowHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req followRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	view, err := h.service.Create(r.Context(), userID, req.Source, req.Type)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toFollowResponse(view))
}

// Delete はFollowの解除を処理する。
// DELETE /api/follow/{followId}
func (h *FollowHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	followID := chi.URLParam(r, "followId")

	if err := h.service.Delete(r.Context(), userID, followID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
