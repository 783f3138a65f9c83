package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/fritter/internal/model"
)

// FilterServiceInterface はFilterハンドラーが必要とするサービスインターフェース。
type FilterServiceInterface interface {
	ListMine(ctx context.Context, ownerID string) ([]model.FilterView, error)
	GetByName(ctx context.Context, ownerID, name string) (*model.FilterView, error)
	Create(ctx context.Context, ownerID, name string, usernames, tagNames []string) (*model.FilterView, error)
	Update(ctx context.Context, ownerID, filterID, name string, usernames, tagNames []string) (*model.FilterView, error)
	Delete(ctx context.Context, ownerID, filterID string) error
}

// FilterHandler はFilterのHTTPハンドラー。
type FilterHandler struct {
	service FilterServiceInterface
}

// NewFilterHandler はFilterHandlerを生成する。
func NewFilterHandler(service FilterServiceInterface) *FilterHandler {
	return &FilterHandler{service: service}
}

// filterRequest はFilterの作成・更新リクエストのボディ。
type filterRequest struct {
	Name      string   `json:"name"`
	Usernames []string `json:"usernames"`
	Tags      []string `json:"tags"`
}

// List は自分のFilter一覧を返す。nameクエリがある場合はそのFilterのみを返す。
// GET /api/filters[?name=watchlist]
func (h *FilterHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if name := r.URL.Query().Get("name"); name != "" {
		view, err := h.service.GetByName(r.Context(), userID, name)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toFilterResponse(view))
		return
	}

	views, err := h.service.ListMine(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toFilterResponses(views))
}

// Create はFilterの作成を処理する。
// POST /api/filters
func (h *FilterHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req filterRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	view, err := h.service.Create(r.Context(), userID, req.Name, req.Usernames, req.Tags)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toFilterResponse(view))
}

// Update はFilterの更新を処理する。メンバーリストは全置換する。
// PATCH /api/filters/{filterId}
func (h *FilterHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	filterID := chi.URLParam(r, "filterId")

	var req filterRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	view, err := h.service.Update(r.Context(), userID, filterID, req.Name, req.Usernames, req.Tags)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toFilterResponse(view))
}

// Delete はFilterの削除を処理する。
// DELETE /api/filters/{filterId}
func (h *FilterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	filterID := chi.URLParam(r, "filterId")

	if err := h.service.Delete(r.Context(), userID, filterID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
