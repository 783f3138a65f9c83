package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/fritter/internal/metrics"
	"github.com/hitoshi/fritter/internal/model"
)

// FreetServiceInterface はFreetハンドラーが必要とするサービスインターフェース。
type FreetServiceInterface interface {
	Create(ctx context.Context, authorID, content string, tagNames []string) (*model.FreetView, error)
	GetByID(ctx context.Context, freetID string) (*model.FreetView, error)
	ListAll(ctx context.Context) ([]model.FreetView, error)
	ListByAuthorUsername(ctx context.Context, username string) ([]model.FreetView, error)
	Update(ctx context.Context, userID, freetID, content string, tagNames []string) (*model.FreetView, error)
	Delete(ctx context.Context, userID, freetID string) error
}

// FreetHandler はFreetのHTTPハンドラー。
type FreetHandler struct {
	service   FreetServiceInterface
	collector metrics.MetricsCollector
}

// NewFreetHandler はFreetHandlerを生成する。collectorはnil可。
func NewFreetHandler(service FreetServiceInterface, collector metrics.MetricsCollector) *FreetHandler {
	return &FreetHandler{
		service:   service,
		collector: collector,
	}
}

// freetRequest はFreetの作成・更新リクエストのボディ。
type freetRequest struct {
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// List はFreet一覧を返す。authorクエリがある場合はその著者に絞る。
// GET /api/freets[?author=username]
func (h *FreetHandler) List(w http.ResponseWriter, r *http.Request) {
	author := r.URL.Query().Get("author")

	var (
		views []model.FreetView
		err   error
	)
	if author != "" {
		views, err = h.service.ListByAuthorUsername(r.Context(), author)
	} else {
		views, err = h.service.ListAll(r.Context())
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toFreetResponses(views))
}

// Get はFreet詳細を返す。
// GET /api/freets/{freetId}
func (h *FreetHandler) Get(w http.ResponseWriter, r *http.Request) {
	freetID := chi.URLParam(r, "freetId")

	view, err := h.service.GetByID(r.Context(), freetID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toFreetResponse(view))
}

// ListTags は指定Freetに付与されたタグ名の一覧を返す。
// GET /api/tags/{freetId}
func (h *FreetHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	freetID := chi.URLParam(r, "freetId")

	view, err := h.service.GetByID(r.Context(), freetID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toFreetTagsResponse(view))
}

// Create はFreetの作成を処理する。
// POST /api/freets
func (h *FreetHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req freetRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	view, err := h.service.Create(r.Context(), userID, req.Content, req.Tags)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordFreetCreated()
	}
	writeJSON(w, http.StatusCreated, toFreetResponse(view))
}

// Update はFreetの更新を処理する。
// PATCH /api/freets/{freetId}
func (h *FreetHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	freetID := chi.URLParam(r, "freetId")

	var req freetRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	view, err := h.service.Update(r.Context(), userID, freetID, req.Content, req.Tags)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toFreetResponse(view))
}

// Delete はFreetの削除を処理する。
// DELETE /api/freets/{freetId}
func (h *FreetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	freetID := chi.URLParam(r, "freetId")

	if err := h.service.Delete(r.Context(), userID, freetID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
