package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/fritter/internal/metrics"
	"github.com/hitoshi/fritter/internal/model"
)

// CredibilityServiceInterface は信憑性ハンドラーが必要とするサービスインターフェース。
// 投票と引用リンクはどちらもFreetに対する信憑性の根拠として扱う。
type CredibilityServiceInterface interface {
	AddVote(ctx context.Context, freetID, issuerID string, credible bool) (*model.Vote, error)
	RemoveVote(ctx context.Context, freetID, issuerID string) error
	ListVotes(ctx context.Context, freetID string) ([]model.VoteView, error)
	AddLink(ctx context.Context, freetID, issuerID, rawURL string) (*model.ReferenceLink, error)
	RemoveLink(ctx context.Context, freetID, issuerID, linkID string) error
	ListLinks(ctx context.Context, freetID string) ([]model.ReferenceLinkView, error)
}

// CredibilityHandler は投票と引用リンクのHTTPハンドラー。
type CredibilityHandler struct {
	service   CredibilityServiceInterface
	collector metrics.MetricsCollector
}

// NewCredibilityHandler はCredibilityHandlerを生成する。collectorはnil可。
func NewCredibilityHandler(service CredibilityServiceInterface, collector metrics.MetricsCollector) *CredibilityHandler {
	return &CredibilityHandler{
		service:   service,
		collector: collector,
	}
}

// voteRequest は投票リクエストのボディ。
type voteRequest struct {
	Credible bool `json:"credible"`
}

// linkRequest は引用リンク追加リクエストのボディ。
type linkRequest struct {
	URL string `json:"url"`
}

// ListVotes はFreetの投票一覧を返す。
// GET /api/credibility/{freetId}/votes
func (h *CredibilityHandler) ListVotes(w http.ResponseWriter, r *http.Request) {
	freetID := chi.URLParam(r, "freetId")

	views, err := h.service.ListVotes(r.Context(), freetID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toVoteResponses(views))
}

// AddVote はFreetへの投票を処理する。同じFreetへの二重投票は競合になる。
// POST /api/credibility/{freetId}/votes
func (h *CredibilityHandler) AddVote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	freetID := chi.URLParam(r, "freetId")

	var req voteRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	vote, err := h.service.AddVote(r.Context(), freetID, userID, req.Credible)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordVoteCast(vote.Credible)
	}
	writeJSON(w, http.StatusCreated, toVoteModelResponse(vote))
}

// RemoveVote は自分の投票の取り消しを処理する。
// DELETE /api/credibility/{freetId}/votes
func (h *CredibilityHandler) RemoveVote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	freetID := chi.URLParam(r, "freetId")

	if err := h.service.RemoveVote(r.Context(), freetID, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// ListLinks はFreetの引用リンク一覧を返す。
// GET /api/credibility/{freetId}/links
func (h *CredibilityHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	freetID := chi.URLParam(r, "freetId")

	views, err := h.service.ListLinks(r.Context(), freetID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toLinkResponses(views))
}

// AddLink はFreetへの引用リンク追加を処理する。
// POST /api/credibility/{freetId}/links
func (h *CredibilityHandler) AddLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	freetID := chi.URLParam(r, "freetId")

	var req linkRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	link, err := h.service.AddLink(r.Context(), freetID, userID, req.URL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toLinkModelResponse(link))
}

// RemoveLink は自分の引用リンクの削除を処理する。
// DELETE /api/credibility/{freetId}/links/{linkId}
func (h *CredibilityHandler) RemoveLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	freetID := chi.URLParam(r, "freetId")
	linkID := chi.URLParam(r, "linkId")

	if err := h.service.RemoveLink(r.Context(), freetID, userID, linkID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
