package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/hitoshi/fritter/internal/model"
)

// ContentQueryService はコンテンツ照会ハンドラーが必要とするサービスインターフェース。
type ContentQueryService interface {
	QueryByFilterName(ctx context.Context, ownerID, name string) ([]model.FreetView, error)
	QueryByLists(ctx context.Context, usernames, tagNames []string) ([]model.FreetView, error)
}

// ContentHandler は保存済みFilterまたはアドホックな条件によるFreet照会を処理する。
type ContentHandler struct {
	service ContentQueryService
}

// NewContentHandler はContentHandlerを生成する。
func NewContentHandler(service ContentQueryService) *ContentHandler {
	return &ContentHandler{service: service}
}

// Query は条件に合致するFreet一覧を返す。
// nameクエリは保存済みFilterを参照し、usernames/tagsクエリはカンマ区切りの
// アドホックな条件を指定する。どちらも無い場合はクエリ不正。
// GET /api/content?name=watchlist | ?usernames=a,b&tags=go,news
func (h *ContentHandler) Query(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	name := query.Get("name")
	usernames := splitCommaList(query.Get("usernames"))
	tags := splitCommaList(query.Get("tags"))

	var (
		views []model.FreetView
		err   error
	)
	switch {
	case name != "":
		views, err = h.service.QueryByFilterName(r.Context(), userID, name)
	case len(usernames) > 0 || len(tags) > 0:
		views, err = h.service.QueryByLists(r.Context(), usernames, tags)
	default:
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidQueryError("name、usernames、tagsのいずれかのクエリパラメータを指定してください。"))
		return
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toFreetResponses(views))
}

// splitCommaList はカンマ区切りの値を分割し、空要素を捨てる。
func splitCommaList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
