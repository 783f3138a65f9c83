package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/fritter/internal/model"
)

// --- モック定義 ---

// mockCredibilityService はCredibilityServiceInterfaceのモック実装。
type mockCredibilityService struct {
	addVoteFn    func(ctx context.Context, freetID, issuerID string, credible bool) (*model.Vote, error)
	removeVoteFn func(ctx context.Context, freetID, issuerID string) error
	listVotesFn  func(ctx context.Context, freetID string) ([]model.VoteView, error)
	addLinkFn    func(ctx context.Context, freetID, issuerID, rawURL string) (*model.ReferenceLink, error)
	removeLinkFn func(ctx context.Context, freetID, issuerID, linkID string) error
	listLinksFn  func(ctx context.Context, freetID string) ([]model.ReferenceLinkView, error)
}

func (m *mockCredibilityService) AddVote(ctx context.Context, freetID, issuerID string, credible bool) (*model.Vote, error) {
	return m.addVoteFn(ctx, freetID, issuerID, credible)
}
func (m *mockCredibilityService) RemoveVote(ctx context.Context, freetID, issuerID string) error {
	return m.removeVoteFn(ctx, freetID, issuerID)
}
func (m *mockCredibilityService) ListVotes(ctx context.Context, freetID string) ([]model.VoteView, error) {
	return m.listVotesFn(ctx, freetID)
}
func (m *mockCredibilityService) AddLink(ctx context.Context, freetID, issuerID, rawURL string) (*model.ReferenceLink, error) {
	return m.addLinkFn(ctx, freetID, issuerID, rawURL)
}
func (m *mockCredibilityService) RemoveLink(ctx context.Context, freetID, issuerID, linkID string) error {
	return m.removeLinkFn(ctx, freetID, issuerID, linkID)
}
func (m *mockCredibilityService) ListLinks(ctx context.Context, freetID string) ([]model.ReferenceLinkView, error) {
	return m.listLinksFn(ctx, freetID)
}

// --- POST /api/credibility/{freetId}/votes テスト ---

func TestCredibilityHandler_AddVote_Success(t *testing.T) {
	svc := &mockCredibilityService{
		addVoteFn: func(ctx context.Context, freetID, issuerID string, credible bool) (*model.Vote, error) {
			if freetID != "freet-1" || issuerID != "user-1" {
				t.Errorf("(freetID, issuerID) = (%q, %q), want (freet-1, user-1)", freetID, issuerID)
			}
			if !credible {
				t.Error("credible = false, want true")
			}
			return &model.Vote{
				ID: "vote-1", FreetID: freetID, IssuerID: issuerID,
				Credible: credible, CreatedAt: time.Now(),
			}, nil
		},
	}
	collector := &mockCollector{}
	h := NewCredibilityHandler(svc, collector)

	body := jsonBody(t, map[string]bool{"credible": true})
	req := httptest.NewRequest(http.MethodPost, "/api/credibility/freet-1/votes", body)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "freetId", "freet-1")
	w := httptest.NewRecorder()

	h.AddVote(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if len(collector.votesCast) != 1 || !collector.votesCast[0] {
		t.Errorf("votesCast = %v, want [true]", collector.votesCast)
	}

	var result map[string]any
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["credible"] != true {
		t.Errorf("credible = %v, want true", result["credible"])
	}
}

func TestCredibilityHandler_AddVote_Duplicate_Returns409(t *testing.T) {
	svc := &mockCredibilityService{
		addVoteFn: func(ctx context.Context, freetID, issuerID string, credible bool) (*model.Vote, error) {
			return nil, model.NewDuplicateVoteError()
		},
	}
	collector := &mockCollector{}
	h := NewCredibilityHandler(svc, collector)

	body := jsonBody(t, map[string]bool{"credible": false})
	req := httptest.NewRequest(http.MethodPost, "/api/credibility/freet-1/votes", body)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "freetId", "freet-1")
	w := httptest.NewRecorder()

	h.AddVote(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	if len(collector.votesCast) != 0 {
		t.Error("failed votes must not be recorded in metrics")
	}
}

func TestCredibilityHandler_AddVote_FreetNotFound(t *testing.T) {
	svc := &mockCredibilityService{
		addVoteFn: func(ctx context.Context, freetID, issuerID string, credible bool) (*model.Vote, error) {
			return nil, model.NewFreetNotFoundError(freetID)
		},
	}
	h := NewCredibilityHandler(svc, nil)

	body := jsonBody(t, map[string]bool{"credible": true})
	req := httptest.NewRequest(http.MethodPost, "/api/credibility/missing/votes", body)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "freetId", "missing")
	w := httptest.NewRecorder()

	h.AddVote(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// --- DELETE /api/credibility/{freetId}/votes テスト ---

func TestCredibilityHandler_RemoveVote_Success(t *testing.T) {
	svc := &mockCredibilityService{
		removeVoteFn: func(ctx context.Context, freetID, issuerID string) error {
			return nil
		},
	}
	h := NewCredibilityHandler(svc, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/credibility/freet-1/votes", nil)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "freetId", "freet-1")
	w := httptest.NewRecorder()

	h.RemoveVote(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["status"] != "removed" {
		t.Errorf("status = %q, want %q", result["status"], "removed")
	}
}

func TestCredibilityHandler_RemoveVote_NotFound(t *testing.T) {
	svc := &mockCredibilityService{
		removeVoteFn: func(ctx context.Context, freetID, issuerID string) error {
			return model.NewVoteNotFoundError()
		},
	}
	h := NewCredibilityHandler(svc, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/credibility/freet-1/votes", nil)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "freetId", "freet-1")
	w := httptest.NewRecorder()

	h.RemoveVote(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// --- GET /api/credibility/{freetId}/votes テスト ---

func TestCredibilityHandler_ListVotes(t *testing.T) {
	svc := &mockCredibilityService{
		listVotesFn: func(ctx context.Context, freetID string) ([]model.VoteView, error) {
			return []model.VoteView{
				{Vote: model.Vote{ID: "vote-1", FreetID: freetID, Credible: true}, IssuerUsername: "bob"},
				{Vote: model.Vote{ID: "vote-2", FreetID: freetID, Credible: false}, IssuerUsername: "carol"},
			}, nil
		},
	}
	h := NewCredibilityHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/credibility/freet-1/votes", nil)
	req = withChiURLParam(req, "freetId", "freet-1")
	w := httptest.NewRecorder()

	h.ListVotes(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var result []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("length = %d, want 2", len(result))
	}
	if result[0]["issuer"] != "bob" {
		t.Errorf("issuer = %v, want bob", result[0]["issuer"])
	}
}

// --- POST /api/credibility/{freetId}/links テスト ---

func TestCredibilityHandler_AddLink_Success(t *testing.T) {
	svc := &mockCredibilityService{
		addLinkFn: func(ctx context.Context, freetID, issuerID, rawURL string) (*model.ReferenceLink, error) {
			if rawURL != "https://example.com/article" {
				t.Errorf("rawURL = %q, want %q", rawURL, "https://example.com/article")
			}
			return &model.ReferenceLink{
				ID: "link-1", FreetID: freetID, IssuerID: issuerID,
				URL: rawURL, CreatedAt: time.Now(),
			}, nil
		},
	}
	h := NewCredibilityHandler(svc, nil)

	body := jsonBody(t, map[string]string{"url": "https://example.com/article"})
	req := httptest.NewRequest(http.MethodPost, "/api/credibility/freet-1/links", body)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "freetId", "freet-1")
	w := httptest.NewRecorder()

	h.AddLink(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}

	var result map[string]any
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	// タイトルはワーカーが取得するまで空
	if _, ok := result["title"]; ok {
		t.Error("title should be omitted before worker fetch")
	}
}

func TestCredibilityHandler_AddLink_InvalidURL_Returns413(t *testing.T) {
	svc := &mockCredibilityService{
		addLinkFn: func(ctx context.Context, freetID, issuerID, rawURL string) (*model.ReferenceLink, error) {
			return nil, model.NewInvalidURLError("URLはhttp://またはhttps://で始まる必要があります")
		},
	}
	h := NewCredibilityHandler(svc, nil)

	body := jsonBody(t, map[string]string{"url": "ftp://example.com"})
	req := httptest.NewRequest(http.MethodPost, "/api/credibility/freet-1/links", body)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "freetId", "freet-1")
	w := httptest.NewRecorder()

	h.AddLink(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", w.Code, http.StatusRequestEntityTooLarge)
	}
	result := parseAPIErrorResponse(t, w)
	if result["code"] != model.ErrCodeInvalidURL {
		t.Errorf("code = %q, want %q", result["code"], model.ErrCodeInvalidURL)
	}
}

// --- DELETE /api/credibility/{freetId}/links/{linkId} テスト ---

func TestCredibilityHandler_RemoveLink_Success(t *testing.T) {
	svc := &mockCredibilityService{
		removeLinkFn: func(ctx context.Context, freetID, issuerID, linkID string) error {
			if linkID != "link-1" {
				t.Errorf("linkID = %q, want %q", linkID, "link-1")
			}
			return nil
		},
	}
	h := NewCredibilityHandler(svc, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/credibility/freet-1/links/link-1", nil)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "freetId", "freet-1")
	req = withChiURLParam(req, "linkId", "link-1")
	w := httptest.NewRecorder()

	h.RemoveLink(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestCredibilityHandler_RemoveLink_WrongIssuer_Returns403(t *testing.T) {
	svc := &mockCredibilityService{
		removeLinkFn: func(ctx context.Context, freetID, issuerID, linkID string) error {
			return model.NewForbiddenError("自分が追加したリンク以外は削除できません")
		},
	}
	h := NewCredibilityHandler(svc, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/credibility/freet-1/links/link-1", nil)
	req = withUserID(req, "user-2")
	req = withChiURLParam(req, "freetId", "freet-1")
	req = withChiURLParam(req, "linkId", "link-1")
	w := httptest.NewRecorder()

	h.RemoveLink(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

// --- GET /api/credibility/{freetId}/links テスト ---

func TestCredibilityHandler_ListLinks(t *testing.T) {
	fetchedAt := time.Now().UTC().Truncate(time.Second)
	svc := &mockCredibilityService{
		listLinksFn: func(ctx context.Context, freetID string) ([]model.ReferenceLinkView, error) {
			return []model.ReferenceLinkView{
				{
					ReferenceLink: model.ReferenceLink{
						ID: "link-1", FreetID: freetID,
						URL: "https://example.com", Title: "Example Domain",
						TitleFetchedAt: &fetchedAt,
					},
					IssuerUsername: "bob",
				},
			}, nil
		},
	}
	h := NewCredibilityHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/credibility/freet-1/links", nil)
	req = withChiURLParam(req, "freetId", "freet-1")
	w := httptest.NewRecorder()

	h.ListLinks(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var result []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("length = %d, want 1", len(result))
	}
	if result[0]["title"] != "Example Domain" {
		t.Errorf("title = %v, want Example Domain", result[0]["title"])
	}
	if result[0]["issuer"] != "bob" {
		t.Errorf("issuer = %v, want bob", result[0]["issuer"])
	}
}
