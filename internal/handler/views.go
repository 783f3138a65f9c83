package handler

import (
	"net/http"
	"time"

	"github.com/hitoshi/fritter/internal/middleware"
	"github.com/hitoshi/fritter/internal/model"
)

// userIDFromRequest はリクエストから認証済みユーザーIDを取得する。
func userIDFromRequest(r *http.Request) (string, error) {
	return middleware.UserIDFromContext(r.Context())
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// linkResponse は引用リンクのAPIレスポンス。
// Issuerは一覧エンドポイントでのみ解決される（Freetビュー埋め込み時は空）。
type linkResponse struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title,omitempty"`
	Issuer    string    `json:"issuer,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// freetResponse はFreetのAPIレスポンス。
// 参照はすべて名前解決済み（著者名・タグ名・投票者名）で埋め込む。
type freetResponse struct {
	ID           string         `json:"id"`
	Author       string         `json:"author"`
	Content      string         `json:"content"`
	DateCreated  time.Time      `json:"dateCreated"`
	DateModified time.Time      `json:"dateModified"`
	Tags         []string       `json:"tags"`
	Upvotes      []string       `json:"upvotes"`
	Downvotes    []string       `json:"downvotes"`
	Links        []linkResponse `json:"links"`
}

// voteResponse は信憑性投票のAPIレスポンス。
type voteResponse struct {
	FreetID   string    `json:"freetId"`
	Issuer    string    `json:"issuer"`
	Credible  bool      `json:"credible"`
	CreatedAt time.Time `json:"createdAt"`
}

// followTargetResponse はフォロー対象のAPIレスポンス。
// 種別（User/Tag）と解決済みの名前を常に対で返す。
type followTargetResponse struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// followResponse はフォローエッジのAPIレスポンス。
type followResponse struct {
	ID        string               `json:"id"`
	Follower  string               `json:"follower"`
	Target    followTargetResponse `json:"target"`
	CreatedAt time.Time            `json:"createdAt"`
}

// filterResponse は保存フィルタのAPIレスポンス。
type filterResponse struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Name      string    `json:"name"`
	Usernames []string  `json:"usernames"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// toUserResponse はmodel.UserからAPIレスポンスに変換する。
func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:       user.ID,
		Username: user.Username,
	}
}

// toFreetResponse はmodel.FreetViewからAPIレスポンスに変換する。
// 空のスライスはnullではなく[]として返す。
func toFreetResponse(view *model.FreetView) freetResponse {
	tags := make([]string, len(view.Tags))
	for i, tag := range view.Tags {
		tags[i] = tag.Name
	}

	links := make([]linkResponse, len(view.Links))
	for i, link := range view.Links {
		links[i] = linkResponse{
			ID:        link.ID,
			URL:       link.URL,
			Title:     link.Title,
			CreatedAt: link.CreatedAt,
		}
	}

	upvotes := view.Upvoters
	if upvotes == nil {
		upvotes = []string{}
	}
	downvotes := view.Downvoters
	if downvotes == nil {
		downvotes = []string{}
	}

	return freetResponse{
		ID:           view.ID,
		Author:       view.AuthorUsername,
		Content:      view.Content,
		DateCreated:  view.DateCreated,
		DateModified: view.DateModified,
		Tags:         tags,
		Upvotes:      upvotes,
		Downvotes:    downvotes,
		Links:        links,
	}
}

// freetTagsResponse は単一Freetのタグ一覧のAPIレスポンス。
type freetTagsResponse struct {
	FreetID string   `json:"freetId"`
	Tags    []string `json:"tags"`
}

// toFreetTagsResponse はmodel.FreetViewからタグ一覧レスポンスに変換する。
func toFreetTagsResponse(view *model.FreetView) freetTagsResponse {
	tags := make([]string, len(view.Tags))
	for i, tag := range view.Tags {
		tags[i] = tag.Name
	}
	return freetTagsResponse{FreetID: view.ID, Tags: tags}
}

// toFreetResponses はFreetViewのスライスをAPIレスポンスに変換する。
func toFreetResponses(views []model.FreetView) []freetResponse {
	responses := make([]freetResponse, len(views))
	for i := range views {
		responses[i] = toFreetResponse(&views[i])
	}
	return responses
}

// toVoteResponse はmodel.VoteViewからAPIレスポンスに変換する。
func toVoteResponse(view *model.VoteView) voteResponse {
	return voteResponse{
		FreetID:   view.FreetID,
		Issuer:    view.IssuerUsername,
		Credible:  view.Credible,
		CreatedAt: view.CreatedAt,
	}
}

// toLinkResponse はmodel.ReferenceLinkViewからAPIレスポンスに変換する。
func toLinkResponse(view *model.ReferenceLinkView) linkResponse {
	return linkResponse{
		ID:        view.ID,
		URL:       view.URL,
		Title:     view.Title,
		Issuer:    view.IssuerUsername,
		CreatedAt: view.CreatedAt,
	}
}

// toVoteResponses はVoteViewのスライスをAPIレスポンスに変換する。
func toVoteResponses(views []model.VoteView) []voteResponse {
	responses := make([]voteResponse, len(views))
	for i := range views {
		responses[i] = toVoteResponse(&views[i])
	}
	return responses
}

// createdVoteResponse は投票作成直後のAPIレスポンス。
// 発行者名の結合を挟まず、発行者IDをそのまま返す。
type createdVoteResponse struct {
	FreetID   string    `json:"freetId"`
	IssuerID  string    `json:"issuerId"`
	Credible  bool      `json:"credible"`
	CreatedAt time.Time `json:"createdAt"`
}

// toVoteModelResponse はmodel.Voteから作成直後のAPIレスポンスに変換する。
func toVoteModelResponse(vote *model.Vote) createdVoteResponse {
	return createdVoteResponse{
		FreetID:   vote.FreetID,
		IssuerID:  vote.IssuerID,
		Credible:  vote.Credible,
		CreatedAt: vote.CreatedAt,
	}
}

// toLinkResponses はReferenceLinkViewのスライスをAPIレスポンスに変換する。
func toLinkResponses(views []model.ReferenceLinkView) []linkResponse {
	responses := make([]linkResponse, len(views))
	for i := range views {
		responses[i] = toLinkResponse(&views[i])
	}
	return responses
}

// toLinkModelResponse はmodel.ReferenceLinkから作成直後のAPIレスポンスに変換する。
// タイトルはワーカー取得前なので常に空になる。
func toLinkModelResponse(link *model.ReferenceLink) linkResponse {
	return linkResponse{
		ID:        link.ID,
		URL:       link.URL,
		Title:     link.Title,
		CreatedAt: link.CreatedAt,
	}
}

// toFollowResponse はmodel.FollowViewからAPIレスポンスに変換する。
// 対象種別はタグ付き共用体のAPI表記（User/Tag）に網羅的に変換する。
func toFollowResponse(view *model.FollowView) followResponse {
	return followResponse{
		ID:       view.ID,
		Follower: view.FollowerUsername,
		Target: followTargetResponse{
			Type: view.TargetKind.APIName(),
			Name: view.TargetName,
		},
		CreatedAt: view.CreatedAt,
	}
}

// toFollowResponses はFollowViewのスライスをAPIレスポンスに変換する。
func toFollowResponses(views []model.FollowView) []followResponse {
	responses := make([]followResponse, len(views))
	for i := range views {
		responses[i] = toFollowResponse(&views[i])
	}
	return responses
}

// toFilterResponse はmodel.FilterViewからAPIレスポンスに変換する。
func toFilterResponse(view *model.FilterView) filterResponse {
	usernames := view.Usernames
	if usernames == nil {
		usernames = []string{}
	}
	tags := view.TagNames
	if tags == nil {
		tags = []string{}
	}

	return filterResponse{
		ID:        view.ID,
		Owner:     view.OwnerUsername,
		Name:      view.Name,
		Usernames: usernames,
		Tags:      tags,
		CreatedAt: view.CreatedAt,
		UpdatedAt: view.UpdatedAt,
	}
}

// toFilterResponses はFilterViewのスライスをAPIレスポンスに変換する。
func toFilterResponses(views []model.FilterView) []filterResponse {
	responses := make([]filterResponse, len(views))
	for i := range views {
		responses[i] = toFilterResponse(&views[i])
	}
	return responses
}
