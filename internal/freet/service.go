// Package freet はFreet（短文投稿）のドメインロジックを提供する。
//
// 本文のCRUDに加え、信憑性投票と引用リンクのサブプロトコルを扱う。
package freet

import (
	"context"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/fritter/internal/model"
	"github.com/hitoshi/fritter/internal/repository"
	"github.com/hitoshi/fritter/internal/security"
)

// linkURLRegex は引用リンクに許可されるURLの形式。
var linkURLRegex = regexp.MustCompile(`^(http|https)://\S+$`)

// TagResolver はタグ名の列をTagに解決するインターフェース。
// tag.Serviceが実装する。
type TagResolver interface {
	FindOrCreateMany(ctx context.Context, names []string) ([]model.Tag, error)
}

// Service はFreetのサービス層。
// 作成・更新・削除は認可チェックを通過した後にのみ永続化層へ到達する。
type Service struct {
	freetRepo repository.FreetRepository
	voteRepo  repository.VoteRepository
	linkRepo  repository.LinkRepository
	userRepo  repository.UserRepository
	tags      TagResolver
	sanitizer security.ContentSanitizerService
	ssrfGuard security.SSRFGuardService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	freetRepo repository.FreetRepository,
	voteRepo repository.VoteRepository,
	linkRepo repository.LinkRepository,
	userRepo repository.UserRepository,
	tags TagResolver,
	sanitizer security.ContentSanitizerService,
	ssrfGuard security.SSRFGuardService,
) *Service {
	return &Service{
		freetRepo: freetRepo,
		voteRepo:  voteRepo,
		linkRepo:  linkRepo,
		userRepo:  userRepo,
		tags:      tags,
		sanitizer: sanitizer,
		ssrfGuard: ssrfGuard,
	}
}

// validateContent はサニタイズ済み本文を検証する。
// 空なら400相当、140文字超なら413相当のAPIErrorを返す。
func validateContent(content string) error {
	if content == "" {
		return model.NewInvalidContentError()
	}
	if utf8.RuneCountInString(content) > model.FreetContentMaxLength {
		return model.NewContentTooLongError()
	}
	return nil
}

// Create はFreetを作成する。
// 本文はサニタイズされ、検証（非空・140文字以内）を通過した後、
// タグ名が解決されてから1トランザクションで永続化される。
func (s *Service) Create(ctx context.Context, authorID, content string, tagNames []string) (*model.FreetView, error) {
	sanitized := s.sanitizer.Sanitize(content)
	if err := validateContent(sanitized); err != nil {
		return nil, err
	}

	tags, err := s.tags.FindOrCreateMany(ctx, tagNames)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	freet := &model.Freet{
		AuthorID:     authorID,
		Content:      sanitized,
		DateCreated:  now,
		DateModified: now,
		TagIDs:       tagIDs(tags),
	}
	if err := s.freetRepo.Create(ctx, freet); err != nil {
		return nil, fmt.Errorf("Freetの作成に失敗しました: %w", err)
	}

	return s.mustView(ctx, freet.ID)
}

// GetByID は指定IDのFreetをビューで取得する。
func (s *Service) GetByID(ctx context.Context, freetID string) (*model.FreetView, error) {
	view, err := s.freetRepo.FindViewByID(ctx, freetID)
	if err != nil {
		return nil, fmt.Errorf("Freetの取得に失敗しました: %w", err)
	}
	if view == nil {
		return nil, model.NewFreetNotFoundError(freetID)
	}
	return view, nil
}

// ListAll は全Freetを更新日時の新しい順で返す。
func (s *Service) ListAll(ctx context.Context) ([]model.FreetView, error) {
	views, err := s.freetRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("Freet一覧の取得に失敗しました: %w", err)
	}
	return views, nil
}

// ListByAuthorUsername は指定ユーザー名の著者のFreet一覧を返す。
// ユーザーが存在しない場合はUSER_NOT_FOUNDのAPIErrorを返す。
func (s *Service) ListByAuthorUsername(ctx context.Context, username string) ([]model.FreetView, error) {
	author, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("著者の取得に失敗しました: %w", err)
	}
	if author == nil {
		return nil, model.NewUserNotFoundError(username)
	}

	views, err := s.freetRepo.ListByAuthor(ctx, author.ID)
	if err != nil {
		return nil, fmt.Errorf("著者のFreet一覧の取得に失敗しました: %w", err)
	}
	return views, nil
}

// FilterByAuthorsOrTags は著者ID集合またはタグID集合に合致するFreetを返す。
// 照合は論理OR。フィルタサービスのコンテンツクエリから使用される。
func (s *Service) FilterByAuthorsOrTags(ctx context.Context, authorIDs, tagIDs []string) ([]model.FreetView, error) {
	views, err := s.freetRepo.FilterByAuthorsOrTags(ctx, authorIDs, tagIDs)
	if err != nil {
		return nil, fmt.Errorf("Freetの絞り込みに失敗しました: %w", err)
	}
	return views, nil
}

// Update はFreetの本文とタグ集合を置き換える。著者本人のみ実行できる。
// 検証順序: 存在チェック → 著者チェック → 本文検証。
func (s *Service) Update(ctx context.Context, userID, freetID, content string, tagNames []string) (*model.FreetView, error) {
	freet, err := s.freetRepo.FindByID(ctx, freetID)
	if err != nil {
		return nil, fmt.Errorf("Freetの取得に失敗しました: %w", err)
	}
	if freet == nil {
		return nil, model.NewFreetNotFoundError(freetID)
	}
	if freet.AuthorID != userID {
		return nil, model.NewForbiddenError("自分のFreet以外は編集できません")
	}

	sanitized := s.sanitizer.Sanitize(content)
	if err := validateContent(sanitized); err != nil {
		return nil, err
	}

	tags, err := s.tags.FindOrCreateMany(ctx, tagNames)
	if err != nil {
		return nil, err
	}

	freet.Content = sanitized
	freet.TagIDs = tagIDs(tags)
	freet.DateModified = time.Now()
	if err := s.freetRepo.Update(ctx, freet); err != nil {
		return nil, fmt.Errorf("Freetの更新に失敗しました: %w", err)
	}

	return s.mustView(ctx, freetID)
}

// Delete はFreetを削除する。著者本人のみ実行できる。
// 投票・引用リンク・タグ関連は一緒に削除される。
func (s *Service) Delete(ctx context.Context, userID, freetID string) error {
	freet, err := s.freetRepo.FindByID(ctx, freetID)
	if err != nil {
		return fmt.Errorf("Freetの取得に失敗しました: %w", err)
	}
	if freet == nil {
		return model.NewFreetNotFoundError(freetID)
	}
	if freet.AuthorID != userID {
		return model.NewForbiddenError("自分のFreet以外は削除できません")
	}

	if err := s.freetRepo.DeleteByID(ctx, freetID); err != nil {
		return fmt.Errorf("Freetの削除に失敗しました: %w", err)
	}
	return nil
}

// AddVote はFreetに信憑性投票を追加する。
// 同一ユーザーの2票目は投票方向に関わらずDUPLICATE_VOTEで拒否される。
// 重複検査は読み取りを挟まない単一INSERTの一意制約で行うため、
// 並行する2リクエストが両方成功することはない。
func (s *Service) AddVote(ctx context.Context, freetID, issuerID string, credible bool) (*model.Vote, error) {
	if err := s.requireFreet(ctx, freetID); err != nil {
		return nil, err
	}

	vote := &model.Vote{
		FreetID:   freetID,
		IssuerID:  issuerID,
		Credible:  credible,
		CreatedAt: time.Now(),
	}
	if err := s.voteRepo.Add(ctx, vote); err != nil {
		if model.IsAPIError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("投票の追加に失敗しました: %w", err)
	}
	return vote, nil
}

// RemoveVote はFreetからユーザー自身の投票を取り除く。
// 投票が存在しない場合はVOTE_NOT_FOUNDのAPIErrorを返す。
func (s *Service) RemoveVote(ctx context.Context, freetID, issuerID string) error {
	if err := s.requireFreet(ctx, freetID); err != nil {
		return err
	}

	if err := s.voteRepo.Remove(ctx, freetID, issuerID); err != nil {
		if model.IsAPIError(err) {
			return err
		}
		return fmt.Errorf("投票の削除に失敗しました: %w", err)
	}
	return nil
}

// ListVotes は指定Freetの投票一覧を発行者名付きで返す。
func (s *Service) ListVotes(ctx context.Context, freetID string) ([]model.VoteView, error) {
	if err := s.requireFreet(ctx, freetID); err != nil {
		return nil, err
	}

	views, err := s.voteRepo.ListViewsByFreet(ctx, freetID)
	if err != nil {
		return nil, fmt.Errorf("投票一覧の取得に失敗しました: %w", err)
	}
	return views, nil
}

// AddLink はFreetに引用リンクを追加する。
// URLは形式検証（http/httpsスキーム）とSSRF事前検証の両方を通過する
// 必要がある。どちらに失敗してもINVALID_URLのAPIErrorを返す。
func (s *Service) AddLink(ctx context.Context, freetID, issuerID, rawURL string) (*model.ReferenceLink, error) {
	if err := s.requireFreet(ctx, freetID); err != nil {
		return nil, err
	}

	if !linkURLRegex.MatchString(rawURL) {
		return nil, model.NewInvalidURLError("URLはhttp://またはhttps://で始まる必要があります")
	}
	if err := s.ssrfGuard.ValidateURL(rawURL); err != nil {
		return nil, model.NewInvalidURLError(err.Error())
	}

	link := &model.ReferenceLink{
		FreetID:   freetID,
		IssuerID:  issuerID,
		URL:       rawURL,
		CreatedAt: time.Now(),
	}
	if err := s.linkRepo.Add(ctx, link); err != nil {
		return nil, fmt.Errorf("引用リンクの追加に失敗しました: %w", err)
	}
	return link, nil
}

// RemoveLink はFreetから引用リンクを取り除く。発行者本人のみ実行できる。
// 検証順序: Freet存在チェック → リンク存在チェック → 発行者チェック。
func (s *Service) RemoveLink(ctx context.Context, freetID, issuerID, linkID string) error {
	if err := s.requireFreet(ctx, freetID); err != nil {
		return err
	}

	link, err := s.linkRepo.FindByFreetAndID(ctx, freetID, linkID)
	if err != nil {
		return fmt.Errorf("引用リンクの取得に失敗しました: %w", err)
	}
	if link == nil {
		return model.NewLinkNotFoundError(linkID)
	}
	if link.IssuerID != issuerID {
		return model.NewForbiddenError("自分が追加したリンク以外は削除できません")
	}

	if err := s.linkRepo.Delete(ctx, linkID); err != nil {
		if model.IsAPIError(err) {
			return err
		}
		return fmt.Errorf("引用リンクの削除に失敗しました: %w", err)
	}
	return nil
}

// ListLinks は指定Freetの引用リンク一覧を発行者名付きで返す。
func (s *Service) ListLinks(ctx context.Context, freetID string) ([]model.ReferenceLinkView, error) {
	if err := s.requireFreet(ctx, freetID); err != nil {
		return nil, err
	}

	views, err := s.linkRepo.ListViewsByFreet(ctx, freetID)
	if err != nil {
		return nil, fmt.Errorf("引用リンク一覧の取得に失敗しました: %w", err)
	}
	return views, nil
}

// requireFreet はFreetの存在を確認し、なければFREET_NOT_FOUNDを返す。
func (s *Service) requireFreet(ctx context.Context, freetID string) error {
	freet, err := s.freetRepo.FindByID(ctx, freetID)
	if err != nil {
		return fmt.Errorf("Freetの取得に失敗しました: %w", err)
	}
	if freet == nil {
		return model.NewFreetNotFoundError(freetID)
	}
	return nil
}

// mustView は作成・更新直後のFreetをビューで取り直す。
func (s *Service) mustView(ctx context.Context, freetID string) (*model.FreetView, error) {
	view, err := s.freetRepo.FindViewByID(ctx, freetID)
	if err != nil {
		return nil, fmt.Errorf("Freetの再取得に失敗しました: %w", err)
	}
	if view == nil {
		return nil, fmt.Errorf("作成直後のFreetが見つかりません: %s", freetID)
	}
	return view, nil
}

// tagIDs はTagのスライスからIDのスライスを取り出す。
// 解決結果は入力名と同数返るため、重複IDは除いて集合として扱う。
func tagIDs(tags []model.Tag) []string {
	seen := make(map[string]bool, len(tags))
	ids := make([]string, 0, len(tags))
	for _, t := range tags {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		ids = append(ids, t.ID)
	}
	return ids
}
