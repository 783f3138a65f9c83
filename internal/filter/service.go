// Package filter は保存フィルタとコンテンツクエリのドメインロジックを提供する。
//
// フィルタは「フォローしたいユーザー名の集合とタグの集合」に名前を付けて
// 保存したもの。コンテンツクエリは保存フィルタまたは明示的なリストを
// (authorIds, tagIds) の組に解決し、Freetストアの絞り込みに委譲する。
// 照合は論理OR（和集合）であり、積集合ではない。
package filter

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/fritter/internal/model"
	"github.com/hitoshi/fritter/internal/repository"
)

// TagResolver はタグ名をTagに解決するインターフェース。tag.Serviceが実装する。
type TagResolver interface {
	FindOrCreateMany(ctx context.Context, names []string) ([]model.Tag, error)
}

// FreetFilterer は著者・タグ集合によるFreet絞り込みのインターフェース。
// freet.Serviceが実装する。
type FreetFilterer interface {
	FilterByAuthorsOrTags(ctx context.Context, authorIDs, tagIDs []string) ([]model.FreetView, error)
}

// Service は保存フィルタのサービス層。
type Service struct {
	filterRepo repository.FilterRepository
	userRepo   repository.UserRepository
	tags       TagResolver
	freets     FreetFilterer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	filterRepo repository.FilterRepository,
	userRepo repository.UserRepository,
	tags TagResolver,
	freets FreetFilterer,
) *Service {
	return &Service{
		filterRepo: filterRepo,
		userRepo:   userRepo,
		tags:       tags,
		freets:     freets,
	}
}

// ListMine は所有者のフィルタ一覧を返す。
func (s *Service) ListMine(ctx context.Context, ownerID string) ([]model.FilterView, error) {
	views, err := s.filterRepo.ListViewsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("フィルタ一覧の取得に失敗しました: %w", err)
	}
	return views, nil
}

// GetByName は所有者のフィルタを名前で取得する。
func (s *Service) GetByName(ctx context.Context, ownerID, name string) (*model.FilterView, error) {
	filter, err := s.filterRepo.FindByOwnerAndName(ctx, ownerID, name)
	if err != nil {
		return nil, fmt.Errorf("フィルタの取得に失敗しました: %w", err)
	}
	if filter == nil {
		return nil, model.NewFilterNotFoundError(name)
	}
	return s.mustView(ctx, filter.ID)
}

// Create はフィルタを作成する。
// 名前は非空の英数字、所有者ごとに一意。ユーザー名は全て解決できる
// 必要があり、タグは遅延作成される。
func (s *Service) Create(ctx context.Context, ownerID, name string, usernames, tagNames []string) (*model.FilterView, error) {
	if !model.IsValidTagName(name) {
		return nil, model.NewInvalidFilterNameError()
	}

	userIDs, err := s.resolveUsernames(ctx, usernames)
	if err != nil {
		return nil, err
	}
	tags, err := s.tags.FindOrCreateMany(ctx, tagNames)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	filter := &model.Filter{
		OwnerID:   ownerID,
		Name:      name,
		UserIDs:   userIDs,
		TagIDs:    tagIDsOf(tags),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.filterRepo.Create(ctx, filter); err != nil {
		if model.IsAPIError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("フィルタの作成に失敗しました: %w", err)
	}

	return s.mustView(ctx, filter.ID)
}

// Update はフィルタの名前・ユーザー集合・タグ集合を置き換える。
// 所有者本人のみ実行できる。同じ名前への「改名」は衝突にならない。
func (s *Service) Update(ctx context.Context, ownerID, filterID, name string, usernames, tagNames []string) (*model.FilterView, error) {
	filter, err := s.filterRepo.FindByID(ctx, filterID)
	if err != nil {
		return nil, fmt.Errorf("フィルタの取得に失敗しました: %w", err)
	}
	if filter == nil {
		return nil, model.NewFilterNotFoundError(filterID)
	}
	if filter.OwnerID != ownerID {
		return nil, model.NewForbiddenError("自分のフィルタ以外は編集できません")
	}

	if !model.IsValidTagName(name) {
		return nil, model.NewInvalidFilterNameError()
	}

	// 別のフィルタが同名を使っていないか。自分自身への改名は許可する。
	if name != filter.Name {
		existing, err := s.filterRepo.FindByOwnerAndName(ctx, ownerID, name)
		if err != nil {
			return nil, fmt.Errorf("フィルタ名の確認に失敗しました: %w", err)
		}
		if existing != nil {
			return nil, model.NewDuplicateFilterNameError(name)
		}
	}

	userIDs, err := s.resolveUsernames(ctx, usernames)
	if err != nil {
		return nil, err
	}
	tags, err := s.tags.FindOrCreateMany(ctx, tagNames)
	if err != nil {
		return nil, err
	}

	filter.Name = name
	filter.UserIDs = userIDs
	filter.TagIDs = tagIDsOf(tags)
	filter.UpdatedAt = time.Now()
	if err := s.filterRepo.Update(ctx, filter); err != nil {
		if model.IsAPIError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("フィルタの更新に失敗しました: %w", err)
	}

	return s.mustView(ctx, filterID)
}

// Delete はフィルタを削除する。所有者本人のみ実行できる。
func (s *Service) Delete(ctx context.Context, ownerID, filterID string) error {
	filter, err := s.filterRepo.FindByID(ctx, filterID)
	if err != nil {
		return fmt.Errorf("フィルタの取得に失敗しました: %w", err)
	}
	if filter == nil {
		return model.NewFilterNotFoundError(filterID)
	}
	if filter.OwnerID != ownerID {
		return model.NewForbiddenError("自分のフィルタ以外は削除できません")
	}

	if err := s.filterRepo.DeleteByID(ctx, filterID); err != nil {
		return fmt.Errorf("フィルタの削除に失敗しました: %w", err)
	}
	return nil
}

// QueryByFilterName は保存フィルタを名前で解決し、合致するFreetを返す。
func (s *Service) QueryByFilterName(ctx context.Context, ownerID, name string) ([]model.FreetView, error) {
	filter, err := s.filterRepo.FindByOwnerAndName(ctx, ownerID, name)
	if err != nil {
		return nil, fmt.Errorf("フィルタの取得に失敗しました: %w", err)
	}
	if filter == nil {
		return nil, model.NewFilterNotFoundError(name)
	}
	return s.freets.FilterByAuthorsOrTags(ctx, filter.UserIDs, filter.TagIDs)
}

// QueryByLists は明示的なユーザー名・タグ名のリストを解決し、
// 合致するFreetを返す。未知のユーザー名はNotFoundになる。
func (s *Service) QueryByLists(ctx context.Context, usernames, tagNames []string) ([]model.FreetView, error) {
	userIDs, err := s.resolveUsernames(ctx, usernames)
	if err != nil {
		return nil, err
	}
	tags, err := s.tags.FindOrCreateMany(ctx, tagNames)
	if err != nil {
		return nil, err
	}
	return s.freets.FilterByAuthorsOrTags(ctx, userIDs, tagIDsOf(tags))
}

// resolveUsernames はユーザー名の列をユーザーIDに解決する。
// 1つでも未知のユーザー名があればUSER_NOT_FOUNDのAPIErrorを返す。
func (s *Service) resolveUsernames(ctx context.Context, usernames []string) ([]string, error) {
	userIDs := make([]string, 0, len(usernames))
	seen := make(map[string]bool, len(usernames))
	for _, username := range usernames {
		user, err := s.userRepo.FindByUsername(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("ユーザーの解決に失敗しました: %w", err)
		}
		if user == nil {
			return nil, model.NewUserNotFoundError(username)
		}
		if seen[user.ID] {
			continue
		}
		seen[user.ID] = true
		userIDs = append(userIDs, user.ID)
	}
	return userIDs, nil
}

func (s *Service) mustView(ctx context.Context, filterID string) (*model.FilterView, error) {
	view, err := s.filterRepo.FindViewByID(ctx, filterID)
	if err != nil {
		return nil, fmt.Errorf("フィルタの再取得に失敗しました: %w", err)
	}
	if view == nil {
		return nil, fmt.Errorf("作成直後のフィルタが見つかりません: %s", filterID)
	}
	return view, nil
}

// tagIDsOf はTagのスライスからIDの集合を取り出す。同名の重複参照は1件に畳む。
func tagIDsOf(tags []model.Tag) []string {
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
