// Package follow はフォローグラフのドメインロジックを提供する。
//
// フォローはユーザーから「ユーザーまたはタグ」への有向エッジで、
// 対象の種別はタグ付き共用体（model.FollowTargetKind）で判別する。
package follow

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

// Service はフォローグラフのサービス層。
type Service struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	tags       TagResolver
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
	tags TagResolver,
) *Service {
	return &Service{
		followRepo: followRepo,
		userRepo:   userRepo,
		tags:       tags,
	}
}

// Create はフォローエッジを作成する。
// 対象の解決はAPI上の種別表記（"User"/"Tag"）に基づく:
//   - User: ユーザー名を解決し、存在しなければUSER_NOT_FOUND
//   - Tag: タグを遅延作成する（存在しないタグ名はここで生まれる）
//
// 自己フォローと重複フォローはConflictで拒否される。
func (s *Service) Create(ctx context.Context, followerID, source, kindName string) (*model.FollowView, error) {
	kind, ok := model.ParseFollowTargetKind(kindName)
	if !ok {
		return nil, model.NewInvalidSourceTypeError()
	}

	var targetID string
	switch kind {
	case model.FollowTargetUser:
		target, err := s.userRepo.FindByUsername(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("フォロー対象の取得に失敗しました: %w", err)
		}
		if target == nil {
			return nil, model.NewUserNotFoundError(source)
		}
		if target.ID == followerID {
			return nil, model.NewSelfFollowError()
		}
		targetID = target.ID
	case model.FollowTargetTag:
		tags, err := s.tags.FindOrCreateMany(ctx, []string{source})
		if err != nil {
			return nil, err
		}
		targetID = tags[0].ID
	}

	follow := &model.Follow{
		FollowerID: followerID,
		TargetKind: kind,
		TargetID:   targetID,
		CreatedAt:  time.Now(),
	}
	if err := s.followRepo.Create(ctx, follow); err != nil {
		if model.IsAPIError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("フォローの作成に失敗しました: %w", err)
	}

	return s.findView(ctx, followerID, follow.ID)
}

// Delete はフォローエッジを削除する。フォロワー本人のみ実行できる。
func (s *Service) Delete(ctx context.Context, userID, followID string) error {
	follow, err := s.followRepo.FindByID(ctx, followID)
	if err != nil {
		return fmt.Errorf("フォローの取得に失敗しました: %w", err)
	}
	if follow == nil {
		return model.NewFollowNotFoundError(followID)
	}
	if follow.FollowerID != userID {
		return model.NewForbiddenError("自分のフォロー以外は解除できません")
	}

	if err := s.followRepo.DeleteByID(ctx, followID); err != nil {
		return fmt.Errorf("フォローの削除に失敗しました: %w", err)
	}
	return nil
}

// ListFollowing は指定ユーザー名のユーザーがフォローしている一覧を返す。
func (s *Service) ListFollowing(ctx context.Context, username string) ([]model.FollowView, error) {
	user, err := s.requireUser(ctx, username)
	if err != nil {
		return nil, err
	}

	views, err := s.followRepo.ListViewsByFollower(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("フォロー一覧の取得に失敗しました: %w", err)
	}
	return views, nil
}

// ListFollowers は指定ユーザー名のユーザーをフォローしている一覧を返す。
func (s *Service) ListFollowers(ctx context.Context, username string) ([]model.FollowView, error) {
	user, err := s.requireUser(ctx, username)
	if err != nil {
		return nil, err
	}

	views, err := s.followRepo.ListViewsByTarget(ctx, model.FollowTargetUser, user.ID)
	if err != nil {
		return nil, fmt.Errorf("フォロワー一覧の取得に失敗しました: %w", err)
	}
	return views, nil
}

func (s *Service) requireUser(ctx context.Context, username string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(username)
	}
	return user, nil
}

func (s *Service) findView(ctx context.Context, followerID, followID string) (*model.FollowView, error) {
	// 作成直後のビューはフォロワーの一覧から引き当てる
	views, err := s.followRepo.ListViewsByFollower(ctx, followerID)
	if err != nil {
		return nil, fmt.Errorf("フォローの再取得に失敗しました: %w", err)
	}
	for i := range views {
		if views[i].ID == followID {
			return &views[i], nil
		}
	}
	return nil, fmt.Errorf("作成直後のフォローが見つかりません: %s", followID)
}
