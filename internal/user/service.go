// Package user はユーザー登録と退会のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/fritter/internal/model"
	"github.com/hitoshi/fritter/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// minPasswordLength はパスワードの最小文字数。
const minPasswordLength = 8

// Service はユーザー管理のサービス層。
// 退会時は所有リソースと他ユーザーのリソースに残る参照の両方を掃除する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	freetRepo   repository.FreetRepository
	voteRepo    repository.VoteRepository
	linkRepo    repository.LinkRepository
	followRepo  repository.FollowRepository
	filterRepo  repository.FilterRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	freetRepo repository.FreetRepository,
	voteRepo repository.VoteRepository,
	linkRepo repository.LinkRepository,
	followRepo repository.FollowRepository,
	filterRepo repository.FilterRepository,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		freetRepo:   freetRepo,
		voteRepo:    voteRepo,
		linkRepo:    linkRepo,
		followRepo:  followRepo,
		filterRepo:  filterRepo,
	}
}

// Register は新規ユーザーを作成する。
// ユーザー名は非空の英数字かつ大文字小文字を無視して一意、
// パスワードは8文字以上。パスワードはbcryptでハッシュ化して保存する。
func (s *Service) Register(ctx context.Context, username, password string) (*model.User, error) {
	if !model.IsValidTagName(username) {
		return nil, model.NewInvalidUsernameError()
	}
	if len(password) < minPasswordLength {
		return nil, model.NewInvalidPasswordError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := time.Now()
	user := &model.User{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if model.IsAPIError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("user registered", slog.String("user_id", user.ID))
	return user, nil
}

// GetByUsername はユーザー名でユーザーを取得する。
func (s *Service) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(username)
	}
	return user, nil
}

// DeleteAccount はユーザーと関連リソースを削除する。
// 掃除の順序:
//  1. 本人が発行した投票
//  2. 本人が追加した引用リンク
//  3. フォロー（フォロワー側・対象側の両方）
//  4. 他ユーザーのフィルタのユーザー集合から本人を除去
//  5. 本人のフィルタ
//  6. 本人のFreet（投票・リンク・タグ関連は連鎖削除）
//  7. セッション
//  8. ユーザー本体
//
// 各ステップは独立した削除であり、複数エンティティをまたぐ
// トランザクションは張らない。途中で失敗した場合は残りを中断し
// エラーを返す（再実行で続きから掃除できる順序にしてある）。
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.voteRepo.DeleteByIssuer(ctx, userID); err != nil {
		return fmt.Errorf("投票の掃除に失敗しました: %w", err)
	}
	if err := s.linkRepo.DeleteByIssuer(ctx, userID); err != nil {
		return fmt.Errorf("引用リンクの掃除に失敗しました: %w", err)
	}
	if err := s.followRepo.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("フォローの掃除に失敗しました: %w", err)
	}
	if err := s.filterRepo.RemoveUserFromAll(ctx, userID); err != nil {
		return fmt.Errorf("フィルタ参照の掃除に失敗しました: %w", err)
	}
	if err := s.filterRepo.DeleteByOwner(ctx, userID); err != nil {
		return fmt.Errorf("フィルタの掃除に失敗しました: %w", err)
	}
	if err := s.freetRepo.DeleteByAuthor(ctx, userID); err != nil {
		return fmt.Errorf("Freetの掃除に失敗しました: %w", err)
	}
	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("セッションの掃除に失敗しました: %w", err)
	}
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("user account deleted", slog.String("user_id", userID))
	return nil
}
