package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/fritter/internal/model"
)

// PostgresFollowRepo はPostgreSQLを使用したフォローリポジトリ。
// 対象はユーザーまたはタグで、target_kindとNULL可能な2本の外部キー列で
// 表現する。CHECK制約により常にどちらか一方だけが設定される。
type PostgresFollowRepo struct {
	db *sql.DB
}

// NewPostgresFollowRepo はPostgresFollowRepoを生成する。
func NewPostgresFollowRepo(db *sql.DB) *PostgresFollowRepo {
	return &PostgresFollowRepo{db: db}
}

// followViewSelect は対象名をkindに応じて解決する共通SELECT句。
const followViewSelect = `
	SELECT f.id, f.follower_id, f.target_kind,
	       COALESCE(f.target_user_id, f.target_tag_id),
	       f.created_at, fu.username,
	       CASE f.target_kind
	           WHEN 'user' THEN tu.username
	           ELSE tt.name
	       END
	FROM follows f
	JOIN users fu ON f.follower_id = fu.id
	LEFT JOIN users tu ON f.target_user_id = tu.id
	LEFT JOIN tags tt ON f.target_tag_id = tt.id`

// targetColumns はkindに応じた(target_user_id, target_tag_id)の値を返す。
func targetColumns(kind model.FollowTargetKind, targetID string) (any, any) {
	if kind == model.FollowTargetUser {
		return targetID, nil
	}
	return nil, targetID
}

// Create はフォローを作成する。(follower, target)ごとの部分一意
// インデックスにより二重フォローは単一INSERTで拒否される。
func (r *PostgresFollowRepo) Create(ctx context.Context, follow *model.Follow) error {
	if follow.ID == "" {
		follow.ID = uuid.NewString()
	}
	targetUserID, targetTagID := targetColumns(follow.TargetKind, follow.TargetID)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO follows (id, follower_id, target_kind, target_user_id, target_tag_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		follow.ID, follow.FollowerID, string(follow.TargetKind), targetUserID, targetTagID, follow.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.NewDuplicateFollowError()
		}
		return fmt.Errorf("フォローの作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDのフォローを取得する。見つからない場合はnilを返す。
func (r *PostgresFollowRepo) FindByID(ctx context.Context, id string) (*model.Follow, error) {
	follow := &model.Follow{}
	var kind string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, follower_id, target_kind,
		        COALESCE(target_user_id, target_tag_id), created_at
		 FROM follows WHERE id = $1`,
		id,
	).Scan(&follow.ID, &follow.FollowerID, &kind, &follow.TargetID, &follow.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("フォローの取得に失敗しました: %w", err)
	}
	follow.TargetKind = model.FollowTargetKind(kind)
	return follow, nil
}

// FindByFollowerAndTarget はフォロワーと対象の組でフォローを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresFollowRepo) FindByFollowerAndTarget(ctx context.Context, followerID string, kind model.FollowTargetKind, targetID string) (*model.Follow, error) {
	column := "target_user_id"
	if kind == model.FollowTargetTag {
		column = "target_tag_id"
	}
	follow := &model.Follow{}
	var scannedKind string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, follower_id, target_kind,
		        COALESCE(target_user_id, target_tag_id), created_at
		 FROM follows WHERE follower_id = $1 AND `+column+` = $2`,
		followerID, targetID,
	).Scan(&follow.ID, &follow.FollowerID, &scannedKind, &follow.TargetID, &follow.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("フォローの検索に失敗しました: %w", err)
	}
	follow.TargetKind = model.FollowTargetKind(scannedKind)
	return follow, nil
}

// ListViewsByFollower は指定ユーザーのフォロー一覧を名前解決付きで返す。
func (r *PostgresFollowRepo) ListViewsByFollower(ctx context.Context, followerID string) ([]model.FollowView, error) {
	return r.queryViews(ctx,
		followViewSelect+` WHERE f.follower_id = $1 ORDER BY f.created_at ASC`,
		followerID,
	)
}

// ListViewsByTarget は指定対象をフォローしているエッジ一覧を返す。
func (r *PostgresFollowRepo) ListViewsByTarget(ctx context.Context, kind model.FollowTargetKind, targetID string) ([]model.FollowView, error) {
	column := "f.target_user_id"
	if kind == model.FollowTargetTag {
		column = "f.target_tag_id"
	}
	return r.queryViews(ctx,
		followViewSelect+` WHERE `+column+` = $1 ORDER BY f.created_at ASC`,
		targetID,
	)
}

// DeleteByID は指定IDのフォローを削除する。
func (r *PostgresFollowRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM follows WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("フォローの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("follow not found: %s", id)
	}
	return nil
}

// DeleteByUser は指定ユーザーがフォロワーまたは対象である全フォローを削除する。
func (r *PostgresFollowRepo) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = $1 OR target_user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("ユーザーの全フォローの削除に失敗しました: %w", err)
	}
	return nil
}

func (r *PostgresFollowRepo) queryViews(ctx context.Context, query string, args ...any) ([]model.FollowView, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("フォロー一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var views []model.FollowView
	for rows.Next() {
		var v model.FollowView
		var kind string
		if err := rows.Scan(&v.ID, &v.FollowerID, &kind, &v.TargetID, &v.CreatedAt, &v.FollowerUsername, &v.TargetName); err != nil {
			return nil, fmt.Errorf("フォロー行の読み取りに失敗しました: %w", err)
		}
		v.TargetKind = model.FollowTargetKind(kind)
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("フォロー一覧の走査に失敗しました: %w", err)
	}
	return views, nil
}

// compile-time interface check
var _ FollowRepository = (*PostgresFollowRepo)(nil)
