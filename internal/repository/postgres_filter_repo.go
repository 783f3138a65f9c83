package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/fritter/internal/model"
	"github.com/lib/pq"
)

// PostgresFilterRepo はPostgreSQLを使用した保存フィルタリポジトリ。
// フィルタ本体とユーザー集合・タグ集合をfilters、filter_users、
// filter_tagsの3テーブルで表現する。
type PostgresFilterRepo struct {
	db *sql.DB
}

// NewPostgresFilterRepo はPostgresFilterRepoを生成する。
func NewPostgresFilterRepo(db *sql.DB) *PostgresFilterRepo {
	return &PostgresFilterRepo{db: db}
}

// Create はフィルタと関連行を同一トランザクションで作成する。
// (owner_id, name)の一意制約により同名フィルタは拒否される。
func (r *PostgresFilterRepo) Create(ctx context.Context, filter *model.Filter) error {
	if filter.ID == "" {
		filter.ID = uuid.NewString()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO filters (id, owner_id, name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		filter.ID, filter.OwnerID, filter.Name, filter.CreatedAt, filter.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.NewDuplicateFilterNameError(filter.Name)
		}
		return fmt.Errorf("フィルタの作成に失敗しました: %w", err)
	}

	if err := insertFilterMembers(ctx, tx, filter); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// insertFilterMembers はフィルタのユーザー・タグ関連行を挿入する。
func insertFilterMembers(ctx context.Context, tx *sql.Tx, filter *model.Filter) error {
	for _, userID := range filter.UserIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO filter_users (filter_id, user_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			filter.ID, userID,
		)
		if err != nil {
			return fmt.Errorf("フィルタのユーザー関連の作成に失敗しました: %w", err)
		}
	}
	for _, tagID := range filter.TagIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO filter_tags (filter_id, tag_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			filter.ID, tagID,
		)
		if err != nil {
			return fmt.Errorf("フィルタのタグ関連の作成に失敗しました: %w", err)
		}
	}
	return nil
}

// FindByID は指定IDのフィルタを取得する。見つからない場合はnilを返す。
func (r *PostgresFilterRepo) FindByID(ctx context.Context, id string) (*model.Filter, error) {
	return r.findOne(ctx,
		`SELECT id, owner_id, name, created_at, updated_at FROM filters WHERE id = $1`,
		id,
	)
}

// FindByOwnerAndName は所有者と名前でフィルタを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresFilterRepo) FindByOwnerAndName(ctx context.Context, ownerID, name string) (*model.Filter, error) {
	return r.findOne(ctx,
		`SELECT id, owner_id, name, created_at, updated_at FROM filters WHERE owner_id = $1 AND name = $2`,
		ownerID, name,
	)
}

func (r *PostgresFilterRepo) findOne(ctx context.Context, query string, args ...any) (*model.Filter, error) {
	filter := &model.Filter{}
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&filter.ID, &filter.OwnerID, &filter.Name, &filter.CreatedAt, &filter.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("フィルタの取得に失敗しました: %w", err)
	}

	if err := r.loadMembers(ctx, filter); err != nil {
		return nil, err
	}
	return filter, nil
}

// loadMembers はフィルタのユーザーID・タグID集合を読み込む。
func (r *PostgresFilterRepo) loadMembers(ctx context.Context, filter *model.Filter) error {
	userRows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM filter_users WHERE filter_id = $1`,
		filter.ID,
	)
	if err != nil {
		return fmt.Errorf("フィルタのユーザー関連の取得に失敗しました: %w", err)
	}
	defer userRows.Close()
	for userRows.Next() {
		var userID string
		if err := userRows.Scan(&userID); err != nil {
			return fmt.Errorf("フィルタのユーザー関連行の読み取りに失敗しました: %w", err)
		}
		filter.UserIDs = append(filter.UserIDs, userID)
	}
	if err := userRows.Err(); err != nil {
		return fmt.Errorf("フィルタのユーザー関連の走査に失敗しました: %w", err)
	}

	tagRows, err := r.db.QueryContext(ctx,
		`SELECT tag_id FROM filter_tags WHERE filter_id = $1`,
		filter.ID,
	)
	if err != nil {
		return fmt.Errorf("フィルタのタグ関連の取得に失敗しました: %w", err)
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var tagID string
		if err := tagRows.Scan(&tagID); err != nil {
			return fmt.Errorf("フィルタのタグ関連行の読み取りに失敗しました: %w", err)
		}
		filter.TagIDs = append(filter.TagIDs, tagID)
	}
	if err := tagRows.Err(); err != nil {
		return fmt.Errorf("フィルタのタグ関連の走査に失敗しました: %w", err)
	}
	return nil
}

// FindViewByID は指定IDのフィルタを参照解決済みビューで取得する。
func (r *PostgresFilterRepo) FindViewByID(ctx context.Context, id string) (*model.FilterView, error) {
	views, err := r.queryViews(ctx,
		`SELECT f.id, f.owner_id, f.name, f.created_at, f.updated_at, u.username
		 FROM filters f
		 JOIN users u ON f.owner_id = u.id
		 WHERE f.id = $1`,
		id,
	)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, nil
	}
	return &views[0], nil
}

// ListViewsByOwner は所有者のフィルタ一覧を参照解決済みビューで返す。
func (r *PostgresFilterRepo) ListViewsByOwner(ctx context.Context, ownerID string) ([]model.FilterView, error) {
	return r.queryViews(ctx,
		`SELECT f.id, f.owner_id, f.name, f.created_at, f.updated_at, u.username
		 FROM filters f
		 JOIN users u ON f.owner_id = u.id
		 WHERE f.owner_id = $1
		 ORDER BY f.created_at ASC`,
		ownerID,
	)
}

// Update は名前・ユーザー集合・タグ集合を全置換する。
func (r *PostgresFilterRepo) Update(ctx context.Context, filter *model.Filter) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE filters SET name = $2, updated_at = $3 WHERE id = $1`,
		filter.ID, filter.Name, filter.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.NewDuplicateFilterNameError(filter.Name)
		}
		return fmt.Errorf("フィルタの更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("filter not found: %s", filter.ID)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM filter_users WHERE filter_id = $1`, filter.ID,
	); err != nil {
		return fmt.Errorf("フィルタのユーザー関連の削除に失敗しました: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM filter_tags WHERE filter_id = $1`, filter.ID,
	); err != nil {
		return fmt.Errorf("フィルタのタグ関連の削除に失敗しました: %w", err)
	}
	if err := insertFilterMembers(ctx, tx, filter); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのフィルタを削除する。関連行はCASCADEで削除される。
func (r *PostgresFilterRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM filters WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("フィルタの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("filter not found: %s", id)
	}
	return nil
}

// DeleteByOwner は所有者の全フィルタを削除する。
func (r *PostgresFilterRepo) DeleteByOwner(ctx context.Context, ownerID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM filters WHERE owner_id = $1`,
		ownerID,
	)
	if err != nil {
		return fmt.Errorf("所有者の全フィルタの削除に失敗しました: %w", err)
	}
	return nil
}

// RemoveUserFromAll は全フィルタのユーザー集合から指定ユーザーを取り除く。
// 退会ユーザーを参照し続ける集合を残さないための掃除で、
// フィルタ自体は空になっても削除しない。
func (r *PostgresFilterRepo) RemoveUserFromAll(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM filter_users WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("フィルタからのユーザー除去に失敗しました: %w", err)
	}
	return nil
}

// queryViews はビューSELECTを実行し、ユーザー名・タグ名を付加した
// FilterViewのスライスを返す。
func (r *PostgresFilterRepo) queryViews(ctx context.Context, query string, args ...any) ([]model.FilterView, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("フィルタ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var views []model.FilterView
	index := make(map[string]int)
	for rows.Next() {
		var v model.FilterView
		if err := rows.Scan(&v.ID, &v.OwnerID, &v.Name, &v.CreatedAt, &v.UpdatedAt, &v.OwnerUsername); err != nil {
			return nil, fmt.Errorf("フィルタ行の読み取りに失敗しました: %w", err)
		}
		index[v.ID] = len(views)
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("フィルタ一覧の走査に失敗しました: %w", err)
	}

	if len(views) == 0 {
		return views, nil
	}

	ids := make([]string, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}

	userRows, err := r.db.QueryContext(ctx,
		`SELECT fu.filter_id, u.id, u.username
		 FROM filter_users fu
		 JOIN users u ON fu.user_id = u.id
		 WHERE fu.filter_id = ANY($1)
		 ORDER BY u.username ASC`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("フィルタのユーザー名の付加に失敗しました: %w", err)
	}
	defer userRows.Close()
	for userRows.Next() {
		var filterID, userID, username string
		if err := userRows.Scan(&filterID, &userID, &username); err != nil {
			return nil, fmt.Errorf("フィルタのユーザー行の読み取りに失敗しました: %w", err)
		}
		i := index[filterID]
		views[i].UserIDs = append(views[i].UserIDs, userID)
		views[i].Usernames = append(views[i].Usernames, username)
	}
	if err := userRows.Err(); err != nil {
		return nil, fmt.Errorf("フィルタのユーザー名の走査に失敗しました: %w", err)
	}

	tagRows, err := r.db.QueryContext(ctx,
		`SELECT ft.filter_id, t.id, t.name
		 FROM filter_tags ft
		 JOIN tags t ON ft.tag_id = t.id
		 WHERE ft.filter_id = ANY($1)
		 ORDER BY t.name ASC`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("フィルタのタグ名の付加に失敗しました: %w", err)
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var filterID, tagID, tagName string
		if err := tagRows.Scan(&filterID, &tagID, &tagName); err != nil {
			return nil, fmt.Errorf("フィルタのタグ行の読み取りに失敗しました: %w", err)
		}
		i := index[filterID]
		views[i].TagIDs = append(views[i].TagIDs, tagID)
		views[i].TagNames = append(views[i].TagNames, tagName)
	}
	if err := tagRows.Err(); err != nil {
		return nil, fmt.Errorf("フィルタのタグ名の走査に失敗しました: %w", err)
	}

	return views, nil
}

// compile-time interface check
var _ FilterRepository = (*PostgresFilterRepo)(nil)
