package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/fritter/internal/model"
	"github.com/lib/pq"
)

// PostgresFreetRepo はPostgreSQLを使用したFreetリポジトリ。
type PostgresFreetRepo struct {
	db *sql.DB
}

// NewPostgresFreetRepo はPostgresFreetRepoを生成する。
func NewPostgresFreetRepo(db *sql.DB) *PostgresFreetRepo {
	return &PostgresFreetRepo{db: db}
}

// freetViewSelect はビュー取得の共通SELECT句。著者名をJOINで解決する。
const freetViewSelect = `
	SELECT f.id, f.author_id, f.content, f.date_created, f.date_modified, u.username
	FROM freets f
	JOIN users u ON f.author_id = u.id`

// Create はFreetとタグ関連を同一トランザクションで作成する。
func (r *PostgresFreetRepo) Create(ctx context.Context, freet *model.Freet) error {
	if freet.ID == "" {
		freet.ID = uuid.NewString()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO freets (id, author_id, content, date_created, date_modified)
		 VALUES ($1, $2, $3, $4, $5)`,
		freet.ID, freet.AuthorID, freet.Content, freet.DateCreated, freet.DateModified,
	)
	if err != nil {
		return fmt.Errorf("Freetの作成に失敗しました: %w", err)
	}

	if err := insertFreetTags(ctx, tx, freet.ID, freet.TagIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// insertFreetTags はFreetとタグの関連行を挿入する。
func insertFreetTags(ctx context.Context, tx *sql.Tx, freetID string, tagIDs []string) error {
	for _, tagID := range tagIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO freet_tags (freet_id, tag_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			freetID, tagID,
		)
		if err != nil {
			return fmt.Errorf("タグ関連の作成に失敗しました: %w", err)
		}
	}
	return nil
}

// FindByID は指定IDのFreetを取得する。見つからない場合はnilを返す。
func (r *PostgresFreetRepo) FindByID(ctx context.Context, id string) (*model.Freet, error) {
	freet := &model.Freet{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, author_id, content, date_created, date_modified
		 FROM freets WHERE id = $1`,
		id,
	).Scan(&freet.ID, &freet.AuthorID, &freet.Content, &freet.DateCreated, &freet.DateModified)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Freetの取得に失敗しました: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT tag_id FROM freet_tags WHERE freet_id = $1`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("タグ関連の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tagID string
		if err := rows.Scan(&tagID); err != nil {
			return nil, fmt.Errorf("タグ関連行の読み取りに失敗しました: %w", err)
		}
		freet.TagIDs = append(freet.TagIDs, tagID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("タグ関連の走査に失敗しました: %w", err)
	}

	return freet, nil
}

// FindViewByID は指定IDのFreetを参照解決済みビューで取得する。
func (r *PostgresFreetRepo) FindViewByID(ctx context.Context, id string) (*model.FreetView, error) {
	views, err := r.queryViews(ctx, freetViewSelect+` WHERE f.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, nil
	}
	return &views[0], nil
}

// ListAll は全Freetのビューをdate_modified降順で返す。
func (r *PostgresFreetRepo) ListAll(ctx context.Context) ([]model.FreetView, error) {
	return r.queryViews(ctx, freetViewSelect+` ORDER BY f.date_modified DESC`)
}

// ListByAuthor は指定著者のFreetビューをdate_modified降順で返す。
func (r *PostgresFreetRepo) ListByAuthor(ctx context.Context, authorID string) ([]model.FreetView, error) {
	return r.queryViews(ctx,
		freetViewSelect+` WHERE f.author_id = $1 ORDER BY f.date_modified DESC`,
		authorID,
	)
}

// FilterByAuthorsOrTags は著者集合に属するか、タグ集合と交差するFreetの
// ビューを返す。照合は論理OR（和集合）であり、結果はID重複なしで
// date_modified降順に並ぶ。
func (r *PostgresFreetRepo) FilterByAuthorsOrTags(ctx context.Context, authorIDs, tagIDs []string) ([]model.FreetView, error) {
	return r.queryViews(ctx,
		freetViewSelect+`
		 WHERE f.author_id = ANY($1)
		    OR EXISTS (
		        SELECT 1 FROM freet_tags ft
		        WHERE ft.freet_id = f.id AND ft.tag_id = ANY($2)
		    )
		 ORDER BY f.date_modified DESC`,
		pq.Array(authorIDs), pq.Array(tagIDs),
	)
}

// Update は本文とタグ集合を置き換え、date_modifiedを更新する。
func (r *PostgresFreetRepo) Update(ctx context.Context, freet *model.Freet) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE freets SET content = $2, date_modified = $3 WHERE id = $1`,
		freet.ID, freet.Content, freet.DateModified,
	)
	if err != nil {
		return fmt.Errorf("Freetの更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("freet not found: %s", freet.ID)
	}

	// タグ集合は全置換する
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM freet_tags WHERE freet_id = $1`,
		freet.ID,
	); err != nil {
		return fmt.Errorf("タグ関連の削除に失敗しました: %w", err)
	}
	if err := insertFreetTags(ctx, tx, freet.ID, freet.TagIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのFreetを削除する。
// 投票・引用リンク・タグ関連は外部キーのCASCADEで削除される。
func (r *PostgresFreetRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM freets WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("Freetの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("freet not found: %s", id)
	}
	return nil
}

// DeleteByAuthor は指定著者の全Freetを削除する。
func (r *PostgresFreetRepo) DeleteByAuthor(ctx context.Context, authorID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM freets WHERE author_id = $1`,
		authorID,
	)
	if err != nil {
		return fmt.Errorf("著者の全Freetの削除に失敗しました: %w", err)
	}
	return nil
}

// queryViews はビューSELECTを実行し、タグ・投票・引用リンクを
// 付加したFreetViewのスライスを返す。参照解決は明示的なJOINと
// 一括取得で行い、外部キー制約により宙吊りの参照は発生しない。
func (r *PostgresFreetRepo) queryViews(ctx context.Context, query string, args ...any) ([]model.FreetView, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Freet一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var views []model.FreetView
	index := make(map[string]int)
	for rows.Next() {
		var v model.FreetView
		if err := rows.Scan(&v.ID, &v.AuthorID, &v.Content, &v.DateCreated, &v.DateModified, &v.AuthorUsername); err != nil {
			return nil, fmt.Errorf("Freet行の読み取りに失敗しました: %w", err)
		}
		index[v.ID] = len(views)
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Freet一覧の走査に失敗しました: %w", err)
	}

	if len(views) == 0 {
		return views, nil
	}

	ids := make([]string, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}

	if err := r.attachTags(ctx, ids, index, views); err != nil {
		return nil, err
	}
	if err := r.attachVotes(ctx, ids, index, views); err != nil {
		return nil, err
	}
	if err := r.attachLinks(ctx, ids, index, views); err != nil {
		return nil, err
	}

	return views, nil
}

// attachTags はビューにタグを一括で付加する。
func (r *PostgresFreetRepo) attachTags(ctx context.Context, ids []string, index map[string]int, views []model.FreetView) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ft.freet_id, t.id, t.name
		 FROM freet_tags ft
		 JOIN tags t ON ft.tag_id = t.id
		 WHERE ft.freet_id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("タグの付加に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var freetID string
		var tag model.Tag
		if err := rows.Scan(&freetID, &tag.ID, &tag.Name); err != nil {
			return fmt.Errorf("タグ行の読み取りに失敗しました: %w", err)
		}
		i := index[freetID]
		views[i].Tags = append(views[i].Tags, tag)
		views[i].TagIDs = append(views[i].TagIDs, tag.ID)
	}
	return rows.Err()
}

// attachVotes はビューに投票者名を信憑性の別で一括付加する。
func (r *PostgresFreetRepo) attachVotes(ctx context.Context, ids []string, index map[string]int, views []model.FreetView) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT v.freet_id, v.credible, u.username
		 FROM votes v
		 JOIN users u ON v.issuer_id = u.id
		 WHERE v.freet_id = ANY($1)
		 ORDER BY v.created_at ASC`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("投票の付加に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var freetID, username string
		var credible bool
		if err := rows.Scan(&freetID, &credible, &username); err != nil {
			return fmt.Errorf("投票行の読み取りに失敗しました: %w", err)
		}
		i := index[freetID]
		if credible {
			views[i].Upvoters = append(views[i].Upvoters, username)
		} else {
			views[i].Downvoters = append(views[i].Downvoters, username)
		}
	}
	return rows.Err()
}

// attachLinks はビューに引用リンクを一括付加する。
func (r *PostgresFreetRepo) attachLinks(ctx context.Context, ids []string, index map[string]int, views []model.FreetView) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT freet_id, id, issuer_id, url, COALESCE(title, ''), title_fetched_at, created_at
		 FROM freet_links
		 WHERE freet_id = ANY($1)
		 ORDER BY created_at ASC`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("引用リンクの付加に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var link model.ReferenceLink
		if err := rows.Scan(&link.FreetID, &link.ID, &link.IssuerID, &link.URL, &link.Title, &link.TitleFetchedAt, &link.CreatedAt); err != nil {
			return fmt.Errorf("引用リンク行の読み取りに失敗しました: %w", err)
		}
		i := index[link.FreetID]
		views[i].Links = append(views[i].Links, link)
	}
	return rows.Err()
}

// compile-time interface check
var _ FreetRepository = (*PostgresFreetRepo)(nil)
