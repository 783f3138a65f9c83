package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/fritter/internal/model"
)

// PostgresLinkRepo はPostgreSQLを使用した引用リンクリポジトリ。
type PostgresLinkRepo struct {
	db *sql.DB
}

// NewPostgresLinkRepo はPostgresLinkRepoを生成する。
func NewPostgresLinkRepo(db *sql.DB) *PostgresLinkRepo {
	return &PostgresLinkRepo{db: db}
}

// Add は引用リンクを作成する。タイトルはワーカーが後で取得するため
// 作成時点ではNULLのままにする。
func (r *PostgresLinkRepo) Add(ctx context.Context, link *model.ReferenceLink) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO freet_links (id, freet_id, issuer_id, url, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		link.ID, link.FreetID, link.IssuerID, link.URL, link.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("引用リンクの作成に失敗しました: %w", err)
	}
	return nil
}

// FindByFreetAndID は指定Freetに属する引用リンクを取得する。
// 見つからない場合はnilを返す。
func (r *PostgresLinkRepo) FindByFreetAndID(ctx context.Context, freetID, linkID string) (*model.ReferenceLink, error) {
	link := &model.ReferenceLink{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, freet_id, issuer_id, url, COALESCE(title, ''), title_fetched_at, created_at
		 FROM freet_links
		 WHERE freet_id = $1 AND id = $2`,
		freetID, linkID,
	).Scan(&link.ID, &link.FreetID, &link.IssuerID, &link.URL, &link.Title, &link.TitleFetchedAt, &link.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("引用リンクの取得に失敗しました: %w", err)
	}
	return link, nil
}

// Delete は指定IDの引用リンクを削除する。
func (r *PostgresLinkRepo) Delete(ctx context.Context, linkID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM freet_links WHERE id = $1`,
		linkID,
	)
	if err != nil {
		return fmt.Errorf("引用リンクの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewLinkNotFoundError(linkID)
	}
	return nil
}

// ListViewsByFreet は指定Freetの引用リンク一覧を発行者名付きで返す。
func (r *PostgresLinkRepo) ListViewsByFreet(ctx context.Context, freetID string) ([]model.ReferenceLinkView, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT l.id, l.freet_id, l.issuer_id, l.url, COALESCE(l.title, ''), l.title_fetched_at, l.created_at, u.username
		 FROM freet_links l
		 JOIN users u ON l.issuer_id = u.id
		 WHERE l.freet_id = $1
		 ORDER BY l.created_at ASC`,
		freetID,
	)
	if err != nil {
		return nil, fmt.Errorf("引用リンク一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var views []model.ReferenceLinkView
	for rows.Next() {
		var v model.ReferenceLinkView
		if err := rows.Scan(&v.ID, &v.FreetID, &v.IssuerID, &v.URL, &v.Title, &v.TitleFetchedAt, &v.CreatedAt, &v.IssuerUsername); err != nil {
			return nil, fmt.Errorf("引用リンク行の読み取りに失敗しました: %w", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("引用リンク一覧の走査に失敗しました: %w", err)
	}
	return views, nil
}

// DeleteByIssuer は指定ユーザーが発行した全引用リンクを削除する。
func (r *PostgresLinkRepo) DeleteByIssuer(ctx context.Context, issuerID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM freet_links WHERE issuer_id = $1`,
		issuerID,
	)
	if err != nil {
		return fmt.Errorf("発行者の全引用リンクの削除に失敗しました: %w", err)
	}
	return nil
}

// ListNeedingTitleFetch はタイトル未取得の引用リンクを作成日時の
// 古い順に最大limit件返す。
func (r *PostgresLinkRepo) ListNeedingTitleFetch(ctx context.Context, limit int) ([]*model.ReferenceLink, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, freet_id, issuer_id, url, COALESCE(title, ''), title_fetched_at, created_at
		 FROM freet_links
		 WHERE title_fetched_at IS NULL
		 ORDER BY created_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("タイトル未取得リンクの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var links []*model.ReferenceLink
	for rows.Next() {
		link := &model.ReferenceLink{}
		if err := rows.Scan(&link.ID, &link.FreetID, &link.IssuerID, &link.URL, &link.Title, &link.TitleFetchedAt, &link.CreatedAt); err != nil {
			return nil, fmt.Errorf("引用リンク行の読み取りに失敗しました: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("タイトル未取得リンクの走査に失敗しました: %w", err)
	}
	return links, nil
}

// UpdateTitle は引用リンクのタイトルと取得日時を更新する。
// 取得に失敗したリンクも再試行を止めるためNOW()を記録する。
func (r *PostgresLinkRepo) UpdateTitle(ctx context.Context, linkID, title string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE freet_links SET title = NULLIF($2, ''), title_fetched_at = NOW() WHERE id = $1`,
		linkID, title,
	)
	if err != nil {
		return fmt.Errorf("タイトルの更新に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ LinkRepository = (*PostgresLinkRepo)(nil)
