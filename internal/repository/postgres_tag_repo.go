package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/fritter/internal/model"
	"github.com/lib/pq"
)

// PostgresTagRepo はPostgreSQLを使用したタグリポジトリ。
type PostgresTagRepo struct {
	db *sql.DB
}

// NewPostgresTagRepo はPostgresTagRepoを生成する。
func NewPostgresTagRepo(db *sql.DB) *PostgresTagRepo {
	return &PostgresTagRepo{db: db}
}

// FindOrCreate はタグ名からタグを取得し、存在しなければ作成する。
// 素朴なread-then-writeではなく、nameの一意インデックスに対する
// ON CONFLICT DO NOTHINGで並行作成を冪等にする。INSERTが行を返さず
// 直後のSELECTでも見つからない稀な窓に備えて1回だけ再試行する。
func (r *PostgresTagRepo) FindOrCreate(ctx context.Context, name string) (*model.Tag, error) {
	for attempt := 0; attempt < 2; attempt++ {
		tag := &model.Tag{Name: name}
		err := r.db.QueryRowContext(ctx,
			`INSERT INTO tags (id, name) VALUES ($1, $2)
			 ON CONFLICT (name) DO NOTHING
			 RETURNING id`,
			uuid.NewString(), name,
		).Scan(&tag.ID)
		if err == nil {
			return tag, nil
		}
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("タグの作成に失敗しました: %w", err)
		}

		// 既存タグが挿入を抑止した場合
		existing, err := r.FindByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	return nil, fmt.Errorf("タグの取得・作成に失敗しました: %s", name)
}

// FindByName はタグ名でタグを検索する。見つからない場合はnilを返す。
func (r *PostgresTagRepo) FindByName(ctx context.Context, name string) (*model.Tag, error) {
	tag := &model.Tag{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name FROM tags WHERE name = $1`,
		name,
	).Scan(&tag.ID, &tag.Name)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("タグの検索に失敗しました: %w", err)
	}

	return tag, nil
}

// ListByIDs は指定IDのタグを一括取得する。
func (r *PostgresTagRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name FROM tags WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("タグの一括取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		var tag model.Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, fmt.Errorf("タグ行の読み取りに失敗しました: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("タグ一覧の走査に失敗しました: %w", err)
	}
	return tags, nil
}

// compile-time interface check
var _ TagRepository = (*PostgresTagRepo)(nil)
