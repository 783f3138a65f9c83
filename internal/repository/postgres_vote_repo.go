package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/fritter/internal/model"
)

// PostgresVoteRepo はPostgreSQLを使用した信憑性投票リポジトリ。
type PostgresVoteRepo struct {
	db *sql.DB
}

// NewPostgresVoteRepo はPostgresVoteRepoを生成する。
func NewPostgresVoteRepo(db *sql.DB) *PostgresVoteRepo {
	return &PostgresVoteRepo{db: db}
}

// Add は投票を作成する。(freet_id, issuer_id)の一意制約により、
// 同一ユーザーの二重投票は読み取りを挟まず単一INSERTで拒否される。
func (r *PostgresVoteRepo) Add(ctx context.Context, vote *model.Vote) error {
	if vote.ID == "" {
		vote.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO votes (id, freet_id, issuer_id, credible, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		vote.ID, vote.FreetID, vote.IssuerID, vote.Credible, vote.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.NewDuplicateVoteError()
		}
		return fmt.Errorf("投票の作成に失敗しました: %w", err)
	}
	return nil
}

// Remove は指定FreetのユーザーIDによる投票を削除する。
func (r *PostgresVoteRepo) Remove(ctx context.Context, freetID, issuerID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM votes WHERE freet_id = $1 AND issuer_id = $2`,
		freetID, issuerID,
	)
	if err != nil {
		return fmt.Errorf("投票の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewVoteNotFoundError()
	}
	return nil
}

// ListViewsByFreet は指定Freetの投票一覧を発行者名付きで返す。
func (r *PostgresVoteRepo) ListViewsByFreet(ctx context.Context, freetID string) ([]model.VoteView, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT v.id, v.freet_id, v.issuer_id, v.credible, v.created_at, u.username
		 FROM votes v
		 JOIN users u ON v.issuer_id = u.id
		 WHERE v.freet_id = $1
		 ORDER BY v.created_at ASC`,
		freetID,
	)
	if err != nil {
		return nil, fmt.Errorf("投票一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var views []model.VoteView
	for rows.Next() {
		var v model.VoteView
		if err := rows.Scan(&v.ID, &v.FreetID, &v.IssuerID, &v.Credible, &v.CreatedAt, &v.IssuerUsername); err != nil {
			return nil, fmt.Errorf("投票行の読み取りに失敗しました: %w", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("投票一覧の走査に失敗しました: %w", err)
	}
	return views, nil
}

// DeleteByIssuer は指定ユーザーが発行した全投票を削除する。
func (r *PostgresVoteRepo) DeleteByIssuer(ctx context.Context, issuerID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM votes WHERE issuer_id = $1`,
		issuerID,
	)
	if err != nil {
		return fmt.Errorf("発行者の全投票の削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ VoteRepository = (*PostgresVoteRepo)(nil)
