package repository

import (
	"context"
	"testing"
	"time"

	"github.com/hitoshi/fritter/internal/model"
	"github.com/lib/pq"
)

// NewPostgresFilterRepoが正しく初期化されることを検証
func TestNewPostgresFilterRepo_Initializes(t *testing.T) {
	repo := NewPostgresFilterRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// TestPostgresFilterRepo_Create_UniqueViolation は(owner, name)の
// 一意制約違反がDUPLICATE_FILTER_NAMEのAPIErrorに変換されることを検証する。
func TestPostgresFilterRepo_Create_UniqueViolation(t *testing.T) {
	conn := &stubConn{execErr: &pq.Error{Code: uniqueViolationCode}}
	repo := NewPostgresFilterRepo(openStubDB(t, conn))

	err := repo.Create(context.Background(), &model.Filter{
		OwnerID:   "user-1",
		Name:      "reading_list",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	})
	apiErr, ok := model.AsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeDuplicateFilterName {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeDuplicateFilterName)
	}
}

// TestPostgresFilterRepo_Create_InsertsMembers はフィルタ本体に続いて
// ユーザー集合・タグ集合の関連行が同一トランザクションで挿入される
// ことを検証する。
func TestPostgresFilterRepo_Create_InsertsMembers(t *testing.T) {
	conn := &stubConn{rowsAffected: 1}
	repo := NewPostgresFilterRepo(openStubDB(t, conn))

	err := repo.Create(context.Background(), &model.Filter{
		ID:      "filter-1",
		OwnerID: "user-1",
		Name:    "reading_list",
		UserIDs: []string{"user-2", "user-3"},
		TagIDs:  []string{"tag-news"},
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	// 本体1回 + ユーザー2回 + タグ1回
	if len(conn.queries) != 4 {
		t.Fatalf("expected 4 statements, got %d", len(conn.queries))
	}
	if got := conn.queries[1].args[1]; got != "user-2" {
		t.Errorf("first member arg = %v, want user-2", got)
	}
	if got := conn.queries[3].args[1]; got != "tag-news" {
		t.Errorf("tag member arg = %v, want tag-news", got)
	}
}
