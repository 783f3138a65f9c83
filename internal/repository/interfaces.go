// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/fritter/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。
	// 大文字小文字を区別しない。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。
	// ユーザー名が既に使用されている場合はDUPLICATE_USERNAMEのAPIErrorを返す。
	Create(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// TagRepository はタグデータの永続化インターフェース。
// タグは遅延作成され、削除されることはない。
type TagRepository interface {
	// FindOrCreate はタグ名からタグを取得し、存在しなければ作成する。
	// 一意インデックスにより並行呼び出しでも高々1件しか作成されない。
	FindOrCreate(ctx context.Context, name string) (*model.Tag, error)

	// FindByName はタグ名でタグを検索する。見つからない場合はnilを返す。
	FindByName(ctx context.Context, name string) (*model.Tag, error)

	// ListByIDs は指定IDのタグを一括取得する。順序は保証しない。
	ListByIDs(ctx context.Context, ids []string) ([]model.Tag, error)
}

// FreetRepository はFreetデータの永続化インターフェース。
type FreetRepository interface {
	// Create はFreetとタグ関連を同一トランザクションで作成する。
	Create(ctx context.Context, freet *model.Freet) error

	// FindByID は指定IDのFreetを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Freet, error)

	// FindViewByID は指定IDのFreetを参照解決済みビューで取得する。
	// 見つからない場合はnilを返す。
	FindViewByID(ctx context.Context, id string) (*model.FreetView, error)

	// ListAll は全Freetのビューをdate_modified降順で返す。
	ListAll(ctx context.Context) ([]model.FreetView, error)

	// ListByAuthor は指定著者のFreetビューをdate_modified降順で返す。
	ListByAuthor(ctx context.Context, authorID string) ([]model.FreetView, error)

	// FilterByAuthorsOrTags は著者集合に属するか、タグ集合と交差するFreetの
	// ビューを返す（論理OR、ID重複なし、date_modified降順）。
	FilterByAuthorsOrTags(ctx context.Context, authorIDs, tagIDs []string) ([]model.FreetView, error)

	// Update は本文とタグ集合を置き換え、date_modifiedを更新する。
	Update(ctx context.Context, freet *model.Freet) error

	// DeleteByID は指定IDのFreetを削除する。投票・引用リンク・タグ関連は
	// 外部キーのCASCADEで削除される。
	DeleteByID(ctx context.Context, id string) error

	// DeleteByAuthor は指定著者の全Freetを削除する。
	DeleteByAuthor(ctx context.Context, authorID string) error
}

// VoteRepository は信憑性投票の永続化インターフェース。
type VoteRepository interface {
	// Add は投票を作成する。単一のINSERTで(freet, issuer)の一意制約に
	// 違反した場合はDUPLICATE_VOTEのAPIErrorを返す。
	Add(ctx context.Context, vote *model.Vote) error

	// Remove は指定FreetのユーザーIDによる投票を削除する。
	// 投票が存在しない場合はVOTE_NOT_FOUNDのAPIErrorを返す。
	Remove(ctx context.Context, freetID, issuerID string) error

	// ListViewsByFreet は指定Freetの投票一覧を発行者名付きで返す。
	ListViewsByFreet(ctx context.Context, freetID string) ([]model.VoteView, error)

	// DeleteByIssuer は指定ユーザーが発行した全投票を削除する。
	DeleteByIssuer(ctx context.Context, issuerID string) error
}

// LinkRepository は引用リンクの永続化インターフェース。
type LinkRepository interface {
	// Add は引用リンクを作成する。
	Add(ctx context.Context, link *model.ReferenceLink) error

	// FindByFreetAndID は指定Freetに属する引用リンクを取得する。
	// 見つからない場合はnilを返す。
	FindByFreetAndID(ctx context.Context, freetID, linkID string) (*model.ReferenceLink, error)

	// Delete は指定IDの引用リンクを削除する。
	// 存在しない場合はLINK_NOT_FOUNDのAPIErrorを返す。
	Delete(ctx context.Context, linkID string) error

	// ListViewsByFreet は指定Freetの引用リンク一覧を発行者名付きで返す。
	ListViewsByFreet(ctx context.Context, freetID string) ([]model.ReferenceLinkView, error)

	// DeleteByIssuer は指定ユーザーが発行した全引用リンクを削除する。
	DeleteByIssuer(ctx context.Context, issuerID string) error

	// ListNeedingTitleFetch はタイトル未取得の引用リンクを作成日時の
	// 古い順に最大limit件返す。
	ListNeedingTitleFetch(ctx context.Context, limit int) ([]*model.ReferenceLink, error)

	// UpdateTitle は引用リンクのタイトルと取得日時を更新する。
	UpdateTitle(ctx context.Context, linkID, title string) error
}

// FollowRepository はフォローエッジの永続化インターフェース。
type FollowRepository interface {
	// Create はフォローを作成する。(follower, target)の一意制約に
	// 違反した場合はDUPLICATE_FOLLOWのAPIErrorを返す。
	Create(ctx context.Context, follow *model.Follow) error

	// FindByID は指定IDのフォローを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Follow, error)

	// FindByFollowerAndTarget はフォロワーと対象の組でフォローを検索する。
	// 見つからない場合はnilを返す。
	FindByFollowerAndTarget(ctx context.Context, followerID string, kind model.FollowTargetKind, targetID string) (*model.Follow, error)

	// ListViewsByFollower は指定ユーザーのフォロー一覧を名前解決付きで返す。
	ListViewsByFollower(ctx context.Context, followerID string) ([]model.FollowView, error)

	// ListViewsByTarget は指定対象をフォローしているエッジ一覧を返す。
	ListViewsByTarget(ctx context.Context, kind model.FollowTargetKind, targetID string) ([]model.FollowView, error)

	// DeleteByID は指定IDのフォローを削除する。
	DeleteByID(ctx context.Context, id string) error

	// DeleteByUser は指定ユーザーがフォロワーまたは対象である
	// 全フォローを削除する。
	DeleteByUser(ctx context.Context, userID string) error
}

// FilterRepository は保存フィルタの永続化インターフェース。
type FilterRepository interface {
	// Create はフィルタとユーザー・タグ関連を同一トランザクションで作成する。
	// (owner, name)の一意制約に違反した場合はDUPLICATE_FILTER_NAMEの
	// APIErrorを返す。
	Create(ctx context.Context, filter *model.Filter) error

	// FindByID は指定IDのフィルタを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Filter, error)

	// FindByOwnerAndName は所有者と名前でフィルタを検索する。
	// 見つからない場合はnilを返す。
	FindByOwnerAndName(ctx context.Context, ownerID, name string) (*model.Filter, error)

	// FindViewByID は指定IDのフィルタを参照解決済みビューで取得する。
	// 見つからない場合はnilを返す。
	FindViewByID(ctx context.Context, id string) (*model.FilterView, error)

	// ListViewsByOwner は所有者のフィルタ一覧を参照解決済みビューで返す。
	ListViewsByOwner(ctx context.Context, ownerID string) ([]model.FilterView, error)

	// Update は名前・ユーザー集合・タグ集合を置き換える。
	Update(ctx context.Context, filter *model.Filter) error

	// DeleteByID は指定IDのフィルタを削除する。
	DeleteByID(ctx context.Context, id string) error

	// DeleteByOwner は所有者の全フィルタを削除する。
	DeleteByOwner(ctx context.Context, ownerID string) error

	// RemoveUserFromAll は全フィルタのユーザー集合から指定ユーザーを
	// 取り除く。フィルタ自体は削除しない。
	RemoveUserFromAll(ctx context.Context, userID string) error
}
