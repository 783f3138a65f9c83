// Package model はドメインモデルを定義する。
package model

import "time"

// Filter はユーザーが保存した名前付きの検索条件を表す。
// フォロー対象のユーザー集合とタグ集合の組から成り、名前は所有者ごとに一意。
type Filter struct {
	ID        string
	OwnerID   string
	Name      string
	UserIDs   []string
	TagIDs    []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FilterView はフィルタと参照解決済みの名前リストを結合した読み取りモデル。
type FilterView struct {
	Filter
	OwnerUsername string
	Usernames     []string
	TagNames      []string
}
