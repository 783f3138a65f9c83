// Package model はドメインモデルを定義する。
package model

import "time"

// FreetContentMaxLength はFreet本文の最大文字数。
const FreetContentMaxLength = 140

// Freet は短文投稿を表す。
type Freet struct {
	ID           string
	AuthorID     string
	Content      string // サニタイズ済みプレーンテキスト
	DateCreated  time.Time
	DateModified time.Time
	TagIDs       []string
}

// FreetView はFreetと参照解決済みの付随情報を結合した読み取りモデル。
// freets、users、tags、votes、freet_linksをJOINして取得される。
type FreetView struct {
	Freet
	AuthorUsername string
	Tags           []Tag
	Upvoters       []string // 信頼できると投票したユーザー名
	Downvoters     []string // 信頼できないと投票したユーザー名
	Links          []ReferenceLink
}

// Vote はFreetに対するユーザーの信憑性投票を表す。
// (FreetID, IssuerID) の組につき高々1件しか存在しない。
type Vote struct {
	ID        string
	FreetID   string
	IssuerID  string
	Credible  bool
	CreatedAt time.Time
}

// VoteView は投票と発行者のユーザー名を結合した読み取りモデル。
type VoteView struct {
	Vote
	IssuerUsername string
}

// ReferenceLink はFreetに添付された引用リンクを表す。
// 任意の認証済みユーザーが付与でき、削除できるのは発行者のみ。
type ReferenceLink struct {
	ID             string
	FreetID        string
	IssuerID       string
	URL            string
	Title          string     // リンクプレビューワーカーが取得したページタイトル
	TitleFetchedAt *time.Time // 未取得の場合はnil
	CreatedAt      time.Time
}

// ReferenceLinkView は引用リンクと発行者のユーザー名を結合した読み取りモデル。
type ReferenceLinkView struct {
	ReferenceLink
	IssuerUsername string
}
