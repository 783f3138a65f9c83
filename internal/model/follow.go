// Package model はドメインモデルを定義する。
package model

import "time"

// FollowTargetKind はフォロー対象の種別を表すタグ付き共用体の判別子。
type FollowTargetKind string

const (
	// FollowTargetUser はユーザーを対象とするフォロー。
	FollowTargetUser FollowTargetKind = "user"
	// FollowTargetTag はタグを対象とするフォロー。
	FollowTargetTag FollowTargetKind = "tag"
)

// ParseFollowTargetKind はAPI上の表記（"User"/"Tag"）を判別子に変換する。
// 未知の表記の場合はfalseを返す。
func ParseFollowTargetKind(s string) (FollowTargetKind, bool) {
	switch s {
	case "User":
		return FollowTargetUser, true
	case "Tag":
		return FollowTargetTag, true
	default:
		return "", false
	}
}

// APIName は判別子をAPI上の表記に戻す。
func (k FollowTargetKind) APIName() string {
	switch k {
	case FollowTargetUser:
		return "User"
	case FollowTargetTag:
		return "Tag"
	default:
		return string(k)
	}
}

// Follow はユーザーからユーザーまたはタグへの有向な購読エッジを表す。
// TargetIDはTargetKindに応じてusersまたはtagsに解決される。
// (FollowerID, TargetKind, TargetID) の組で一意。
type Follow struct {
	ID         string
	FollowerID string
	TargetKind FollowTargetKind
	TargetID   string
	CreatedAt  time.Time
}

// FollowView はフォローと参照解決済みの名前を結合した読み取りモデル。
// TargetNameはTargetKindがuserならユーザー名、tagならタグ名。
type FollowView struct {
	Follow
	FollowerUsername string
	TargetName       string
}
