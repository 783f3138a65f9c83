// Package model はドメインモデルを定義する。
package model

import "regexp"

// Tag は重複排除されたラベル文字列を表す。
// 初回参照時に遅延作成され、以後削除されない。
type Tag struct {
	ID   string
	Name string
}

// tagNameRegex はタグ名・フィルタ名に共通の形式（非空の英数字とアンダースコア）。
var tagNameRegex = regexp.MustCompile(`^\w+$`)

// IsValidTagName はタグ名の形式を検証する。
func IsValidTagName(name string) bool {
	return tagNameRegex.MatchString(name)
}
