// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, content, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// IsAPIError はエラーチェーンにAPIErrorが含まれるかを判定する。
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// AsAPIError はエラーチェーンからAPIErrorを取り出す。
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated     = "UNAUTHENTICATED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeFreetNotFound       = "FREET_NOT_FOUND"
	ErrCodeFollowNotFound      = "FOLLOW_NOT_FOUND"
	ErrCodeFilterNotFound      = "FILTER_NOT_FOUND"
	ErrCodeLinkNotFound        = "LINK_NOT_FOUND"
	ErrCodeVoteNotFound        = "VOTE_NOT_FOUND"
	ErrCodeDuplicateVote       = "DUPLICATE_VOTE"
	ErrCodeDuplicateFollow     = "DUPLICATE_FOLLOW"
	ErrCodeSelfFollow          = "SELF_FOLLOW"
	ErrCodeDuplicateFilterName = "DUPLICATE_FILTER_NAME"
	ErrCodeDuplicateUsername   = "DUPLICATE_USERNAME"
	ErrCodeInvalidContent      = "INVALID_CONTENT"
	ErrCodeContentTooLong      = "CONTENT_TOO_LONG"
	ErrCodeInvalidTag          = "INVALID_TAG"
	ErrCodeInvalidFilterName   = "INVALID_FILTER_NAME"
	ErrCodeInvalidURL          = "INVALID_URL"
	ErrCodeInvalidSourceType   = "INVALID_SOURCE_TYPE"
	ErrCodeInvalidQuery        = "INVALID_QUERY"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeInvalidUsername     = "INVALID_USERNAME"
	ErrCodeInvalidPassword     = "INVALID_PASSWORD"
	ErrCodeStorageUnavailable  = "STORAGE_UNAVAILABLE"
)

// NewUnauthenticatedError は未認証エラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
// reasonには「他のユーザーのFreetは編集できません」のような説明を渡す。
func NewForbiddenError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  reason,
		Category: "auth",
		Action:   "自分が作成したリソースに対してのみ実行できます。",
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("ユーザー %s が見つかりません。", username),
		Category: "content",
		Action:   "ユーザー名を確認してください。",
	}
}

// NewFreetNotFoundError はFreet未検出エラーを生成する。
func NewFreetNotFoundError(freetID string) *APIError {
	return &APIError{
		Code:     ErrCodeFreetNotFound,
		Message:  fmt.Sprintf("指定されたFreetが見つかりません: %s", freetID),
		Category: "content",
		Action:   "Freet IDを確認してください。",
	}
}

// NewFollowNotFoundError はフォロー未検出エラーを生成する。
func NewFollowNotFoundError(followID string) *APIError {
	return &APIError{
		Code:     ErrCodeFollowNotFound,
		Message:  fmt.Sprintf("指定されたフォローが見つかりません: %s", followID),
		Category: "content",
		Action:   "フォローIDを確認してください。",
	}
}

// NewFilterNotFoundError はフィルタ未検出エラーを生成する。
func NewFilterNotFoundError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeFilterNotFound,
		Message:  fmt.Sprintf("指定されたフィルタが見つかりません: %s", name),
		Category: "content",
		Action:   "フィルタ名またはIDを確認してください。",
	}
}

// NewLinkNotFoundError は引用リンク未検出エラーを生成する。
func NewLinkNotFoundError(linkID string) *APIError {
	return &APIError{
		Code:     ErrCodeLinkNotFound,
		Message:  fmt.Sprintf("指定された引用リンクが見つかりません: %s", linkID),
		Category: "content",
		Action:   "リンクIDを確認してください。",
	}
}

// NewVoteNotFoundError は投票未検出エラーを生成する。
func NewVoteNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeVoteNotFound,
		Message:  "このFreetにはあなたの投票がありません。",
		Category: "content",
		Action:   "投票済みのFreetに対してのみ取り消しできます。",
	}
}

// NewDuplicateVoteError は重複投票エラーを生成する。
func NewDuplicateVoteError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateVote,
		Message:  "このFreetには既に投票しています。",
		Category: "content",
		Action:   "既存の投票を取り消してから再投票してください。",
	}
}

// NewDuplicateFollowError は重複フォローエラーを生成する。
func NewDuplicateFollowError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateFollow,
		Message:  "このソースは既にフォローしています。",
		Category: "content",
		Action:   "フォロー一覧を確認してください。",
	}
}

// NewSelfFollowError は自己フォローエラーを生成する。
func NewSelfFollowError() *APIError {
	return &APIError{
		Code:     ErrCodeSelfFollow,
		Message:  "自分自身をフォローすることはできません。",
		Category: "content",
		Action:   "他のユーザーまたはタグを指定してください。",
	}
}

// NewDuplicateFilterNameError はフィルタ名重複エラーを生成する。
func NewDuplicateFilterNameError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateFilterName,
		Message:  fmt.Sprintf("フィルタ名 %s は既に使用されています。", name),
		Category: "content",
		Action:   "別のフィルタ名を指定してください。",
	}
}

// NewDuplicateUsernameError はユーザー名重複エラーを生成する。
func NewDuplicateUsernameError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUsername,
		Message:  fmt.Sprintf("ユーザー名 %s は既に使用されています。", username),
		Category: "auth",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewInvalidContentError は本文が空のエラーを生成する。
func NewInvalidContentError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidContent,
		Message:  "Freetの本文は1文字以上である必要があります。",
		Category: "validation",
		Action:   "空白以外の文字を含む本文を入力してください。",
	}
}

// NewContentTooLongError は本文超過エラーを生成する。
func NewContentTooLongError() *APIError {
	return &APIError{
		Code:     ErrCodeContentTooLong,
		Message:  fmt.Sprintf("Freetの本文は%d文字以内である必要があります。", FreetContentMaxLength),
		Category: "validation",
		Action:   "本文を短くしてください。",
	}
}

// NewInvalidTagError はタグ形式エラーを生成する。
func NewInvalidTagError(tag string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTag,
		Message:  fmt.Sprintf("タグは非空の英数字である必要があります: %s", tag),
		Category: "validation",
		Action:   "英数字とアンダースコアのみのタグを指定してください。",
	}
}

// NewInvalidFilterNameError はフィルタ名形式エラーを生成する。
func NewInvalidFilterNameError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFilterName,
		Message:  "フィルタ名は非空の英数字である必要があります。",
		Category: "validation",
		Action:   "英数字とアンダースコアのみのフィルタ名を指定してください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "http:// または https:// で始まる正しいURLを入力してください。",
	}
}

// NewInvalidSourceTypeError はフォロー対象種別エラーを生成する。
func NewInvalidSourceTypeError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSourceType,
		Message:  "フォロー対象の種別はUserまたはTagである必要があります。",
		Category: "validation",
		Action:   "typeにUserまたはTagを指定してください。",
	}
}

// NewInvalidQueryError はクエリパラメータエラーを生成する。
func NewInvalidQueryError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidQuery,
		Message:  reason,
		Category: "validation",
		Action:   "クエリパラメータを確認してください。",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "認証情報を確認して再度お試しください。",
	}
}

// NewInvalidUsernameError はユーザー名形式エラーを生成する。
func NewInvalidUsernameError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidUsername,
		Message:  "ユーザー名は非空の英数字である必要があります。",
		Category: "validation",
		Action:   "英数字とアンダースコアのみのユーザー名を指定してください。",
	}
}

// NewInvalidPasswordError はパスワード形式エラーを生成する。
func NewInvalidPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPassword,
		Message:  "パスワードは8文字以上である必要があります。",
		Category: "validation",
		Action:   "より長いパスワードを指定してください。",
	}
}

// NewStorageUnavailableError はストレージ障害エラーを生成する。
// 接続失敗などのストア障害はNotFoundと区別して明示的に扱う。
func NewStorageUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeStorageUnavailable,
		Message:  "データストアに接続できません。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
