package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/fritter/internal/model"
)

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
// 未認証・権限不足はいずれも403。本文超過と不正URLは413を返す。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthenticated,
		model.ErrCodeForbidden,
		model.ErrCodeInvalidCredentials:
		return http.StatusForbidden
	case model.ErrCodeUserNotFound,
		model.ErrCodeFreetNotFound,
		model.ErrCodeFollowNotFound,
		model.ErrCodeFilterNotFound,
		model.ErrCodeLinkNotFound,
		model.ErrCodeVoteNotFound,
		model.ErrCodeInvalidSourceType:
		return http.StatusNotFound
	case model.ErrCodeDuplicateVote,
		model.ErrCodeDuplicateFollow,
		model.ErrCodeSelfFollow,
		model.ErrCodeDuplicateFilterName,
		model.ErrCodeDuplicateUsername:
		return http.StatusConflict
	case model.ErrCodeInvalidContent,
		model.ErrCodeInvalidTag,
		model.ErrCodeInvalidFilterName,
		model.ErrCodeInvalidQuery,
		model.ErrCodeInvalidUsername,
		model.ErrCodeInvalidPassword:
		return http.StatusBadRequest
	case model.ErrCodeContentTooLong,
		model.ErrCodeInvalidURL:
		return http.StatusRequestEntityTooLarge
	case model.ErrCodeStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// requireUserID はリクエストコンテキストから認証済みユーザーIDを取り出す。
// 取得できない場合は403を書き込みfalseを返す。
// セッションミドルウェアの外に置かれたルートでの防衛線。
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewUnauthenticatedError())
		return "", false
	}
	return userID, true
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// decodeJSONBody はリクエストボディをJSONとしてデコードする。
func decodeJSONBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// writeInvalidRequestBody はJSONデコード失敗の統一レスポンスを書き込む。
func writeInvalidRequestBody(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}
