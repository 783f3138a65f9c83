package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/fritter/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Register は新規ユーザーを作成する。
	Register(ctx context.Context, username, password string) (*model.User, error)
	// DeleteAccount はユーザーと関連リソースを削除する。
	DeleteAccount(ctx context.Context, userID string) error
}

// SessionIssuer は登録直後の自動ログインに必要なインターフェース。
// auth.Serviceの部分集合として定義する。
type SessionIssuer interface {
	CreateSession(ctx context.Context, userID string) (*model.Session, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	issuer  SessionIssuer
	config  AuthHandlerConfig
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, issuer SessionIssuer, config AuthHandlerConfig) *UserHandler {
	return &UserHandler{
		service: service,
		issuer:  issuer,
		config:  config,
	}
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register はユーザー登録を処理し、そのままログイン状態にする。
// POST /api/users
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	user, err := h.service.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// 登録直後に自動ログイン
	session, err := h.issuer.CreateSession(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	setSessionCookie(w, session.ID, h.config)

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// Withdraw は退会を処理する。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteAccount(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	clearSessionCookie(w, h.config)
	w.WriteHeader(http.StatusNoContent)
}
