package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/fritter/internal/metrics"
	"github.com/hitoshi/fritter/internal/middleware"
)

// HealthChecker はDB接続の死活確認ができる依存。*sql.DBが満たす。
type HealthChecker interface {
	Ping() error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// CSRF保護（nilの場合は無効）
	CSRFConfig *middleware.CSRFConfig

	// メトリクス（nil可）
	Collector      metrics.MetricsCollector
	MetricsHandler http.Handler

	// 認証・セッション
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ユーザー
	UserService   UserServiceInterface
	SessionIssuer SessionIssuer

	// Freet
	FreetService FreetServiceInterface

	// フォロー
	FollowService FollowServiceInterface

	// フィルタとコンテンツ照会
	FilterService  FilterServiceInterface
	ContentService ContentQueryService

	// 信憑性（投票・引用リンク）
	CredibilityService CredibilityServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → SecurityHeaders → Recovery → Logging → [Session → RateLimit(General)]
//
// 公開ルート（登録・ログイン・Freet閲覧・フォロー閲覧・信憑性閲覧・ヘルスチェック）は
// セッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効く外側のミドルウェア
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, statusObserver(deps.Collector)))

	sessionHandler := NewSessionHandler(deps.AuthService, deps.AuthConfig)
	userHandler := NewUserHandler(deps.UserService, deps.SessionIssuer, deps.AuthConfig)
	freetHandler := NewFreetHandler(deps.FreetService, deps.Collector)
	followHandler := NewFollowHandler(deps.FollowService)
	filterHandler := NewFilterHandler(deps.FilterService)
	contentHandler := NewContentHandler(deps.ContentService)
	credHandler := NewCredibilityHandler(deps.CredibilityService, deps.Collector)

	// --- 認証不要のルート ---

	r.Get("/healthz", healthzHandler(deps.HealthChecker))

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// アカウント登録とログイン
	r.Post("/api/users", userHandler.Register)
	r.Post("/api/sessions", sessionHandler.Login)

	// 閲覧系は未認証でも許可する
	r.Get("/api/freets", freetHandler.List)
	r.Get("/api/freets/{freetId}", freetHandler.Get)
	r.Get("/api/tags/{freetId}", freetHandler.ListTags)
	r.Get("/api/follow", followHandler.List)
	r.Get("/api/credibility/{freetId}/votes", credHandler.ListVotes)
	r.Get("/api/credibility/{freetId}/links", credHandler.ListLinks)

	// CSRFトークン配布（CSRF保護が有効な場合のみ）
	if deps.CSRFConfig != nil {
		r.Method(http.MethodGet, "/api/csrf", middleware.NewCSRFTokenHandler(*deps.CSRFConfig))
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: [CSRF →] Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		if deps.CSRFConfig != nil {
			r.Use(middleware.NewCSRFMiddleware(*deps.CSRFConfig))
		}
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// セッション管理
		r.Delete("/api/sessions", sessionHandler.Logout)
		r.Get("/api/sessions/me", sessionHandler.Me)

		// 退会
		r.Delete("/api/users/me", userHandler.Withdraw)

		// Freet管理
		r.Route("/api/freets", func(r chi.Router) {
			// POST /api/freets - Freet作成（作成専用レート制限を追加）
			r.With(deps.RateLimiter.FreetCreationMiddleware()).Post("/", freetHandler.Create)

			r.Route("/{freetId}", func(r chi.Router) {
				r.Patch("/", freetHandler.Update)
				r.Delete("/", freetHandler.Delete)
			})
		})

		// フォロー管理
		r.Route("/api/follow", func(r chi.Router) {
			r.Post("/", followHandler.Create)
			r.Delete("/{followId}", followHandler.Delete)
		})

		// フィルタ管理
		r.Route("/api/filters", func(r chi.Router) {
			r.Get("/", filterHandler.List)
			r.Post("/", filterHandler.Create)

			r.Route("/{filterId}", func(r chi.Router) {
				r.Patch("/", filterHandler.Update)
				r.Delete("/", filterHandler.Delete)
			})
		})

		// コンテンツ照会
		r.Get("/api/content", contentHandler.Query)

		// 信憑性（投票・引用リンク）
		r.Route("/api/credibility/{freetId}", func(r chi.Router) {
			r.Post("/votes", credHandler.AddVote)
			r.Delete("/votes", credHandler.RemoveVote)
			r.Post("/links", credHandler.AddLink)
			r.Delete("/links/{linkId}", credHandler.RemoveLink)
		})
	})

	return r
}

// healthzHandler はDBへの到達性を確認するヘルスチェックハンドラーを返す。
func healthzHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker == nil || checker.Ping() != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// statusObserver はHTTPステータスメトリクスを記録するオブザーバーを返す。collectorはnil可。
func statusObserver(collector metrics.MetricsCollector) middleware.StatusObserver {
	if collector == nil {
		return nil
	}
	return func(method string, statusCode int) {
		collector.RecordHTTPStatus(statusCode)
	}
}
