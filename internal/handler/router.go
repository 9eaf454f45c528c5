package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/assignman/internal/metrics"
	"github.com/hitoshi/assignman/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// スコープごとのトークンサービス（署名鍵はスコープごとに異なる）
	AdminTokens TokenServiceInterface
	UserTokens  TokenServiceInterface

	// 課題
	AssignmentService AssignmentServiceInterface

	// ヘルスチェック
	HealthChecker Pinger

	// メトリクス
	Metrics        metrics.MetricsCollector
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Logging → Recovery → SecurityHeaders → Metrics → (スコープごとの) Bearer
//
// トークン発行（/{scope}/token）、/、/health、/metricsはベアラー認証の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(metrics.Middleware(collector))

	assignmentHandler := NewAssignmentHandler(deps.AssignmentService)

	// --- 認証不要のルート ---
	r.Get("/", RootHandler)
	if deps.HealthChecker != nil {
		r.Get("/health", HealthHandler(deps.HealthChecker))
	}
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- ユーザースコープ ---
	r.Route("/user", func(r chi.Router) {
		r.Post("/token", NewTokenHandler(deps.UserTokens, collector).IssueToken)

		r.Group(func(r chi.Router) {
			r.Use(middleware.NewBearerMiddleware(deps.UserTokens))

			r.Route("/assignments", func(r chi.Router) {
				r.Post("/", assignmentHandler.CreateAssignment)
				r.Get("/", assignmentHandler.ListAssignments)
				r.Get("/{assignment_id}", assignmentHandler.GetAssignment)
			})

			r.Get("/user_assignments/{user}", assignmentHandler.GetUserAssignment)
		})
	})

	// --- 管理者スコープ ---
	r.Route("/admin", func(r chi.Router) {
		r.Post("/token", NewTokenHandler(deps.AdminTokens, collector).IssueToken)

		r.Group(func(r chi.Router) {
			r.Use(middleware.NewBearerMiddleware(deps.AdminTokens))

			r.Route("/assignments", func(r chi.Router) {
				r.Post("/", assignmentHandler.CreateAssignment)
				r.Get("/", assignmentHandler.ListAssignments)
				r.Get("/{assignment_id}", assignmentHandler.GetAssignment)
				r.Delete("/{assignment_id}", assignmentHandler.DeleteAssignment)
			})
		})
	})

	return r
}
