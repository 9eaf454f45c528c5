package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/assignman/internal/model"
)

// healthCheckTimeout はヘルスチェックでストアへの疎通を待つ最大時間。
const healthCheckTimeout = 3 * time.Second

// Pinger はストアへの疎通確認を行うインターフェース。
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler はストアへの疎通を確認し、結果を返す。
// GET /health
func HealthHandler(pinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		if err := pinger.Ping(ctx); err != nil {
			slog.Warn("health check failed", slog.String("error", err.Error()))
			writeAPIErrorResponse(w, http.StatusServiceUnavailable, model.NewServiceUnavailableError())
			return
		}

		writeJSON(w, map[string]string{"status": "ok"})
	}
}

// RootHandler は疎通確認用の固定レスポンスを返す。
// GET /
func RootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"Hello": "World"})
}
