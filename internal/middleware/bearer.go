// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/assignman/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// principalContextKey はリクエストコンテキストに認証済みプリンシパルを格納するためのキー。
	principalContextKey = contextKey("principal")
	// principalSlotContextKey はロギングミドルウェアがプリンシパルを受け取るためのスロットのキー。
	principalSlotContextKey = contextKey("principal_slot")
)

// TokenValidator はベアラートークンの検証に必要なインターフェース。
// auth.Serviceの部分集合として定義する。
type TokenValidator interface {
	Scope() model.Scope
	Validate(tokenString string) (string, error)
}

// NewBearerMiddleware はAuthorizationヘッダーのベアラートークンを検証するミドルウェアを返す。
// 認証済みプリンシパルをリクエストコンテキストに注入する。
// ヘッダーが無い場合はNOT_AUTHENTICATED、検証に失敗した場合はCOULD_NOT_VALIDATE_CREDENTIALSで401を返す。
func NewBearerMiddleware(validator TokenValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeUnauthorized(w, model.NewNotAuthenticatedError())
				return
			}

			username, err := validator.Validate(token)
			if err != nil {
				var apiErr *model.APIError
				if !errors.As(err, &apiErr) {
					apiErr = model.NewCouldNotValidateError()
				}
				slog.Debug("bearer token rejected",
					slog.String("scope", string(validator.Scope())),
					slog.String("error", err.Error()),
				)
				writeUnauthorized(w, apiErr)
				return
			}

			p := model.Principal{Scope: validator.Scope(), Username: username}
			if slot, ok := r.Context().Value(principalSlotContextKey).(*model.Principal); ok {
				*slot = p
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
		})
	}
}

// bearerToken は"Bearer <token>"形式のヘッダー値からトークンを取り出す。
// スキーム名の大文字小文字は区別しない。
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeUnauthorized(w http.ResponseWriter, apiErr *model.APIError) {
	WriteErrorResponse(w, http.StatusUnauthorized, apiErr)
}

// PrincipalFromContext はリクエストコンテキストから認証済みプリンシパルを取得する。
// ベアラーミドルウェアを通過したリクエストでのみ有効。
func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(model.Principal)
	if !ok || p.Username == "" {
		return model.Principal{}, false
	}
	return p, true
}

// ContextWithPrincipal はコンテキストにプリンシパルを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}
