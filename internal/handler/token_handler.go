package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hitoshi/assignman/internal/metrics"
	"github.com/hitoshi/assignman/internal/model"
)

// maxFormBytes はトークン発行フォームの最大サイズ。
const maxFormBytes = 64 << 10

// TokenServiceInterface はスコープごとのトークン発行と検証を行うサービスインターフェース。
// auth.Serviceが満たす。
type TokenServiceInterface interface {
	// Scope はサービスが担当するスコープを返す。
	Scope() model.Scope
	// Issue は資格情報を検証し、アクセストークンを発行する。
	Issue(ctx context.Context, username, password string) (*model.Token, error)
	// Validate はトークンを検証し、ユーザー名を返す。
	Validate(tokenString string) (string, error)
}

// TokenHandler はトークン発行のHTTPハンドラー。
type TokenHandler struct {
	service TokenServiceInterface
	metrics metrics.MetricsCollector
}

// NewTokenHandler はTokenHandlerを生成する。
func NewTokenHandler(service TokenServiceInterface, collector metrics.MetricsCollector) *TokenHandler {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &TokenHandler{
		service: service,
		metrics: collector,
	}
}

// tokenResponse はトークン発行のAPIレスポンス。
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// IssueToken はフォームのusernameとpasswordを検証してアクセストークンを発行する。
// POST /{scope}/token
func (h *TokenHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	scope := string(h.service.Scope())

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.metrics.RecordTokenIssued(scope, metrics.OutcomeInvalid)
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("could not parse form body"))
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		h.metrics.RecordTokenIssued(scope, metrics.OutcomeInvalid)
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("username and password are required"))
		return
	}

	token, err := h.service.Issue(r.Context(), username, password)
	if err != nil {
		outcome := metrics.OutcomeFailure
		if !errors.Is(err, model.ErrAuthentication) {
			outcome = metrics.OutcomeError
		}
		h.metrics.RecordTokenIssued(scope, outcome)
		handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordTokenIssued(scope, metrics.OutcomeSuccess)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	json.NewEncoder(w).Encode(tokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
	})
}
