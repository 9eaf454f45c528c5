package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/assignman/internal/middleware"
	"github.com/hitoshi/assignman/internal/model"
)

// maxAssignmentBodyBytes は課題作成リクエストボディの最大サイズ。
const maxAssignmentBodyBytes = 1 << 20

// AssignmentServiceInterface は課題ハンドラーが必要とするサービスインターフェース。
type AssignmentServiceInterface interface {
	// Create は課題を作成し、採番されたIDを返す。
	Create(ctx context.Context, principal model.Principal, in model.AssignmentInput) (int64, error)
	// List は最大limit件の課題を返す。
	List(ctx context.Context, limit int) ([]*model.Assignment, error)
	// Get はIDで課題を取得する。
	Get(ctx context.Context, id int64) (*model.Assignment, error)
	// GetByUser は所有ユーザー名で課題を取得する。
	GetByUser(ctx context.Context, user string) (*model.Assignment, error)
	// Delete はIDで課題を削除する。
	Delete(ctx context.Context, principal model.Principal, id int64) error
}

// AssignmentHandler は課題管理のHTTPハンドラー。
type AssignmentHandler struct {
	service AssignmentServiceInterface
}

// NewAssignmentHandler はAssignmentHandlerを生成する。
func NewAssignmentHandler(service AssignmentServiceInterface) *AssignmentHandler {
	return &AssignmentHandler{
		service: service,
	}
}

// CreateAssignment は課題を作成し、IDを返す。
// POST /{scope}/assignments/
func (h *AssignmentHandler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var in model.AssignmentInput
	r.Body = http.MaxBytesReader(w, r.Body, maxAssignmentBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("request body must be a JSON assignment"))
		return
	}

	id, err := h.service.Create(r.Context(), principal, in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, id)
}

// ListAssignments は課題一覧を返す。limitクエリで件数を指定する（デフォルト5件）。
// GET /{scope}/assignments/?limit=N
func (h *AssignmentHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	if _, ok := requirePrincipal(w, r); !ok {
		return
	}

	limit := model.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidLimitError(raw))
			return
		}
		limit = n
	}

	assignments, err := h.service.List(r.Context(), limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if assignments == nil {
		assignments = []*model.Assignment{}
	}

	writeJSON(w, assignments)
}

// GetAssignment はIDで課題を返す。
// GET /{scope}/assignments/{assignment_id}
func (h *AssignmentHandler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	if _, ok := requirePrincipal(w, r); !ok {
		return
	}

	id, ok := assignmentIDParam(w, r)
	if !ok {
		return
	}

	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, a)
}

// GetUserAssignment は所有ユーザー名で課題を返す。
// GET /user/user_assignments/{user}
func (h *AssignmentHandler) GetUserAssignment(w http.ResponseWriter, r *http.Request) {
	if _, ok := requirePrincipal(w, r); !ok {
		return
	}

	a, err := h.service.GetByUser(r.Context(), chi.URLParam(r, "user"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, a)
}

// DeleteAssignment はIDで課題を削除し、削除したIDを返す。
// DELETE /admin/assignments/{assignment_id}
func (h *AssignmentHandler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	id, ok := assignmentIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), principal, id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, id)
}

// requirePrincipal はベアラーミドルウェアが注入したプリンシパルを取得する。
// 存在しない場合は401を書き込んでfalseを返す。
func requirePrincipal(w http.ResponseWriter, r *http.Request) (model.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewNotAuthenticatedError())
		return model.Principal{}, false
	}
	return p, true
}

// assignmentIDParam はパスの{assignment_id}を整数として解析する。
// 整数でない場合は400を書き込んでfalseを返す。
func assignmentIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "assignment_id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidAssignmentIDError(raw))
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
