// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ドメイン全体で使用するセンチネルエラー。
// errors.Isで種別を判定できるよう、各層はこれらを%wでラップして返す。
var (
	// ErrAuthentication は資格情報の不一致、またはトークンの検証失敗を表す。
	ErrAuthentication = errors.New("authentication failed")
	// ErrNotFound はIDやフィールドでの検索がヒットしなかったことを表す。
	ErrNotFound = errors.New("not found")
	// ErrConflict は課題IDの一意制約違反を表す。
	ErrConflict = errors.New("assignment id conflict")
	// ErrConnectivity はストアに到達できないことを表す。
	ErrConnectivity = errors.New("store unreachable")
	// ErrInvalidField は検索不可能なフィールド名が指定されたことを表す。
	ErrInvalidField = errors.New("invalid assignment field")
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, assignment, system
	Action   string // クライアント向け対処方法
	Err      error  // 原因となったセンチネルエラー（任意）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は原因エラーを返す。errors.Is(err, ErrAuthentication) 等で判定できる。
func (e *APIError) Unwrap() error {
	return e.Err
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeCouldNotValidate    = "COULD_NOT_VALIDATE_CREDENTIALS"
	ErrCodeNotAuthenticated    = "NOT_AUTHENTICATED"
	ErrCodeAssignmentNotFound  = "ASSIGNMENT_NOT_FOUND"
	ErrCodeInvalidAssignment   = "INVALID_ASSIGNMENT"
	ErrCodeInvalidAssignmentID = "INVALID_ASSIGNMENT_ID"
	ErrCodeInvalidLimit        = "INVALID_LIMIT"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeInvalidField        = "INVALID_FIELD"
	ErrCodeInternal            = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
)

// NewInvalidCredentialsError はユーザー名またはパスワードの不一致エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "invalid credentials",
		Category: "auth",
		Action:   "Check the username and password.",
		Err:      ErrAuthentication,
	}
}

// NewCouldNotValidateError はトークン検証失敗エラーを生成する。
func NewCouldNotValidateError() *APIError {
	return &APIError{
		Code:     ErrCodeCouldNotValidate,
		Message:  "could not validate credentials",
		Category: "auth",
		Action:   "Request a new access token.",
		Err:      ErrAuthentication,
	}
}

// NewNotAuthenticatedError はAuthorizationヘッダー未指定エラーを生成する。
func NewNotAuthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeNotAuthenticated,
		Message:  "not authenticated",
		Category: "auth",
		Action:   "Send an Authorization: Bearer <token> header.",
		Err:      ErrAuthentication,
	}
}

// NewAssignmentNotFoundError は課題未検出エラーを生成する。
func NewAssignmentNotFoundError(key string) *APIError {
	return &APIError{
		Code:     ErrCodeAssignmentNotFound,
		Message:  fmt.Sprintf("assignment not found: %s", key),
		Category: "assignment",
		Action:   "Check the assignment id or owner.",
		Err:      ErrNotFound,
	}
}

// NewInvalidAssignmentError は課題入力の検証エラーを生成する。
func NewInvalidAssignmentError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAssignment,
		Message:  fmt.Sprintf("invalid assignment: %s", reason),
		Category: "validation",
		Action:   "Provide a non-empty name.",
	}
}

// NewInvalidAssignmentIDError は課題IDが整数でない場合のエラーを生成する。
func NewInvalidAssignmentIDError(raw string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAssignmentID,
		Message:  fmt.Sprintf("invalid assignment id: %s", raw),
		Category: "validation",
		Action:   "Use an integer assignment id.",
	}
}

// NewInvalidLimitError は件数指定が不正な場合のエラーを生成する。
func NewInvalidLimitError(raw string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidLimit,
		Message:  fmt.Sprintf("invalid limit: %s", raw),
		Category: "validation",
		Action:   "limit must be a positive integer.",
	}
}

// NewInvalidRequestError はリクエストボディやフォームの解析エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  reason,
		Category: "validation",
		Action:   "Fix the request format and retry.",
	}
}

// NewInvalidFieldError は検索不可能なフィールドが指定された場合のエラーを生成する。
func NewInvalidFieldError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidField,
		Message:  fmt.Sprintf("field is not queryable: %s", field),
		Category: "validation",
		Action:   "Query by assignment_id, name, description, user or admin.",
		Err:      ErrInvalidField,
	}
}

// NewInternalError は内部エラーの統一レスポンスを生成する。
// 詳細はログのみに記録し、クライアントには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "internal server error",
		Category: "system",
		Action:   "Retry later.",
	}
}

// NewServiceUnavailableError はストアに到達できない場合のエラーを生成する。
func NewServiceUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeServiceUnavailable,
		Message:  "service unavailable",
		Category: "system",
		Action:   "Retry later.",
		Err:      ErrConnectivity,
	}
}
