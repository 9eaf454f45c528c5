package model

import "time"

// Scope は認証ドメイン（adminまたはuser）を表す。
// スコープごとに署名鍵が異なり、他スコープのトークンは受け付けない。
type Scope string

const (
	// ScopeAdmin は管理者スコープ。
	ScopeAdmin Scope = "admin"
	// ScopeUser は一般ユーザースコープ。
	ScopeUser Scope = "user"
)

// Credential はプリンシパルの認証情報を表す。
// パスワードは常にbcryptハッシュで保持する。
type Credential struct {
	Username     string
	PasswordHash []byte
}

// TokenTypeBearer はトークン発行レスポンスの固定token_type。
const TokenTypeBearer = "bearer"

// Token は発行済みのアクセストークンを表す。永続化はしない。
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

// Principal は認証済みの呼び出し元を表す。
type Principal struct {
	Scope    Scope
	Username string
}
