// Package credential はスコープごとの読み取り専用クレデンシャルストアを提供する。
//
// ストアは起動時に一度だけ構築され、以降は変更されない。
// パスワードはadmin・userの両スコープともbcryptハッシュで保持する。
package credential

import (
	"fmt"

	"github.com/hitoshi/assignman/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// Lookuper はユーザー名からクレデンシャルを引くインターフェース。
// トークンサービスはこのインターフェースのみに依存する。
type Lookuper interface {
	Lookup(username string) (model.Credential, bool)
}

// StaticStore はメモリ上の読み取り専用クレデンシャルストア。
// 構築後は書き込みがないため、複数goroutineから安全に参照できる。
type StaticStore struct {
	scope       model.Scope
	credentials map[string]model.Credential
}

// NewStaticStore は指定スコープのStaticStoreを生成する。
// 入力スライスはコピーされ、呼び出し側の変更はストアに影響しない。
func NewStaticStore(scope model.Scope, creds []model.Credential) (*StaticStore, error) {
	m := make(map[string]model.Credential, len(creds))
	for _, c := range creds {
		if c.Username == "" {
			return nil, fmt.Errorf("%s credential with empty username", scope)
		}
		if _, dup := m[c.Username]; dup {
			return nil, fmt.Errorf("duplicate %s username %q", scope, c.Username)
		}
		if _, err := bcrypt.Cost(c.PasswordHash); err != nil {
			return nil, fmt.Errorf("invalid password hash for %s %q: %w", scope, c.Username, err)
		}
		hash := make([]byte, len(c.PasswordHash))
		copy(hash, c.PasswordHash)
		m[c.Username] = model.Credential{Username: c.Username, PasswordHash: hash}
	}
	return &StaticStore{scope: scope, credentials: m}, nil
}

// Lookup はユーザー名に対応するクレデンシャルを返す。
func (s *StaticStore) Lookup(username string) (model.Credential, bool) {
	c, ok := s.credentials[username]
	return c, ok
}

// Scope はストアのスコープを返す。
func (s *StaticStore) Scope() model.Scope {
	return s.scope
}

// Len は登録済みプリンシパル数を返す。
func (s *StaticStore) Len() int {
	return len(s.credentials)
}

// HashPassword は平文パスワードをbcryptでハッシュ化する。
func HashPassword(password string, cost int) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

// Verify は提示されたパスワードがクレデンシャルのハッシュと一致するかを返す。
// 比較はbcryptによる定数時間比較で行う。
func Verify(c model.Credential, password string) bool {
	return bcrypt.CompareHashAndPassword(c.PasswordHash, []byte(password)) == nil
}
