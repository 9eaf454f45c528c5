// Package auth はスコープごとのアクセストークンの発行と検証を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/assignman/internal/credential"
	"github.com/hitoshi/assignman/internal/model"
)

// DefaultTTL はトークン有効期間のデフォルト値。
const DefaultTTL = 15 * time.Minute

// DefaultAlgorithm はデフォルトの署名アルゴリズム。
const DefaultAlgorithm = "HS256"

// dummyHash は存在しないユーザーに対して比較を行うためのbcryptハッシュ。
// ユーザーの有無で応答時間が変わらないようにする。
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// ServiceConfig はトークンサービスの設定。
type ServiceConfig struct {
	Scope     model.Scope
	Secret    []byte
	Algorithm string        // HS256, HS384, HS512
	TTL       time.Duration // 0の場合はDefaultTTL
	Now       func() time.Time
}

// claims はトークンのペイロード。
type claims struct {
	jwt.RegisteredClaims
}

// Service は1つのスコープに属するトークンの発行・検証を行う。
// adminとuserで別々のインスタンスを生成する。
type Service struct {
	store  credential.Lookuper
	scope  model.Scope
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// NewService はServiceを生成する。
// HMAC系以外のアルゴリズムや空の署名鍵はエラーとする。
func NewService(store credential.Lookuper, cfg ServiceConfig) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if cfg.Scope == "" {
		return nil, fmt.Errorf("scope is required")
	}
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("%s signing secret is empty", cfg.Scope)
	}

	alg := cfg.Algorithm
	if alg == "" {
		alg = DefaultAlgorithm
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q: only HS256, HS384 and HS512 are allowed", alg)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	return &Service{
		store:  store,
		scope:  cfg.Scope,
		secret: secret,
		method: method,
		ttl:    ttl,
		now:    now,
	}, nil
}

// Scope はサービスのスコープを返す。
func (s *Service) Scope() model.Scope {
	return s.scope
}

// Issue はユーザー名とパスワードを検証し、署名済みトークンを発行する。
// プリンシパルが存在しない場合やパスワード不一致の場合はINVALID_CREDENTIALSを返す。
func (s *Service) Issue(ctx context.Context, username, password string) (*model.Token, error) {
	cred, found := s.store.Lookup(username)
	if !found {
		cred = model.Credential{PasswordHash: dummyHash}
	}
	if !credential.Verify(cred, password) || !found {
		slog.InfoContext(ctx, "token request rejected",
			slog.String("scope", string(s.scope)),
			slog.String("username", username),
		)
		return nil, model.NewInvalidCredentialsError()
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	token := jwt.NewWithClaims(s.method, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Audience:  jwt.ClaimStrings{string(s.scope)},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	slog.InfoContext(ctx, "token issued",
		slog.String("scope", string(s.scope)),
		slog.String("username", username),
	)

	return &model.Token{
		AccessToken: signed,
		TokenType:   model.TokenTypeBearer,
		ExpiresAt:   expiresAt,
	}, nil
}

// Validate はトークンの署名・アルゴリズム・有効期限・スコープを検証し、subjectを返す。
// いずれかの検証に失敗した場合はCOULD_NOT_VALIDATE_CREDENTIALSを返す。
func (s *Service) Validate(tokenString string) (string, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(tokenString, c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(string(s.scope)),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		apiErr := model.NewCouldNotValidateError()
		apiErr.Err = errors.Join(model.ErrAuthentication, err)
		return "", apiErr
	}
	if c.Subject == "" {
		return "", model.NewCouldNotValidateError()
	}
	return c.Subject, nil
}
