package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/assignman/internal/credential"
	"github.com/hitoshi/assignman/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- テストヘルパー ---

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func newStore(t *testing.T, scope model.Scope, users map[string]string) *credential.StaticStore {
	t.Helper()
	var creds []model.Credential
	for name, pw := range users {
		hash, err := credential.HashPassword(pw, bcrypt.MinCost)
		require.NoError(t, err)
		creds = append(creds, model.Credential{Username: name, PasswordHash: hash})
	}
	store, err := credential.NewStaticStore(scope, creds)
	require.NoError(t, err)
	return store
}

func newService(t *testing.T, scope model.Scope, secret string, clock *fakeClock) *Service {
	t.Helper()
	store := newStore(t, scope, map[string]string{
		"user1":  "password1",
		"admin1": "password1",
	})
	svc, err := NewService(store, ServiceConfig{
		Scope:  scope,
		Secret: []byte(secret),
		TTL:    15 * time.Minute,
		Now:    clock.Now,
	})
	require.NoError(t, err)
	return svc
}

// --- テスト ---

func TestIssue_ValidCredentials_TokenValidatesToUsername(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	svc := newService(t, model.ScopeUser, "user-secret", clock)

	token, err := svc.Issue(context.Background(), "user1", "password1")
	require.NoError(t, err)
	assert.Equal(t, model.TokenTypeBearer, token.TokenType)
	assert.NotEmpty(t, token.AccessToken)
	assert.WithinDuration(t, clock.t.Add(15*time.Minute), token.ExpiresAt, time.Second)

	username, err := svc.Validate(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user1", username)

	// 期限直前まではそのまま有効
	clock.t = clock.t.Add(14 * time.Minute)
	username, err = svc.Validate(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user1", username)
}

func TestIssue_InvalidCredentials(t *testing.T) {
	svc := newService(t, model.ScopeUser, "user-secret", &fakeClock{t: time.Now()})

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "user1", "nope"},
		{"unknown user", "ghost", "password1"},
		{"empty password", "user1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := svc.Issue(context.Background(), tt.username, tt.password)
			assert.Nil(t, token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrAuthentication))

			var apiErr *model.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, model.ErrCodeInvalidCredentials, apiErr.Code)
		})
	}
}

func TestValidate_ExpiredToken(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	svc := newService(t, model.ScopeUser, "user-secret", clock)

	token, err := svc.Issue(context.Background(), "user1", "password1")
	require.NoError(t, err)

	clock.t = clock.t.Add(15*time.Minute + time.Second)
	_, err = svc.Validate(token.AccessToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrAuthentication))

	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, model.ErrCodeCouldNotValidate, apiErr.Code)
}

func TestValidate_CrossScopeRejected(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	adminSvc := newService(t, model.ScopeAdmin, "admin-secret", clock)
	userSvc := newService(t, model.ScopeUser, "user-secret", clock)

	adminToken, err := adminSvc.Issue(context.Background(), "admin1", "password1")
	require.NoError(t, err)
	userToken, err := userSvc.Issue(context.Background(), "user1", "password1")
	require.NoError(t, err)

	_, err = userSvc.Validate(adminToken.AccessToken)
	assert.ErrorIs(t, err, model.ErrAuthentication)

	_, err = adminSvc.Validate(userToken.AccessToken)
	assert.ErrorIs(t, err, model.ErrAuthentication)
}

func TestValidate_SameSecretDifferentScopeRejected(t *testing.T) {
	// 設定ミスで署名鍵が同じでも、audienceでスコープを分離する
	clock := &fakeClock{t: time.Now()}
	adminSvc := newService(t, model.ScopeAdmin, "shared", clock)
	userSvc := newService(t, model.ScopeUser, "shared", clock)

	adminToken, err := adminSvc.Issue(context.Background(), "admin1", "password1")
	require.NoError(t, err)

	_, err = userSvc.Validate(adminToken.AccessToken)
	assert.ErrorIs(t, err, model.ErrAuthentication)
}

func TestValidate_MalformedAndTampered(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	svc := newService(t, model.ScopeUser, "user-secret", clock)

	token, err := svc.Issue(context.Background(), "user1", "password1")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"truncated signature", token.AccessToken[:len(token.AccessToken)-4]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Validate(tt.token)
			assert.ErrorIs(t, err, model.ErrAuthentication)
		})
	}
}

func TestValidate_AlgorithmMismatch(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	svc := newService(t, model.ScopeUser, "user-secret", clock)

	// 同じ鍵でもHS512で署名されたトークンはHS256のサービスでは拒否される
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "user1",
		Audience:  jwt.ClaimStrings{string(model.ScopeUser)},
		ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Minute)),
	})
	signed, err := tok.SignedString([]byte("user-secret"))
	require.NoError(t, err)

	_, err = svc.Validate(signed)
	assert.ErrorIs(t, err, model.ErrAuthentication)
}

func TestValidate_MissingSubjectOrExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	svc := newService(t, model.ScopeUser, "user-secret", clock)

	tests := []struct {
		name   string
		claims jwt.RegisteredClaims
	}{
		{"missing subject", jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{string(model.ScopeUser)},
			ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Minute)),
		}},
		{"missing expiry", jwt.RegisteredClaims{
			Subject:  "user1",
			Audience: jwt.ClaimStrings{string(model.ScopeUser)},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tt.claims).SignedString([]byte("user-secret"))
			require.NoError(t, err)

			_, err = svc.Validate(signed)
			assert.ErrorIs(t, err, model.ErrAuthentication)
		})
	}
}

func TestNewService_ConfigErrors(t *testing.T) {
	store := newStore(t, model.ScopeUser, map[string]string{"user1": "password1"})

	tests := []struct {
		name  string
		store credential.Lookuper
		cfg   ServiceConfig
	}{
		{"nil store", nil, ServiceConfig{Scope: model.ScopeUser, Secret: []byte("s")}},
		{"empty scope", store, ServiceConfig{Secret: []byte("s")}},
		{"empty secret", store, ServiceConfig{Scope: model.ScopeUser}},
		{"asymmetric algorithm", store, ServiceConfig{Scope: model.ScopeUser, Secret: []byte("s"), Algorithm: "RS256"}},
		{"none algorithm", store, ServiceConfig{Scope: model.ScopeUser, Secret: []byte("s"), Algorithm: "none"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewService(tt.store, tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestNewService_Defaults(t *testing.T) {
	store := newStore(t, model.ScopeAdmin, map[string]string{"admin1": "password1"})
	svc, err := NewService(store, ServiceConfig{Scope: model.ScopeAdmin, Secret: []byte("s")})
	require.NoError(t, err)

	assert.Equal(t, DefaultTTL, svc.ttl)
	assert.Equal(t, DefaultAlgorithm, svc.method.Alg())
	assert.Equal(t, model.ScopeAdmin, svc.Scope())
}
