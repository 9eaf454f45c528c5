package credential

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hitoshi/assignman/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func mustHash(t *testing.T, password string) []byte {
	t.Helper()
	hash, err := HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	return hash
}

func TestStaticStore_LookupAndVerify(t *testing.T) {
	store, err := NewStaticStore(model.ScopeUser, []model.Credential{
		{Username: "user1", PasswordHash: mustHash(t, "password1")},
	})
	require.NoError(t, err)

	c, ok := store.Lookup("user1")
	require.True(t, ok)
	assert.True(t, Verify(c, "password1"))
	assert.False(t, Verify(c, "wrong"))

	_, ok = store.Lookup("nobody")
	assert.False(t, ok)
	assert.Equal(t, model.ScopeUser, store.Scope())
	assert.Equal(t, 1, store.Len())
}

func TestStaticStore_CopiesInput(t *testing.T) {
	hash := mustHash(t, "password1")
	creds := []model.Credential{{Username: "user1", PasswordHash: hash}}
	store, err := NewStaticStore(model.ScopeUser, creds)
	require.NoError(t, err)

	// 呼び出し側のスライスを書き換えてもストアは影響を受けない
	for i := range hash {
		hash[i] = 0
	}
	creds[0].Username = "mutated"

	c, ok := store.Lookup("user1")
	require.True(t, ok)
	assert.True(t, Verify(c, "password1"))
}

func TestNewStaticStore_RejectsInvalidEntries(t *testing.T) {
	hash := mustHash(t, "pw")

	tests := []struct {
		name  string
		creds []model.Credential
	}{
		{"empty username", []model.Credential{{Username: "", PasswordHash: hash}}},
		{"duplicate username", []model.Credential{
			{Username: "a", PasswordHash: hash},
			{Username: "a", PasswordHash: hash},
		}},
		{"plaintext instead of hash", []model.Credential{{Username: "a", PasswordHash: []byte("password1")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStaticStore(model.ScopeAdmin, tt.creds)
			assert.Error(t, err)
		})
	}
}

func TestLoad_DefaultPrincipals(t *testing.T) {
	admins, users, err := Load("", bcrypt.MinCost)
	require.NoError(t, err)

	c, ok := admins.Lookup("admin1")
	require.True(t, ok)
	assert.True(t, Verify(c, "password1"))

	c, ok = users.Lookup("user2")
	require.True(t, ok)
	assert.True(t, Verify(c, "password2"))

	// スコープ間で名前空間を共有しない
	_, ok = admins.Lookup("user1")
	assert.False(t, ok)
	_, ok = users.Lookup("admin1")
	assert.False(t, ok)
}

func TestLoad_File(t *testing.T) {
	preHashed := string(mustHash(t, "s3cret"))
	content := "admins:\n" +
		"  - username: root\n" +
		"    password_hash: \"" + preHashed + "\"\n" +
		"users:\n" +
		"  - username: alice\n" +
		"    password: wonderland\n"

	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	admins, users, err := Load(path, bcrypt.MinCost)
	require.NoError(t, err)
	assert.Equal(t, 1, admins.Len())
	assert.Equal(t, 1, users.Len())

	c, ok := admins.Lookup("root")
	require.True(t, ok)
	assert.True(t, Verify(c, "s3cret"))

	c, ok = users.Lookup("alice")
	require.True(t, ok)
	assert.True(t, Verify(c, "wonderland"))
	assert.NotEqual(t, "wonderland", string(c.PasswordHash))
}

func TestLoad_FileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "admins: [\n"},
		{"missing secret", "users:\n  - username: bob\n"},
		{"both secrets", "users:\n  - username: bob\n    password: x\n    password_hash: y\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "credentials.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, _, err := Load(path, bcrypt.MinCost)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), bcrypt.MinCost)
	assert.Error(t, err)
}
