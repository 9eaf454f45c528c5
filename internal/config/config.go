package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Store
	DatabaseURL    string
	DatabaseName   string
	CollectionName string
	StoreTimeout   time.Duration

	// Token
	SecretKeyAdmin string
	SecretKeyUser  string
	Algorithm      string
	AccessTokenTTL time.Duration

	// Credentials
	CredentialsFile string
	BcryptCost      int

	// Logging
	LogLevel string

	// Server
	ServerPort string
}

// Load は.envファイルと環境変数からConfigを読み込む。
// 既に設定済みの環境変数は.envの値より優先される。
// 必須環境変数が未設定の場合、または両スコープの署名鍵が同一の場合はエラーを返す。
func Load() (*Config, error) {
	if err := loadDotEnv(getEnvString("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{}

	// Required fields
	var missing []string

	// MONGO_URIは旧来の変数名として引き続き受け付ける
	cfg.DatabaseURL = getEnvString("DATABASE_URL", os.Getenv("MONGO_URI"))
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.SecretKeyAdmin = os.Getenv("SECRET_KEY_ADMIN")
	if cfg.SecretKeyAdmin == "" {
		missing = append(missing, "SECRET_KEY_ADMIN")
	}

	cfg.SecretKeyUser = os.Getenv("SECRET_KEY_USER")
	if cfg.SecretKeyUser == "" {
		missing = append(missing, "SECRET_KEY_USER")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// スコープ間でトークンを流用できないよう、署名鍵は別々でなければならない
	if cfg.SecretKeyAdmin == cfg.SecretKeyUser {
		return nil, fmt.Errorf("SECRET_KEY_ADMIN and SECRET_KEY_USER must differ")
	}

	// Optional fields with defaults
	cfg.DatabaseName = getEnvString("DATABASE_NAME", "User")
	cfg.CollectionName = getEnvString("COLLECTION_NAME", "UserAssignments")
	cfg.StoreTimeout = getEnvDuration("STORE_TIMEOUT", 10*time.Second)
	cfg.Algorithm = getEnvString("ALGORITHM", "HS256")
	cfg.AccessTokenTTL = time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 15)) * time.Minute
	cfg.CredentialsFile = getEnvString("CREDENTIALS_FILE", "")
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", bcrypt.DefaultCost)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")

	if cfg.AccessTokenTTL <= 0 {
		return nil, fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	return cfg, nil
}

// loadDotEnv は.envファイルを読み込む。ファイルが存在しない場合は何もしない。
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
