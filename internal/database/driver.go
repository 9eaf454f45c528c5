package database

import (
	"fmt"
	"net/url"
	"strings"
)

// Driver は課題ストアのバックエンド種別を表す。
type Driver string

const (
	// DriverMongo はMongoDBのドキュメントコレクションをストアとして使用する。
	DriverMongo Driver = "mongodb"
	// DriverPostgres はPostgreSQLのassignmentsテーブルをストアとして使用する。
	DriverPostgres Driver = "postgres"
)

// DriverFromURL は接続URLのスキームからバックエンド種別を判定する。
func DriverFromURL(databaseURL string) (Driver, error) {
	switch {
	case strings.HasPrefix(databaseURL, "mongodb://"), strings.HasPrefix(databaseURL, "mongodb+srv://"):
		return DriverMongo, nil
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database URL scheme: %s", MaskURL(databaseURL))
	}
}

// MaskURL はログ出力用に接続URLのユーザー情報を伏せ字にする。
// スキームやホストを解析できない値は全体を伏せる。
func MaskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "***"
	}
	hasUser := u.User != nil
	u.User = nil
	masked := u.String()
	if hasUser {
		masked = strings.Replace(masked, "://", "://***:***@", 1)
	}
	return masked
}
