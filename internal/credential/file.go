package credential

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hitoshi/assignman/internal/model"
	"gopkg.in/yaml.v3"
)

// fileEntry はクレデンシャルファイルの1エントリ。
// passwordとpassword_hashのどちらか一方のみを指定する。
type fileEntry struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	PasswordHash string `yaml:"password_hash"`
}

// fileFormat はクレデンシャルファイル全体の構造。
//
//	admins:
//	  - username: admin1
//	    password_hash: $2a$10$...
//	users:
//	  - username: user1
//	    password: password1
type fileFormat struct {
	Admins []fileEntry `yaml:"admins"`
	Users  []fileEntry `yaml:"users"`
}

// defaultPrincipals はクレデンシャルファイル未指定時の組み込みプリンシパル。
var defaultPrincipals = fileFormat{
	Admins: []fileEntry{
		{Username: "admin1", Password: "password1"},
		{Username: "admin2", Password: "password2"},
	},
	Users: []fileEntry{
		{Username: "user1", Password: "password1"},
		{Username: "user2", Password: "password2"},
	},
}

// Load はadminスコープとuserスコープのストアを構築する。
// pathが空の場合は組み込みプリンシパルを使用し、警告ログを出力する。
// 平文パスワードは指定されたcostでハッシュ化される。
func Load(path string, cost int) (admins, users *StaticStore, err error) {
	f := defaultPrincipals
	if path == "" {
		slog.Warn("CREDENTIALS_FILE is not set; using built-in principals")
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		f, err = parseFile(data)
		if err != nil {
			return nil, nil, err
		}
	}

	admins, err = buildStore(model.ScopeAdmin, f.Admins, cost)
	if err != nil {
		return nil, nil, err
	}
	users, err = buildStore(model.ScopeUser, f.Users, cost)
	if err != nil {
		return nil, nil, err
	}
	return admins, users, nil
}

// parseFile はYAML形式のクレデンシャルファイルを解析する。
func parseFile(data []byte) (fileFormat, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fileFormat{}, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	return f, nil
}

func buildStore(scope model.Scope, entries []fileEntry, cost int) (*StaticStore, error) {
	creds := make([]model.Credential, 0, len(entries))
	for _, e := range entries {
		switch {
		case e.Password != "" && e.PasswordHash != "":
			return nil, fmt.Errorf("%s %q: set either password or password_hash, not both", scope, e.Username)
		case e.PasswordHash != "":
			creds = append(creds, model.Credential{Username: e.Username, PasswordHash: []byte(e.PasswordHash)})
		case e.Password != "":
			hash, err := HashPassword(e.Password, cost)
			if err != nil {
				return nil, fmt.Errorf("%s %q: %w", scope, e.Username, err)
			}
			creds = append(creds, model.Credential{Username: e.Username, PasswordHash: hash})
		default:
			return nil, fmt.Errorf("%s %q: password or password_hash is required", scope, e.Username)
		}
	}
	return NewStaticStore(scope, creds)
}
