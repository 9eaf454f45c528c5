package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandMigrate はストアのスキーマ準備（PostgreSQLのマイグレーション、MongoDBのインデックス作成）を実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
	// CommandHashPassword はクレデンシャルファイル用のbcryptハッシュを出力することを示す。
	CommandHashPassword Command = "hash-password"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空、フラグから始まる、またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "migrate":
		return CommandMigrate
	case "healthcheck":
		return CommandHealthcheck
	case "hash-password":
		return CommandHashPassword
	default:
		return CommandServe
	}
}

// commandArgs はサブコマンド名を除いた引数を返す。
func commandArgs(args []string) []string {
	if len(args) == 0 {
		return nil
	}
	switch Command(args[0]) {
	case CommandServe, CommandMigrate, CommandHealthcheck, CommandHashPassword:
		return args[1:]
	default:
		return args
	}
}
