package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hitoshi/assignman/internal/assignment"
	"github.com/hitoshi/assignman/internal/auth"
	"github.com/hitoshi/assignman/internal/config"
	"github.com/hitoshi/assignman/internal/credential"
	"github.com/hitoshi/assignman/internal/database"
	"github.com/hitoshi/assignman/internal/handler"
	"github.com/hitoshi/assignman/internal/logger"
	"github.com/hitoshi/assignman/internal/metrics"
	"github.com/hitoshi/assignman/internal/model"
	"github.com/hitoshi/assignman/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込んでログレベルを反映する。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. ログレベルの反映
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)
	rest := commandArgs(args)

	// healthcheckとhash-passwordは軽量サブコマンドのため、フル初期化をスキップする
	switch cmd {
	case CommandHealthcheck:
		return runHealthcheck(rest)
	case CommandHashPassword:
		return runHashPassword(w, rest)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("database_url", database.MaskURL(cfg.DatabaseURL)),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// store はオープン済みの課題リポジトリと、その接続を閉じる関数の組。
type store struct {
	repo  repository.AssignmentRepository
	close func()
}

// openStore は接続URLのスキームに応じてストアを開き、疎通を確認する。
// 疎通確認に失敗した場合はmodel.ErrConnectivityをラップしたエラーを返す。
func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	driver, err := database.DriverFromURL(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
	defer cancel()

	switch driver {
	case database.DriverMongo:
		client, err := database.ConnectMongo(connectCtx, cfg.DatabaseURL, cfg.StoreTimeout)
		if err != nil {
			return nil, err
		}
		repo := repository.NewMongoAssignmentRepo(client.Database(cfg.DatabaseName), cfg.CollectionName)
		if err := repo.EnsureSchema(connectCtx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("failed to prepare collection: %w", err)
		}
		slog.Info("MongoDB connection established",
			slog.String("database", cfg.DatabaseName),
			slog.String("collection", cfg.CollectionName),
		)
		return &store{
			repo: repo,
			close: func() {
				if err := client.Disconnect(context.Background()); err != nil {
					slog.Warn("failed to disconnect MongoDB", slog.String("error", err.Error()))
				}
			},
		}, nil

	case database.DriverPostgres:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		repo := repository.NewPostgresAssignmentRepo(db)
		if err := repo.Ping(connectCtx); err != nil {
			db.Close()
			return nil, err
		}
		slog.Info("database connection established")
		return &store{repo: repo, close: func() { db.Close() }}, nil

	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

// buildTokenServices はスコープごとのクレデンシャルストアとトークンサービスを構築する。
func buildTokenServices(cfg *config.Config) (admin, user *auth.Service, err error) {
	admins, users, err := credential.Load(cfg.CredentialsFile, cfg.BcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	admin, err = auth.NewService(admins, auth.ServiceConfig{
		Scope:     model.ScopeAdmin,
		Secret:    []byte(cfg.SecretKeyAdmin),
		Algorithm: cfg.Algorithm,
		TTL:       cfg.AccessTokenTTL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build admin token service: %w", err)
	}

	user, err = auth.NewService(users, auth.ServiceConfig{
		Scope:     model.ScopeUser,
		Secret:    []byte(cfg.SecretKeyUser),
		Algorithm: cfg.Algorithm,
		TTL:       cfg.AccessTokenTTL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build user token service: %w", err)
	}

	return admin, user, nil
}

// newRouter は全依存関係をワイヤリングしたHTTPハンドラーを返す。
func newRouter(cfg *config.Config, repo repository.AssignmentRepository) (http.Handler, error) {
	adminTokens, userTokens, err := buildTokenServices(cfg)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	assignmentService := assignment.NewService(repo, collector)

	return handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		AdminTokens:       adminTokens,
		UserTokens:        userTokens,
		AssignmentService: assignmentService,
		HealthChecker:     repo,
		Metrics:           collector,
		MetricsHandler:    metrics.Handler(reg),
	}), nil
}

// runServe はAPIサーバーモードで起動する。
// ストアに接続し、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. ストア接続（到達できない場合は起動しない）
	st, err := openStore(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to store: %w", err)
	}
	defer st.close()

	// 2. ルーターの構築
	router, err := newRouter(cfg, st.repo)
	if err != nil {
		return err
	}

	// 3. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen error: %w", err)
	case <-stop:
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はストアのスキーマを準備する。
// PostgreSQLでは未適用のマイグレーションを順番に適用し、
// MongoDBでは一意インデックスの作成とIDカウンタの初期化を行う。
func runMigrate(cfg *config.Config) error {
	driver, err := database.DriverFromURL(cfg.DatabaseURL)
	if err != nil {
		return err
	}

	slog.Info("running database migrations",
		slog.String("driver", string(driver)),
		slog.String("database_url", database.MaskURL(cfg.DatabaseURL)),
	)

	switch driver {
	case database.DriverPostgres:
		version, err := database.RunMigrations(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("schema version", slog.Uint64("version", uint64(version)))
	case database.DriverMongo:
		// openStoreがEnsureSchemaまで実行する
		st, err := openStore(context.Background(), cfg)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		st.close()
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(args []string) error {
	fs := pflag.NewFlagSet("healthcheck", pflag.ContinueOnError)
	defaultPort := os.Getenv("SERVER_PORT")
	if defaultPort == "" {
		defaultPort = "8080"
	}
	port := fs.String("port", defaultPort, "port of the running API server")
	timeout := fs.Duration("timeout", 5*time.Second, "request timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	url := fmt.Sprintf("http://localhost:%s/health", *port)
	client := &http.Client{Timeout: *timeout}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// runHashPassword はパスワードのbcryptハッシュをwに出力する。
// 出力はクレデンシャルファイルのpassword_hashにそのまま記載できる。
func runHashPassword(w io.Writer, args []string) error {
	fs := pflag.NewFlagSet("hash-password", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cost := fs.Int("cost", 0, "bcrypt cost (default: BCRYPT_COST or 10)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: hash-password [--cost N] <password>")
	}

	c := *cost
	if c == 0 {
		c = envBcryptCost()
	}

	hash, err := credential.HashPassword(fs.Arg(0), c)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(hash))
	return err
}

// envBcryptCost はBCRYPT_COSTを読み取る。未設定または不正値の場合はbcrypt.DefaultCostを返す。
func envBcryptCost() int {
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return bcrypt.DefaultCost
}
