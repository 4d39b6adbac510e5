// Package app はコマンドの解析、設定の読み込み、依存関係の組み立てを行い、
// 同期ジョブを1回実行するエントリーポイントを提供する。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/rss2notion/internal/config"
	"github.com/hitoshi/rss2notion/internal/feed"
	"github.com/hitoshi/rss2notion/internal/logger"
	"github.com/hitoshi/rss2notion/internal/metrics"
	"github.com/hitoshi/rss2notion/internal/model"
	"github.com/hitoshi/rss2notion/internal/notion"
	"github.com/hitoshi/rss2notion/internal/pipeline"
	"github.com/hitoshi/rss2notion/internal/repository"
	"github.com/hitoshi/rss2notion/internal/security"
	"github.com/hitoshi/rss2notion/internal/worker/syncjob"
)

// プロセスの終了コード
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitConfigError = 2
)

// pushTimeout はPushgatewayへの送信のタイムアウト。
const pushTimeout = 10 * time.Second

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップしてから環境変数からConfigを読み込み、
// 読み込んだLOG_LEVELでログを再設定する。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, *slog.Logger, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	log := logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, log, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, logger.SetupDefault(w, cfg.LogLevel), nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで1回実行する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		logger.SetupDefault(w, slog.LevelInfo)
		return err
	}

	cfg, log, err := Init(w)
	if err != nil {
		return model.NewConfigurationError(err)
	}

	log.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("feeder_db_id", cfg.FeederDatabaseID),
		slog.String("reader_db_id", cfg.ReaderDatabaseID),
	)

	// SIGINT/SIGTERMで実行中のリクエストをキャンセルする
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandCheck:
		return runCheck(ctx, cfg, log)
	case CommandDryRun:
		return runSync(ctx, cfg, log, true)
	default:
		return runSync(ctx, cfg, log, false)
	}
}

// ExitCode はRunの戻り値をプロセスの終了コードに変換する。
// 設定エラーと不明なコマンドは2、それ以外のエラーは1を返す。
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case model.IsCode(err, model.ErrCodeConfiguration), errors.Is(err, ErrUnknownCommand):
		return ExitConfigError
	default:
		return ExitFailure
	}
}

// newNotionClient は設定からNotion APIクライアントを生成する。
func newNotionClient(cfg *config.Config, log *slog.Logger) *notion.Client {
	return notion.NewClient(
		&http.Client{Timeout: cfg.NotionTimeout},
		log,
		notion.ClientConfig{
			BaseURL:   cfg.NotionBaseURL,
			Token:     cfg.NotionToken,
			Version:   cfg.NotionVersion,
			RateLimit: cfg.NotionRateLimit,
		},
	)
}

// runSync は全依存関係をワイヤリングし、同期ジョブを1回実行する。
// dryRunがtrueの場合はreaderデータベースへの書き込みをログ出力に置き換える。
func runSync(ctx context.Context, cfg *config.Config, log *slog.Logger, dryRun bool) error {
	// 1. Notionリポジトリの初期化
	client := newNotionClient(cfg, log)
	subRepo := repository.NewNotionSubscriptionRepo(client, cfg.FeederDatabaseID)
	readerRepo := repository.NewNotionReaderRepo(client, cfg.ReaderDatabaseID, log)

	var writer pipeline.RecordWriter = readerRepo
	if dryRun {
		writer = repository.NewDryRunWriter(log)
	}

	// 2. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard(cfg.FetchAllowPrivate)
	sanitizer := security.NewContentSanitizer()

	// 3. メトリクスの初期化
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	// 4. フェッチャー・パイプライン・ジョブの初期化
	fetcher := feed.NewFetcher(ssrfGuard, log, cfg.FetchTimeout, cfg.FetchMaxSize)
	pl := pipeline.NewPipeline(readerRepo, writer, sanitizer, collector, log, cfg.RecencyWindow)
	job := syncjob.NewJob(subRepo, fetcher, pl, collector, log)

	runErr := job.RunOnce(ctx)

	// 5. メトリクスの送信（失敗してもジョブの結果は変えない）
	if cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		if err := metrics.Push(pushCtx, cfg.PushgatewayURL, reg); err != nil {
			log.Warn("メトリクスの送信に失敗しました",
				slog.String("pushgateway_url", cfg.PushgatewayURL),
				slog.String("error", err.Error()),
			)
		}
	}

	return runErr
}

// runCheck はfeeder/readerの両データベースを取得し、必要なプロパティが揃っているかを確認する。
func runCheck(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	client := newNotionClient(cfg, log)

	targets := []struct {
		name   string
		id     string
		verify func(*notion.Database) error
	}{
		{"feeder", cfg.FeederDatabaseID, repository.VerifyFeederSchema},
		{"reader", cfg.ReaderDatabaseID, repository.VerifyReaderSchema},
	}

	var errs []error
	for _, t := range targets {
		db, err := client.RetrieveDatabase(ctx, t.id)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s database: %w", t.name, err))
			continue
		}
		if err := t.verify(db); err != nil {
			errs = append(errs, fmt.Errorf("%s database: %w", t.name, err))
			continue
		}
		log.Info("データベースを確認しました",
			slog.String("database", t.name),
			slog.String("database_id", db.ID),
			slog.String("title", notion.PlainText(db.Title)),
		)
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	log.Info("設定とデータベースの確認が完了しました")
	return nil
}
