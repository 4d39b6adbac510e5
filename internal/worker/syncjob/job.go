// Package syncjob はfeederデータベースの購読を1回分処理する同期ジョブを提供する。
// 購読の取得、フィードの取得、フィルタパイプラインの実行を逐次的に行う。
package syncjob

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/rss2notion/internal/metrics"
	"github.com/hitoshi/rss2notion/internal/model"
	"github.com/hitoshi/rss2notion/internal/pipeline"
	"github.com/hitoshi/rss2notion/internal/repository"
)

// FeedFetcher はフィード取得のインターフェース。
type FeedFetcher interface {
	FetchFeed(ctx context.Context, feedURL string) (*model.FetchedFeed, error)
}

// ItemProcessor は1購読分の記事を処理するインターフェース。
type ItemProcessor interface {
	Process(ctx context.Context, sub model.Subscription, items []model.FeedItem) pipeline.Stats
}

// runSummary は1回の実行結果の集計。
type runSummary struct {
	RunID         string
	Subscriptions int
	FeedsFetched  int
	FeedsFailed   int
	Items         pipeline.Stats
	Duration      time.Duration
}

// Job は購読ごとにフィードを取得し、記事をパイプラインに渡す同期ジョブ。
type Job struct {
	subRepo   repository.SubscriptionRepository
	fetcher   FeedFetcher
	processor ItemProcessor
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
}

// NewJob はJobの新しいインスタンスを生成する。
func NewJob(
	subRepo repository.SubscriptionRepository,
	fetcher FeedFetcher,
	processor ItemProcessor,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Job {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Job{
		subRepo:   subRepo,
		fetcher:   fetcher,
		processor: processor,
		metrics:   collector,
		logger:    logger,
	}
}

// RunOnce は購読一覧を1回取得し、各購読を順番に処理する。
// 購読一覧の取得失敗とコンテキストのキャンセルによる中断をエラーとして返す。
// フィード取得の失敗はログに記録して次の購読に進む。
func (j *Job) RunOnce(ctx context.Context) error {
	_, err := j.run(ctx)
	return err
}

func (j *Job) run(ctx context.Context) (runSummary, error) {
	start := time.Now()
	summary := runSummary{RunID: uuid.NewString()}
	logger := j.logger.With(slog.String("run_id", summary.RunID))

	subs, err := j.subRepo.ListActiveSubscriptions(ctx)
	if err != nil {
		logger.Error("購読一覧の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return summary, err
	}
	summary.Subscriptions = len(subs)

	if len(subs) == 0 {
		logger.Info("有効な購読がありません")
		summary.Duration = time.Since(start)
		j.metrics.RecordRunCompleted(summary.Duration)
		return summary, nil
	}

	logger.Info("同期を開始します",
		slog.Int("subscription_count", len(subs)),
	)

	for _, sub := range subs {
		if ctx.Err() != nil {
			logger.Warn("コンテキストがキャンセルされたため同期を中断します",
				slog.String("error", ctx.Err().Error()),
			)
			break
		}

		fetchStart := time.Now()
		feed, err := j.fetcher.FetchFeed(ctx, sub.FeedURL)
		if err != nil {
			summary.FeedsFailed++
			j.metrics.RecordFeedFailure()
			logger.Error("フィードの取得に失敗したためスキップします",
				slog.String("feed_url", sub.FeedURL),
				slog.String("page_id", sub.PageID),
				slog.String("error", err.Error()),
			)
			continue
		}
		summary.FeedsFetched++
		j.metrics.RecordFeedFetched(time.Since(fetchStart))

		stats := j.processor.Process(ctx, sub, feed.Items)
		summary.Items.Add(stats)

		attrs := append([]slog.Attr{
			slog.String("feed_url", sub.FeedURL),
			slog.String("feed_title", feed.Title),
		}, stats.LogAttrs()...)
		logger.LogAttrs(ctx, slog.LevelInfo, "購読の処理が完了しました", attrs...)
	}

	summary.Duration = time.Since(start)
	attrs := append([]slog.Attr{
		slog.Int("subscription_count", summary.Subscriptions),
		slog.Int("feeds_fetched", summary.FeedsFetched),
		slog.Int("feeds_failed", summary.FeedsFailed),
		slog.Float64("duration_ms", float64(summary.Duration.Milliseconds())),
	}, summary.Items.LogAttrs()...)

	if err := ctx.Err(); err != nil {
		logger.LogAttrs(context.Background(), slog.LevelWarn, "同期が中断されました", attrs...)
		return summary, fmt.Errorf("同期が中断されました: %w", err)
	}

	j.metrics.RecordRunCompleted(summary.Duration)
	logger.LogAttrs(ctx, slog.LevelInfo, "同期が完了しました", attrs...)

	return summary, nil
}
