// Package metrics は同期ジョブの実行メトリクスをPrometheus形式で収集する。
// バッチジョブのためスクレイプではなくPushgatewayへの送信で公開する。
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// JobName はPushgatewayに送信する際のjobラベル。
const JobName = "rss2notion"

// 記事スキップ理由のラベル値。
const (
	ReasonOld        = "old"
	ReasonKeyword    = "keyword"
	ReasonDuplicate  = "duplicate"
	ReasonDedupError = "dedup_error"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 同期ジョブとフィルタパイプラインから利用する。
type MetricsCollector interface {
	RecordFeedFetched(duration time.Duration)
	RecordFeedFailure()
	RecordItemSeen()
	RecordItemStored()
	RecordItemSkipped(reason string)
	RecordWriteFailure()
	RecordRunCompleted(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	feedsFetched  prometheus.Counter
	feedsFailed   prometheus.Counter
	fetchLatency  prometheus.Histogram
	itemsSeen     prometheus.Counter
	itemsStored   prometheus.Counter
	itemsSkipped  *prometheus.CounterVec
	writeFailures prometheus.Counter
	runDuration   prometheus.Gauge
	lastSuccess   prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		feedsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rss2notion_feeds_fetched_total",
			Help: "取得に成功したフィードの合計数",
		}),
		feedsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rss2notion_feeds_failed_total",
			Help: "取得に失敗したフィードの合計数",
		}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rss2notion_fetch_latency_seconds",
			Help:    "フィード取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		itemsSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rss2notion_items_seen_total",
			Help: "処理した記事の合計数",
		}),
		itemsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rss2notion_items_stored_total",
			Help: "readerデータベースに保存した記事の合計数",
		}),
		itemsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rss2notion_items_skipped_total",
			Help: "理由別のスキップした記事数",
		}, []string{"reason"}),
		writeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rss2notion_write_failures_total",
			Help: "readerデータベースへの書き込みに失敗した記事の合計数",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rss2notion_run_duration_seconds",
			Help: "直近の同期実行にかかった時間（秒）",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rss2notion_last_success_timestamp_seconds",
			Help: "直近で同期実行が完了したUNIX時刻",
		}),
	}

	reg.MustRegister(
		c.feedsFetched,
		c.feedsFailed,
		c.fetchLatency,
		c.itemsSeen,
		c.itemsStored,
		c.itemsSkipped,
		c.writeFailures,
		c.runDuration,
		c.lastSuccess,
	)

	return c
}

// RecordFeedFetched はフィード取得成功とそのレイテンシを記録する。
func (c *Collector) RecordFeedFetched(duration time.Duration) {
	c.feedsFetched.Inc()
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordFeedFailure はフィード取得失敗を記録する。
func (c *Collector) RecordFeedFailure() {
	c.feedsFailed.Inc()
}

// RecordItemSeen は処理した記事を記録する。
func (c *Collector) RecordItemSeen() {
	c.itemsSeen.Inc()
}

// RecordItemStored は保存した記事を記録する。
func (c *Collector) RecordItemStored() {
	c.itemsStored.Inc()
}

// RecordItemSkipped はスキップした記事を理由ラベル付きで記録する。
func (c *Collector) RecordItemSkipped(reason string) {
	c.itemsSkipped.WithLabelValues(reason).Inc()
}

// RecordWriteFailure は書き込み失敗を記録する。
func (c *Collector) RecordWriteFailure() {
	c.writeFailures.Inc()
}

// RecordRunCompleted は同期実行の所要時間と完了時刻を記録する。
func (c *Collector) RecordRunCompleted(duration time.Duration) {
	c.runDuration.Set(duration.Seconds())
	c.lastSuccess.SetToCurrentTime()
}

// Push は収集したメトリクスをPushgatewayへ送信する。
// 同じjobラベルの既存メトリクスは置き換えられる。
func Push(ctx context.Context, gatewayURL string, gatherer prometheus.Gatherer) error {
	err := push.New(gatewayURL, JobName).
		Gatherer(gatherer).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("Pushgatewayへの送信に失敗: %w", err)
	}
	return nil
}

// NopCollector は何も記録しないMetricsCollector。
type NopCollector struct{}

func (NopCollector) RecordFeedFetched(time.Duration)  {}
func (NopCollector) RecordFeedFailure()               {}
func (NopCollector) RecordItemSeen()                  {}
func (NopCollector) RecordItemStored()                {}
func (NopCollector) RecordItemSkipped(string)         {}
func (NopCollector) RecordWriteFailure()              {}
func (NopCollector) RecordRunCompleted(time.Duration) {}
