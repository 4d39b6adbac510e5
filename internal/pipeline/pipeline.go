package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/rss2notion/internal/metrics"
	"github.com/hitoshi/rss2notion/internal/model"
	"github.com/hitoshi/rss2notion/internal/security"
)

// DuplicateChecker はreaderデータベースに同じリンクの記事が存在するかを判定する。
type DuplicateChecker interface {
	ExistsByLink(ctx context.Context, link string) (bool, error)
}

// RecordWriter は採用した記事をreaderデータベースへ書き込む。
type RecordWriter interface {
	Create(ctx context.Context, record *model.StoredRecord) error
}

// Stats は1購読分の処理結果の集計。
type Stats struct {
	Seen             int
	Stored           int
	SkippedOld       int
	SkippedKeyword   int
	SkippedDuplicate int
	DedupErrors      int
	WriteErrors      int
}

// Add はotherの件数を加算する。
func (s *Stats) Add(other Stats) {
	s.Seen += other.Seen
	s.Stored += other.Stored
	s.SkippedOld += other.SkippedOld
	s.SkippedKeyword += other.SkippedKeyword
	s.SkippedDuplicate += other.SkippedDuplicate
	s.DedupErrors += other.DedupErrors
	s.WriteErrors += other.WriteErrors
}

// LogAttrs は集計をログ属性として返す。
func (s Stats) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.Int("items_seen", s.Seen),
		slog.Int("items_stored", s.Stored),
		slog.Int("skipped_old", s.SkippedOld),
		slog.Int("skipped_keyword", s.SkippedKeyword),
		slog.Int("skipped_duplicate", s.SkippedDuplicate),
		slog.Int("dedup_errors", s.DedupErrors),
		slog.Int("write_errors", s.WriteErrors),
	}
}

// Pipeline はフィード記事を新着→キーワード→重複の順にフィルタし、
// 通過した記事を画像付きのStoredRecordとして書き込む。
// 各ゲートは最初に不合格となった時点で以降を評価しない。
type Pipeline struct {
	dedup     DuplicateChecker
	writer    RecordWriter
	sanitizer security.ContentSanitizerService
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
	window    time.Duration
	now       func() time.Time
}

// NewPipeline はPipelineの新しいインスタンスを生成する。
// windowが0以下の場合はDefaultRecencyWindowを使用する。
func NewPipeline(
	dedup DuplicateChecker,
	writer RecordWriter,
	sanitizer security.ContentSanitizerService,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	window time.Duration,
) *Pipeline {
	if window <= 0 {
		window = DefaultRecencyWindow
	}
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Pipeline{
		dedup:     dedup,
		writer:    writer,
		sanitizer: sanitizer,
		metrics:   collector,
		logger:    logger,
		window:    window,
		now:       time.Now,
	}
}

// Process は1購読分の記事をフィード内の順序で処理する。
// 新着判定の基準時刻は呼び出しごとに1回だけ計算する。
// 重複判定や書き込みの失敗はその記事だけをスキップし、処理を継続する。
func (p *Pipeline) Process(ctx context.Context, sub model.Subscription, items []model.FeedItem) Stats {
	var stats Stats
	threshold := p.now().Add(-p.window)
	total := len(items)

	for i, item := range items {
		if ctx.Err() != nil {
			p.logger.Warn("コンテキストがキャンセルされたため記事処理を中断します",
				slog.String("feed_url", sub.FeedURL),
				slog.Int("processed", i),
				slog.Int("items_total", total),
			)
			break
		}

		stats.Seen++
		p.metrics.RecordItemSeen()

		attrs := []any{
			slog.String("feed_url", sub.FeedURL),
			slog.String("item_title", item.Title),
			slog.String("item_link", item.Link),
			slog.Int("position", i+1),
			slog.Int("items_total", total),
		}

		publishedAt := NormalizePublishDate(item)
		if !IsRecent(publishedAt, threshold) {
			stats.SkippedOld++
			p.metrics.RecordItemSkipped(metrics.ReasonOld)
			p.logger.Debug("新着期間外のためスキップしました", append(attrs, slog.String("raw_published_at", item.RawPublishedAt))...)
			continue
		}

		if !MatchesKeywords(item.Title, sub.Keywords) {
			stats.SkippedKeyword++
			p.metrics.RecordItemSkipped(metrics.ReasonKeyword)
			p.logger.Debug("キーワードに一致しないためスキップしました", attrs...)
			continue
		}

		if item.Link == "" {
			p.logger.Warn("リンクが無いため重複判定を行わずに保存します", attrs...)
		} else {
			exists, err := p.dedup.ExistsByLink(ctx, item.Link)
			if err != nil {
				stats.DedupErrors++
				p.metrics.RecordItemSkipped(metrics.ReasonDedupError)
				p.logger.Error("重複判定に失敗したためスキップしました", append(attrs, slog.String("error", err.Error()))...)
				continue
			}
			if exists {
				stats.SkippedDuplicate++
				p.metrics.RecordItemSkipped(metrics.ReasonDuplicate)
				p.logger.Info("既に登録済みのためスキップしました", attrs...)
				continue
			}
		}

		record := &model.StoredRecord{
			Title:       item.Title,
			Link:        item.Link,
			PublishedAt: publishedAt,
			Description: p.sanitizer.ToPlainText(item.Description),
			Media:       ExtractImages(item),
		}

		if err := p.writer.Create(ctx, record); err != nil {
			stats.WriteErrors++
			p.metrics.RecordWriteFailure()
			p.logger.Error("記事の保存に失敗しました", append(attrs, slog.String("error", err.Error()))...)
			continue
		}

		stats.Stored++
		p.metrics.RecordItemStored()
		p.logger.Info("記事を保存しました", append(attrs, slog.Int("media_count", len(record.Media)))...)
	}

	return stats
}
