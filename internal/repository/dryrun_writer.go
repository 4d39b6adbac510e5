package repository

import (
	"context"
	"log/slog"

	"github.com/hitoshi/rss2notion/internal/model"
)

// DryRunWriter は書き込みを行わずに保存対象の記事をログ出力するRecordWriter。
// dry-runコマンドで使用する。
type DryRunWriter struct {
	logger *slog.Logger
}

// NewDryRunWriter はDryRunWriterの新しいインスタンスを生成する。
func NewDryRunWriter(logger *slog.Logger) *DryRunWriter {
	return &DryRunWriter{logger: logger}
}

// Create は記事の内容をログに出力する。常にnilを返す。
func (w *DryRunWriter) Create(_ context.Context, record *model.StoredRecord) error {
	attrs := []any{
		slog.String("item_title", record.Title),
		slog.String("item_link", record.Link),
		slog.Int("media_count", len(record.Media)),
	}
	if record.PublishedAt != nil {
		attrs = append(attrs, slog.Time("published_at", *record.PublishedAt))
	}
	w.logger.Info("dry-run: 記事を保存対象として検出しました", attrs...)
	return nil
}
