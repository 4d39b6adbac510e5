package repository

import (
	"context"
	"log/slog"

	"github.com/hitoshi/rss2notion/internal/model"
	"github.com/hitoshi/rss2notion/internal/notion"
	"github.com/hitoshi/rss2notion/internal/security"
)

// NotionReaderRepo はreaderデータベースに対するReaderRepositoryの実装。
type NotionReaderRepo struct {
	api        NotionAPI
	databaseID string
	logger     *slog.Logger
}

// NewNotionReaderRepo はNotionReaderRepoの新しいインスタンスを生成する。
func NewNotionReaderRepo(api NotionAPI, readerDatabaseID string, logger *slog.Logger) *NotionReaderRepo {
	return &NotionReaderRepo{api: api, databaseID: readerDatabaseID, logger: logger}
}

// ExistsByLink はLinkプロパティが一致するページが存在するかを返す。
// リンクが空の場合はクエリせずにfalseを返す。
func (r *NotionReaderRepo) ExistsByLink(ctx context.Context, link string) (bool, error) {
	if link == "" {
		return false, nil
	}

	resp, err := r.api.QueryDatabase(ctx, r.databaseID, &notion.QueryRequest{
		Filter: &notion.Filter{
			Property: PropLink,
			URL:      &notion.TextFilter{Equals: link},
		},
		PageSize: 1,
	})
	if err != nil {
		return false, model.NewDuplicateCheckError(link, err)
	}
	return len(resp.Results) > 0, nil
}

// Create は記事をreaderデータベースのページとして作成する。
func (r *NotionReaderRepo) Create(ctx context.Context, record *model.StoredRecord) error {
	req := &notion.CreatePageRequest{
		Parent:     notion.Parent{Type: "database_id", DatabaseID: r.databaseID},
		Properties: r.buildProperties(record),
	}
	if _, err := r.api.CreatePage(ctx, req); err != nil {
		return model.NewWriteError(record.Title, err)
	}
	return nil
}

// buildProperties は記事をページのプロパティに変換する。
// 値が無いプロパティは設定しない。http(s)以外の画像URLは除外する。
func (r *NotionReaderRepo) buildProperties(record *model.StoredRecord) map[string]notion.PropertyValue {
	props := map[string]notion.PropertyValue{
		PropTitle: notion.TitleProperty(record.Title),
	}
	if record.Link != "" {
		props[PropLink] = notion.URLProperty(record.Link)
	}
	if record.PublishedAt != nil {
		props[PropPublishedAt] = notion.DateProperty(*record.PublishedAt)
	}
	if record.Description != "" {
		props[PropDescription] = notion.RichTextProperty(record.Description)
	}

	var files []notion.File
	for _, m := range record.Media {
		if err := security.ValidateAbsoluteHTTPURL(m.SourceURL); err != nil {
			r.logger.Warn("画像URLが不正なため除外しました",
				slog.String("item_title", record.Title),
				slog.String("media_url", m.SourceURL),
				slog.String("error", err.Error()),
			)
			continue
		}
		files = append(files, notion.ExternalFileRef(m.Name, m.SourceURL))
	}
	if len(files) > 0 {
		props[PropOGP] = notion.FilesProperty(files)
	}

	return props
}
