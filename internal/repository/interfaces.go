// Package repository はNotionデータベースを永続化先とするリポジトリを提供する。
// feederデータベースから購読を読み取り、readerデータベースへ記事を書き込む。
package repository

import (
	"context"

	"github.com/hitoshi/rss2notion/internal/model"
	"github.com/hitoshi/rss2notion/internal/notion"
)

// NotionAPI はリポジトリが利用するNotion APIの操作。
// *notion.Clientが実装する。
type NotionAPI interface {
	QueryDatabase(ctx context.Context, databaseID string, req *notion.QueryRequest) (*notion.QueryResponse, error)
	CreatePage(ctx context.Context, req *notion.CreatePageRequest) (*notion.Page, error)
}

// SubscriptionRepository は購読設定の取得インターフェース。
type SubscriptionRepository interface {
	// ListActiveSubscriptions は有効な購読をすべて返す。
	// URLが空の購読は含まない。
	ListActiveSubscriptions(ctx context.Context) ([]model.Subscription, error)
}

// ReaderRepository は保存済み記事の重複判定と書き込みのインターフェース。
type ReaderRepository interface {
	// ExistsByLink は同じリンクの記事が保存済みかを返す。リンクが空の場合はfalse。
	ExistsByLink(ctx context.Context, link string) (bool, error)

	// Create は記事を1件保存する。冪等ではない。
	Create(ctx context.Context, record *model.StoredRecord) error
}

// feederデータベースのプロパティ名
const (
	PropEnable  = "Enable"
	PropFeedURL = "URL"
	PropKeyword = "keyword"
)

// readerデータベースのプロパティ名
const (
	PropTitle       = "Title"
	PropLink        = "Link"
	PropPublishedAt = "PublishedAt"
	PropDescription = "Description"
	PropOGP         = "OGP"
)
