package repository

import (
	"context"
	"strings"

	"github.com/hitoshi/rss2notion/internal/model"
	"github.com/hitoshi/rss2notion/internal/notion"
)

// NotionSubscriptionRepo はfeederデータベースから購読を読み取るSubscriptionRepositoryの実装。
type NotionSubscriptionRepo struct {
	api        NotionAPI
	databaseID string
}

// NewNotionSubscriptionRepo はNotionSubscriptionRepoの新しいインスタンスを生成する。
func NewNotionSubscriptionRepo(api NotionAPI, feederDatabaseID string) *NotionSubscriptionRepo {
	return &NotionSubscriptionRepo{api: api, databaseID: feederDatabaseID}
}

// ListActiveSubscriptions はEnableにチェックの入った購読をすべて取得する。
// has_moreがfalseになるまでページネーションを辿る。
func (r *NotionSubscriptionRepo) ListActiveSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	req := &notion.QueryRequest{
		Filter: &notion.Filter{
			Property: PropEnable,
			Checkbox: &notion.CheckboxFilter{Equals: true},
		},
		PageSize: notion.MaxPageSize,
	}

	var subs []model.Subscription
	for {
		resp, err := r.api.QueryDatabase(ctx, r.databaseID, req)
		if err != nil {
			return nil, model.NewRepositoryError("購読一覧の取得", err)
		}

		for _, page := range resp.Results {
			sub, ok := subscriptionFromPage(page)
			if !ok {
				continue
			}
			subs = append(subs, sub)
		}

		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			break
		}
		req.StartCursor = *resp.NextCursor
	}

	return subs, nil
}

// subscriptionFromPage はfeederページを購読に変換する。URLが無いページはfalseを返す。
func subscriptionFromPage(page notion.Page) (model.Subscription, bool) {
	feedURL := strings.TrimSpace(propertyText(page.Properties[PropFeedURL]))
	if feedURL == "" {
		return model.Subscription{}, false
	}

	var keywords []string
	for _, opt := range page.Properties[PropKeyword].MultiSelect {
		if opt.Name != "" {
			keywords = append(keywords, opt.Name)
		}
	}

	return model.Subscription{
		PageID:   page.ID,
		FeedURL:  feedURL,
		Keywords: keywords,
	}, true
}

// propertyText はurl型またはrich_text型のプロパティから文字列を取り出す。
func propertyText(p notion.PropertyValue) string {
	if p.URL != nil {
		return *p.URL
	}
	return notion.PlainText(p.RichText)
}
