// Package feed はfeederデータベースに登録されたURLからフィードを取得し、
// 記事をmodel.FeedItemに正規化する。
package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/rss2notion/internal/model"
)

const userAgent = "rss2notion/1.0 (+https://github.com/hitoshi/rss2notion)"

// SSRFValidator はSSRF検証のインターフェース。
// security.SSRFGuardServiceを抽象化してテスタビリティを向上させる。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration) *http.Client
}

// Fetcher はフィードのHTTP取得とgofeedによるパースを行う。
// URLがHTMLページだった場合は<link rel="alternate">で示されたフィードを1回だけ追跡する。
type Fetcher struct {
	ssrfGuard   SSRFValidator
	parser      *gofeed.Parser
	logger      *slog.Logger
	timeout     time.Duration
	maxBodySize int64
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
func NewFetcher(ssrfGuard SSRFValidator, logger *slog.Logger, timeout time.Duration, maxBodySize int64) *Fetcher {
	return &Fetcher{
		ssrfGuard:   ssrfGuard,
		parser:      gofeed.NewParser(),
		logger:      logger,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

// FetchFeed はフィードを取得・パースして記事一覧を返す。
// ネットワークエラー、200以外のステータス、SSRF検証失敗、パース失敗は
// いずれもコードFETCH_ERRORの*model.SyncErrorとして返す。
func (f *Fetcher) FetchFeed(ctx context.Context, feedURL string) (*model.FetchedFeed, error) {
	start := time.Now()

	body, contentType, err := f.get(ctx, feedURL)
	if err != nil {
		return nil, model.NewFetchError(feedURL, err)
	}

	sourceURL := feedURL
	parsed, parseErr := f.parser.Parse(bytes.NewReader(body))
	if parseErr != nil && isHTMLDocument(contentType, body) {
		best := selectBestFeed(parseFeedLinksFromHTML(body, feedURL), feedURL)
		if best == nil {
			return nil, model.NewFetchError(feedURL, fmt.Errorf("HTMLページからフィードを検出できませんでした"))
		}

		f.logger.Info("HTMLページからフィードを検出しました",
			slog.String("feed_url", feedURL),
			slog.String("detected_url", best.URL),
		)

		sourceURL = best.URL
		body, _, err = f.get(ctx, sourceURL)
		if err != nil {
			return nil, model.NewFetchError(sourceURL, err)
		}
		parsed, parseErr = f.parser.Parse(bytes.NewReader(body))
	}
	if parseErr != nil {
		return nil, model.NewFetchError(sourceURL, fmt.Errorf("フィードのパースに失敗: %w", parseErr))
	}

	items := convertGofeedItems(parsed.Items)

	f.logger.Info("フィードを取得しました",
		slog.String("feed_url", sourceURL),
		slog.String("feed_title", parsed.Title),
		slog.Int("items_total", len(items)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return &model.FetchedFeed{
		Title: parsed.Title,
		URL:   sourceURL,
		Items: items,
	}, nil
}

// get はSSRF検証の後にURLを取得し、ボディとContent-Typeを返す。
// ボディはmaxBodySizeで打ち切る。
func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	if err := f.ssrfGuard.ValidateURL(rawURL); err != nil {
		return nil, "", fmt.Errorf("SSRF検証に失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html;q=0.8, */*;q=0.5")

	resp, err := f.ssrfGuard.NewSafeClient(f.timeout).Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("HTTPステータス %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, "", fmt.Errorf("レスポンス読み取り失敗: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// convertGofeedItems はgofeedの記事をmodel.FeedItemに変換する。
// フィード内の順序を保持する。
func convertGofeedItems(items []*gofeed.Item) []model.FeedItem {
	feedItems := make([]model.FeedItem, 0, len(items))

	for _, item := range items {
		if item == nil {
			continue
		}

		fi := model.FeedItem{
			Title:       item.Title,
			Link:        item.Link,
			Description: firstNonEmpty(item.Description, item.Content, dublinCoreDescription(item)),
		}
		if fi.Title == "" {
			fi.Title = model.DefaultItemTitle
		}

		// 公開日時: publishedが無いフィード（Atomのupdatedのみ等）はupdatedを使う
		switch {
		case item.Published != "":
			fi.RawPublishedAt = item.Published
			fi.PublishedAt = copyTime(item.PublishedParsed)
		case item.Updated != "":
			fi.RawPublishedAt = item.Updated
			fi.PublishedAt = copyTime(item.UpdatedParsed)
		}

		// enclosureは先頭の1件のみ扱う
		for _, enc := range item.Enclosures {
			if enc == nil {
				continue
			}
			fi.EnclosureURL = enc.URL
			fi.EnclosureType = enc.Type
			break
		}

		feedItems = append(feedItems, fi)
	}

	return feedItems
}

func dublinCoreDescription(item *gofeed.Item) string {
	if item.DublinCoreExt == nil || len(item.DublinCoreExt.Description) == 0 {
		return ""
	}
	return item.DublinCoreExt.Description[0]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
