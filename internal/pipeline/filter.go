// Package pipeline はフィード記事に対するフィルタ（新着・キーワード・重複）と
// 画像抽出を行い、採用した記事をreaderデータベースへ書き込む。
package pipeline

import (
	"strings"
	"time"

	"github.com/hitoshi/rss2notion/internal/model"
)

// DefaultRecencyWindow は新着判定の既定の期間（7日間）。
const DefaultRecencyWindow = 7 * 24 * time.Hour

// publishDateLayouts はフィードパーサーが日時を解釈できなかった場合に試すレイアウト。
var publishDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParsePublishDate は公開日時の文字列を既知のレイアウトで解析する。
// タイムゾーンを含まないレイアウトはUTCとして解釈する。
func ParsePublishDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range publishDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizePublishDate は記事の公開日時を決定する。
// パーサーの解析結果を優先し、無ければRawPublishedAtを解析する。
// どちらも得られない場合はnilを返す。
func NormalizePublishDate(item model.FeedItem) *time.Time {
	if item.PublishedAt != nil {
		t := *item.PublishedAt
		return &t
	}
	if t, ok := ParsePublishDate(item.RawPublishedAt); ok {
		return &t
	}
	return nil
}

// IsRecent は公開日時がthreshold以降かどうかを判定する。
// 公開日時が不明な記事は新着とみなさない。
func IsRecent(publishedAt *time.Time, threshold time.Time) bool {
	if publishedAt == nil {
		return false
	}
	return !publishedAt.Before(threshold)
}

// MatchesKeywords はタイトルがキーワードのいずれかを含むかを大文字小文字を区別せずに判定する。
// キーワードが空の場合は常にtrueを返す。
func MatchesKeywords(title string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lowerTitle := strings.ToLower(title)
	for _, kw := range keywords {
		if strings.Contains(lowerTitle, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
