// Package model はドメインモデルを定義する。
package model

import "time"

// DefaultItemTitle はタイトルのない記事に付与するタイトル。
const DefaultItemTitle = "No Title"

// FeedItem はフィードから取得した1件の記事を表す。
// 1回の実行の間だけ存在する。
type FeedItem struct {
	Title          string
	Link           string
	RawPublishedAt string     // フィードに記載された公開日時の文字列
	PublishedAt    *time.Time // フィードパーサーが解析できた場合のみ設定される
	Description    string     // 未サニタイズのHTML
	EnclosureURL   string
	EnclosureType  string
}

// ExtractedImage は記事に紐付ける外部画像を表す。
type ExtractedImage struct {
	Name      string
	SourceURL string
}

// StoredRecord はreaderデータベースに登録するレコードを表す。
// Linkが重複判定のキーとなるが、一意制約はreader側には存在しない。
type StoredRecord struct {
	Title       string
	Link        string
	PublishedAt *time.Time
	Description string
	Media       []ExtractedImage
}
