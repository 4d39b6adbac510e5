// Package model はドメインモデルを定義する。
package model

// Subscription はfeederデータベースに登録された購読設定を表す。
// 実行ごとに読み直され、このジョブが更新することはない。
type Subscription struct {
	PageID   string   // feederデータベースのページID（ログ用）
	FeedURL  string   // 空の購読は読み込み時に除外される
	Keywords []string // 空の場合はキーワードフィルタを適用しない
}

// FetchedFeed はフェッチ・パース済みのフィードを表す。
type FetchedFeed struct {
	Title string
	URL   string // 実際に取得したURL（自動検出時は検出先のURL）
	Items []FeedItem
}
