package notion

import (
	"strings"
	"time"
)

// MaxRichTextLength はrich_textの1要素あたりの最大文字数。
// 超過するとNotion APIはvalidation_errorを返す。
const MaxRichTextLength = 2000

// RichText はNotionのリッチテキスト要素を表す。
type RichText struct {
	Type      string       `json:"type,omitempty"`
	Text      *TextContent `json:"text,omitempty"`
	PlainText string       `json:"plain_text,omitempty"`
}

// TextContent はテキスト型リッチテキストの内容。
type TextContent struct {
	Content string `json:"content"`
}

// SelectOption はselect/multi_selectの選択肢を表す。
type SelectOption struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// DateValue はdateプロパティの値を表す。
type DateValue struct {
	Start string  `json:"start"`
	End   *string `json:"end,omitempty"`
}

// File はfilesプロパティの1要素を表す。外部ファイルのみ扱う。
type File struct {
	Type     string        `json:"type"`
	Name     string        `json:"name"`
	External *ExternalFile `json:"external,omitempty"`
}

// ExternalFile は外部ホストされたファイルの参照。
type ExternalFile struct {
	URL string `json:"url"`
}

// PropertyValue はページのプロパティ値を表す。
// 読み取り時はTypeに対応するフィールドのみが設定される。
type PropertyValue struct {
	ID          string         `json:"id,omitempty"`
	Type        string         `json:"type,omitempty"`
	Title       []RichText     `json:"title,omitempty"`
	RichText    []RichText     `json:"rich_text,omitempty"`
	URL         *string        `json:"url,omitempty"`
	Checkbox    *bool          `json:"checkbox,omitempty"`
	MultiSelect []SelectOption `json:"multi_select,omitempty"`
	Date        *DateValue     `json:"date,omitempty"`
	Files       []File         `json:"files,omitempty"`
}

// Page はデータベース内のページを表す。
type Page struct {
	Object      string                   `json:"object"`
	ID          string                   `json:"id"`
	CreatedTime string                   `json:"created_time,omitempty"`
	URL         string                   `json:"url,omitempty"`
	Properties  map[string]PropertyValue `json:"properties"`
}

// Parent はページの親を表す。
type Parent struct {
	Type       string `json:"type,omitempty"`
	DatabaseID string `json:"database_id"`
}

// CreatePageRequest はページ作成APIのリクエストボディ。
type CreatePageRequest struct {
	Parent     Parent                   `json:"parent"`
	Properties map[string]PropertyValue `json:"properties"`
}

// Filter はデータベースクエリのプロパティフィルタ。
type Filter struct {
	Property string          `json:"property"`
	Checkbox *CheckboxFilter `json:"checkbox,omitempty"`
	URL      *TextFilter     `json:"url,omitempty"`
}

// CheckboxFilter はcheckboxプロパティの条件。
type CheckboxFilter struct {
	Equals bool `json:"equals"`
}

// TextFilter はurl等のテキスト系プロパティの条件。
type TextFilter struct {
	Equals string `json:"equals"`
}

// QueryRequest はデータベースクエリAPIのリクエストボディ。
type QueryRequest struct {
	Filter      *Filter `json:"filter,omitempty"`
	StartCursor string  `json:"start_cursor,omitempty"`
	PageSize    int     `json:"page_size,omitempty"`
}

// QueryResponse はデータベースクエリAPIのレスポンス。
type QueryResponse struct {
	Object     string  `json:"object"`
	Results    []Page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// Database はデータベースのメタデータを表す。
type Database struct {
	Object     string                      `json:"object"`
	ID         string                      `json:"id"`
	Title      []RichText                  `json:"title"`
	Properties map[string]DatabaseProperty `json:"properties"`
}

// DatabaseProperty はデータベースのプロパティ定義を表す。
type DatabaseProperty struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// PlainText はリッチテキスト配列を連結したプレーンテキストを返す。
// plain_textが無い要素（書き込み用に組み立てた値）はtext.contentを使う。
func PlainText(rts []RichText) string {
	var b strings.Builder
	for _, rt := range rts {
		switch {
		case rt.PlainText != "":
			b.WriteString(rt.PlainText)
		case rt.Text != nil:
			b.WriteString(rt.Text.Content)
		}
	}
	return b.String()
}

// Text は1要素のテキスト型リッチテキスト配列を生成する。
// MaxRichTextLengthを超える部分は切り捨てる。
func Text(content string) []RichText {
	return []RichText{{
		Type: "text",
		Text: &TextContent{Content: Truncate(content, MaxRichTextLength)},
	}}
}

// Truncate は文字列をmaxRunes文字（rune単位）に切り詰める。
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}

// TitleProperty はtitleプロパティの値を生成する。
func TitleProperty(content string) PropertyValue {
	return PropertyValue{Title: Text(content)}
}

// RichTextProperty はrich_textプロパティの値を生成する。
func RichTextProperty(content string) PropertyValue {
	return PropertyValue{RichText: Text(content)}
}

// URLProperty はurlプロパティの値を生成する。
func URLProperty(u string) PropertyValue {
	return PropertyValue{URL: &u}
}

// DateProperty はdateプロパティの値を生成する。
// 開始日時はUTCのISO-8601（ミリ秒付き）で表現する。
func DateProperty(t time.Time) PropertyValue {
	return PropertyValue{Date: &DateValue{Start: FormatISO8601(t)}}
}

// FilesProperty は外部ファイル参照のfilesプロパティの値を生成する。
func FilesProperty(files []File) PropertyValue {
	return PropertyValue{Files: files}
}

// ExternalFileRef は外部ファイル参照を生成する。
func ExternalFileRef(name, url string) File {
	return File{
		Type:     "external",
		Name:     name,
		External: &ExternalFile{URL: url},
	}
}

// FormatISO8601 は時刻をUTCのISO-8601文字列（例: 2025-01-02T03:04:05.000Z）に整形する。
func FormatISO8601(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
