// Package security はフィード取得時のSSRF防止と、Notionへ保存するテキストの無害化を提供する。
//
// ContentSanitizerService はフィード記事のHTMLをNotionのrich_textに保存できる
// プレーンテキストへ変換する。bluemondayのStrictPolicyで全タグを除去する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はHTMLからプレーンテキストへの変換機能のインターフェースを定義する。
type ContentSanitizerService interface {
	// ToPlainText はHTMLの全タグを除去し、実体参照を展開したテキストを返す。
	// script/styleの中身は出力しない。連続する空白は1つの空白に正規化する。
	// 空文字列の入力には空文字列を返す。
	ToPlainText(rawHTML string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフなので使い回す。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.StrictPolicy()
	// <p>a</p><p>b</p> が "ab" にならないよう、除去したタグの位置に空白を入れる
	p.AddSpaceWhenStrippingTag(true)

	return &contentSanitizer{
		policy: p,
	}
}

// ToPlainText はHTMLをプレーンテキストに変換する。
func (s *contentSanitizer) ToPlainText(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}
	stripped := s.policy.Sanitize(rawHTML)
	text := html.UnescapeString(stripped)
	return strings.Join(strings.Fields(text), " ")
}
