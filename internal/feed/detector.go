package feed

import (
	"bytes"
	"mime"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// FeedCandidate はHTMLのheadから検出したフィードリンクを表す。
type FeedCandidate struct {
	URL    string
	IsAtom bool
}

// isHTMLDocument はレスポンスがHTMLページかどうかを判定する。
// Content-Typeが無い・汎用の場合は先頭部分の<html / <!doctype htmlで判定する。
func isHTMLDocument(contentType string, body []byte) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	mediaType = strings.ToLower(mediaType)
	if mediaType == "text/html" || mediaType == "application/xhtml+xml" {
		return true
	}

	checkSize := 1024
	if len(body) < checkSize {
		checkSize = len(body)
	}
	prefix := strings.ToLower(string(bytes.TrimSpace(body[:checkSize])))
	return strings.HasPrefix(prefix, "<!doctype html") || strings.HasPrefix(prefix, "<html")
}

// parseFeedLinksFromHTML はheadタグ内の<link rel="alternate">からRSS/Atomフィードのリンクを検出する。
// 相対URLはbaseURLを基準に絶対URLに解決される。
func parseFeedLinksFromHTML(body []byte, baseURL string) []FeedCandidate {
	var candidates []FeedCandidate

	baseU, err := url.Parse(baseURL)
	if err != nil {
		return candidates
	}

	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return candidates

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			switch string(tn) {
			case "body":
				return candidates
			case "link":
			default:
				continue
			}
			if !hasAttr {
				continue
			}

			var rel, linkType, href string
			for {
				key, val, more := tokenizer.TagAttr()
				switch strings.ToLower(string(key)) {
				case "rel":
					rel = strings.ToLower(string(val))
				case "type":
					linkType = strings.ToLower(string(val))
				case "href":
					href = string(val)
				}
				if !more {
					break
				}
			}

			if !containsToken(rel, "alternate") || href == "" {
				continue
			}
			if linkType != "application/rss+xml" && linkType != "application/atom+xml" {
				continue
			}

			ref, err := url.Parse(href)
			if err != nil {
				continue
			}
			candidates = append(candidates, FeedCandidate{
				URL:    baseU.ResolveReference(ref).String(),
				IsAtom: linkType == "application/atom+xml",
			})

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "head" {
				return candidates
			}
		}
	}
}

// selectBestFeed はフィード候補から優先順位に従って1つ選ぶ。
// 優先順位: 同一ホスト > Atom > 先頭
func selectBestFeed(candidates []FeedCandidate, pageURL string) *FeedCandidate {
	if len(candidates) == 0 {
		return nil
	}

	pageHost := extractHost(pageURL)
	bestIdx, bestScore := 0, -1
	for i, c := range candidates {
		score := 0
		if extractHost(c.URL) == pageHost {
			score += 100
		}
		if c.IsAtom {
			score += 10
		}
		if score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	return &candidates[bestIdx]
}

func containsToken(list, token string) bool {
	for _, f := range strings.Fields(list) {
		if f == token {
			return true
		}
	}
	return false
}

func extractHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
