package pipeline

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/hitoshi/rss2notion/internal/model"
)

// imgSrcPattern はimgタグのsrc属性のみを対象とする。data-srcやsrcsetには一致しない。
// 先行する属性の引用符付きの値は1単位として読み飛ばすため、値の中の「 src=」には一致しない。
var imgSrcPattern = regexp.MustCompile(`(?i)<img\b(?:[^>"']|"[^"]*"|'[^']*')*?\ssrc\s*=\s*["']([^"']+)["']`)

// ExtractImageURLs はHTML断片からimgタグのsrcを文書順に抽出する。
func ExtractImageURLs(description string) []string {
	matches := imgSrcPattern.FindAllStringSubmatch(description, -1)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		src := strings.TrimSpace(html.UnescapeString(m[1]))
		if src == "" {
			continue
		}
		urls = append(urls, src)
	}
	return urls
}

// ExtractImages は記事に紐づく画像を抽出する。
// enclosureが画像の場合はそれを先頭に置き、続いてdescription内のimgタグを文書順に並べる。
func ExtractImages(item model.FeedItem) []model.ExtractedImage {
	var images []model.ExtractedImage

	if item.EnclosureURL != "" && strings.HasPrefix(item.EnclosureType, "image") {
		images = append(images, model.ExtractedImage{
			Name:      "OGP Image (enclosure)",
			SourceURL: item.EnclosureURL,
		})
	}

	for i, src := range ExtractImageURLs(item.Description) {
		images = append(images, model.ExtractedImage{
			Name:      fmt.Sprintf("OGP Image #%d (description)", i+1),
			SourceURL: src,
		})
	}

	return images
}
