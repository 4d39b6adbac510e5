package pipeline

import (
	"reflect"
	"testing"

	"github.com/hitoshi/rss2notion/internal/model"
)

func TestExtractImageURLs(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        []string
	}{
		{
			name:        "シングルクォートとダブルクォート",
			description: `<p>a</p><img src='http://img1'>text<img src="http://img2">`,
			want:        []string{"http://img1", "http://img2"},
		},
		{
			name:        "大文字のタグと他の属性",
			description: `<IMG alt="x" SRC="https://e.example/a.png" width="10"/>`,
			want:        []string{"https://e.example/a.png"},
		},
		{
			name:        "data-srcやsrcsetは対象外",
			description: `<img data-src="https://lazy.example/a.png" srcset="https://e.example/b.png 2x" src="https://e.example/c.png">`,
			want:        []string{"https://e.example/c.png"},
		},
		{
			name:        "他の属性値の中のsrcは対象外",
			description: `<img alt="x src='https://fake.example/a.png'" title='y src="https://fake.example/b.png"' src="https://e.example/real.png">`,
			want:        []string{"https://e.example/real.png"},
		},
		{
			name:        "属性値に>を含む",
			description: `<img alt="a > b" src="https://e.example/gt.png">`,
			want:        []string{"https://e.example/gt.png"},
		},
		{
			name:        "HTMLエンティティを解除する",
			description: `<img src="https://e.example/a.png?w=1&amp;h=2">`,
			want:        []string{"https://e.example/a.png?w=1&h=2"},
		},
		{
			name:        "img以外のsrcは対象外",
			description: `<iframe src="https://video.example/"></iframe><script src="/x.js"></script>`,
			want:        []string{},
		},
		{
			name:        "空のdescription",
			description: "",
			want:        []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractImageURLs(tt.description)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractImageURLs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractImages_EnclosureFirst(t *testing.T) {
	item := model.FeedItem{
		Description:   `<img src='http://img1'>...<img src="http://img2">`,
		EnclosureURL:  "http://enclosure.example/cover.jpg",
		EnclosureType: "image/jpeg",
	}

	want := []model.ExtractedImage{
		{Name: "OGP Image (enclosure)", SourceURL: "http://enclosure.example/cover.jpg"},
		{Name: "OGP Image #1 (description)", SourceURL: "http://img1"},
		{Name: "OGP Image #2 (description)", SourceURL: "http://img2"},
	}

	if got := ExtractImages(item); !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractImages() = %+v, want %+v", got, want)
	}
}

func TestExtractImages_NonImageEnclosureIgnored(t *testing.T) {
	item := model.FeedItem{
		Description:   `<img src="http://img1">`,
		EnclosureURL:  "http://podcast.example/ep1.mp3",
		EnclosureType: "audio/mpeg",
	}

	got := ExtractImages(item)
	if len(got) != 1 || got[0].SourceURL != "http://img1" {
		t.Errorf("音声のenclosureは画像として扱わない: %+v", got)
	}
}

func TestExtractImages_NoImages(t *testing.T) {
	if got := ExtractImages(model.FeedItem{Description: "plain text"}); len(got) != 0 {
		t.Errorf("画像なしの場合は空であるべき: %+v", got)
	}
}
