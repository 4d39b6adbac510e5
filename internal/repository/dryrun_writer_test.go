package repository

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/rss2notion/internal/model"
)

func TestDryRunWriter_LogsRecord(t *testing.T) {
	var buf bytes.Buffer
	w := NewDryRunWriter(newTestLogger(&buf))

	published := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	err := w.Create(context.Background(), &model.StoredRecord{
		Title:       "Hello",
		Link:        "https://a.example/hello",
		PublishedAt: &published,
		Media:       []model.ExtractedImage{{Name: "OGP Image (enclosure)", SourceURL: "https://img.example/a.png"}},
	})
	if err != nil {
		t.Fatalf("Create がエラーを返した: %v", err)
	}

	logOutput := buf.String()
	for _, want := range []string{`"item_title":"Hello"`, `"item_link":"https://a.example/hello"`, `"media_count":1`, `"published_at"`} {
		if !strings.Contains(logOutput, want) {
			t.Errorf("ログに %s が含まれるべき: %s", want, logOutput)
		}
	}
}
