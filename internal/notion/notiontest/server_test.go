package notiontest

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/hitoshi/rss2notion/internal/notion"
)

func newClient(s *Server) *notion.Client {
	var buf bytes.Buffer
	return notion.NewClient(s.Client(), slog.New(slog.NewJSONHandler(&buf, nil)), s.ClientConfig())
}

func boolPtr(b bool) *bool { return &b }

func TestServer_QueryFiltersAndPaginates(t *testing.T) {
	s := NewServer()
	defer s.Close()

	s.AddDatabase("feeder")
	for i := 0; i < 5; i++ {
		s.AddPage("feeder", map[string]notion.PropertyValue{
			"Enable": {Checkbox: boolPtr(i%2 == 0)},
		})
	}
	c := newClient(s)

	req := &notion.QueryRequest{
		Filter:   &notion.Filter{Property: "Enable", Checkbox: &notion.CheckboxFilter{Equals: true}},
		PageSize: 2,
	}
	first, err := c.QueryDatabase(context.Background(), "feeder", req)
	if err != nil {
		t.Fatalf("QueryDatabase: %v", err)
	}
	if len(first.Results) != 2 || !first.HasMore || first.NextCursor == nil {
		t.Fatalf("1ページ目が期待と異なる: %+v", first)
	}

	req.StartCursor = *first.NextCursor
	second, err := c.QueryDatabase(context.Background(), "feeder", req)
	if err != nil {
		t.Fatalf("QueryDatabase: %v", err)
	}
	if len(second.Results) != 1 || second.HasMore {
		t.Errorf("2ページ目が期待と異なる: %+v", second)
	}
}

func TestServer_CreatePageRejectsInvalidValues(t *testing.T) {
	s := NewServer()
	defer s.Close()
	s.AddDatabase("reader")
	c := newClient(s)

	_, err := c.CreatePage(context.Background(), &notion.CreatePageRequest{
		Parent: notion.Parent{DatabaseID: "reader"},
		Properties: map[string]notion.PropertyValue{
			"OGP": notion.FilesProperty([]notion.File{notion.ExternalFileRef("x", "data:image/png;base64,AAA")}),
		},
	})

	var apiErr *notion.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("validation_error が返されるべき: %v", err)
	}
	if len(s.Pages("reader")) != 0 {
		t.Error("拒否されたページは保存されてはならない")
	}
}

func TestServer_RejectsInvalidToken(t *testing.T) {
	s := NewServer()
	defer s.Close()
	s.AddDatabase("reader")

	cfg := s.ClientConfig()
	cfg.Token = "wrong"
	var buf bytes.Buffer
	c := notion.NewClient(s.Client(), slog.New(slog.NewJSONHandler(&buf, nil)), cfg)

	_, err := c.RetrieveDatabase(context.Background(), "reader")
	var apiErr *notion.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("401 が返されるべき: %v", err)
	}
}

func TestServer_FailQueries(t *testing.T) {
	s := NewServer()
	defer s.Close()
	s.AddDatabase("reader")
	s.FailQueries("reader", http.StatusServiceUnavailable)
	c := newClient(s)

	_, err := c.QueryDatabase(context.Background(), "reader", nil)
	var apiErr *notion.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("503 が返されるべき: %v", err)
	}
	if got := s.CountRequests(http.MethodPost, "/v1/databases/reader/query"); got != 1 {
		t.Errorf("クエリ回数 = %d, want 1", got)
	}
}

func TestServer_RetrieveDatabaseReturnsProperties(t *testing.T) {
	s := NewServer()
	defer s.Close()
	s.AddDatabase("reader")
	s.SetProperties("reader", map[string]string{"Title": "title", "Link": "url"})
	c := newClient(s)

	db, err := c.RetrieveDatabase(context.Background(), "reader")
	if err != nil {
		t.Fatalf("RetrieveDatabase: %v", err)
	}
	if db.Properties["Link"].Type != "url" || db.Properties["Title"].Name != "Title" {
		t.Errorf("properties = %+v", db.Properties)
	}

	_, err = c.RetrieveDatabase(context.Background(), "missing")
	var apiErr *notion.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Errorf("存在しないデータベースは404を返すべき: %v", err)
	}
}
