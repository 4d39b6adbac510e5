package repository

import (
	"strings"
	"testing"

	"github.com/hitoshi/rss2notion/internal/notion"
)

func database(types map[string]string) *notion.Database {
	props := make(map[string]notion.DatabaseProperty, len(types))
	for name, typ := range types {
		props[name] = notion.DatabaseProperty{Name: name, Type: typ}
	}
	return &notion.Database{ID: "db-1", Properties: props}
}

func TestVerifyFeederSchema(t *testing.T) {
	tests := []struct {
		name    string
		types   map[string]string
		wantErr []string
	}{
		{
			name:  "url型のURL",
			types: map[string]string{"Enable": "checkbox", "URL": "url", "keyword": "multi_select"},
		},
		{
			name:  "rich_text型のURL",
			types: map[string]string{"Enable": "checkbox", "URL": "rich_text", "keyword": "multi_select", "Name": "title"},
		},
		{
			name:  "keywordなし",
			types: map[string]string{"Enable": "checkbox", "URL": "url"},
		},
		{
			name:    "プロパティ不足",
			types:   map[string]string{"URL": "url"},
			wantErr: []string{"Enable: missing"},
		},
		{
			name:    "型不一致",
			types:   map[string]string{"Enable": "checkbox", "URL": "title", "keyword": "select"},
			wantErr: []string{"URL: type title", "keyword: type select"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyFeederSchema(database(tt.types))
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("エラーが返されるべき")
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("エラーに %q が含まれるべき: %v", want, err)
				}
			}
		})
	}
}

func TestVerifyFeederSchema_MissingKeywordNotReported(t *testing.T) {
	err := VerifyFeederSchema(database(map[string]string{"URL": "url"}))
	if err == nil {
		t.Fatal("Enableの不足を検出するべき")
	}
	if strings.Contains(err.Error(), "keyword") {
		t.Errorf("keywordは省略可能なため報告してはならない: %v", err)
	}
}

func TestVerifyReaderSchema(t *testing.T) {
	valid := map[string]string{
		"Title": "title", "Link": "url", "PublishedAt": "date", "Description": "rich_text", "OGP": "files",
	}
	if err := VerifyReaderSchema(database(valid)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	delete(valid, "OGP")
	err := VerifyReaderSchema(database(valid))
	if err == nil || !strings.Contains(err.Error(), "OGP: missing") {
		t.Errorf("OGPの不足を検出するべき: %v", err)
	}
}
