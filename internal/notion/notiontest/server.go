// Package notiontest はテスト用のインメモリNotion APIサーバーを提供する。
// データベースクエリ（checkbox/urlのequalsフィルタとページネーション）、
// ページ作成、データベース取得のみを実装する。
package notiontest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/rss2notion/internal/notion"
)

// Token はテストサーバーが受け付けるトークン。
const Token = "secret_notiontest"

// Server はインメモリのNotion APIサーバー。
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	databases  map[string][]notion.Page
	schemas    map[string]map[string]notion.DatabaseProperty
	requests   []string
	queryFail  map[string]int
	createFail int
}

// NewServer はテストサーバーを起動する。呼び出し元がCloseする。
func NewServer() *Server {
	s := &Server{
		databases: make(map[string][]notion.Page),
		schemas:   make(map[string]map[string]notion.DatabaseProperty),
		queryFail: make(map[string]int),
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Use(s.authenticate)
	r.Get("/v1/databases/{databaseID}", s.handleRetrieveDatabase)
	r.Post("/v1/databases/{databaseID}/query", s.handleQuery)
	r.Post("/v1/pages", s.handleCreatePage)

	s.Server = httptest.NewServer(r)
	return s
}

// ClientConfig はテストサーバーに接続するnotion.Clientの設定を返す。
func (s *Server) ClientConfig() notion.ClientConfig {
	return notion.ClientConfig{
		BaseURL:   s.URL,
		Token:     Token,
		RateLimit: 1000,
	}
}

// AddDatabase は空のデータベースを作成する。
func (s *Server) AddDatabase(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.databases[id]; !ok {
		s.databases[id] = []notion.Page{}
	}
}

// SetProperties はデータベース取得APIが返すプロパティ定義（名前→型）を設定する。
func (s *Server) SetProperties(databaseID string, types map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	props := make(map[string]notion.DatabaseProperty, len(types))
	for name, typ := range types {
		props[name] = notion.DatabaseProperty{ID: uuid.NewString()[:4], Name: name, Type: typ}
	}
	s.schemas[databaseID] = props
}

// AddPage はデータベースにページを追加し、ページIDを返す。
func (s *Server) AddPage(databaseID string, props map[string]notion.PropertyValue) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addPageLocked(databaseID, props)
}

func (s *Server) addPageLocked(databaseID string, props map[string]notion.PropertyValue) string {
	id := uuid.NewString()
	stored := make(map[string]notion.PropertyValue, len(props))
	for name, p := range props {
		p.Title = withPlainText(p.Title)
		p.RichText = withPlainText(p.RichText)
		stored[name] = p
	}
	s.databases[databaseID] = append(s.databases[databaseID], notion.Page{
		Object:     "page",
		ID:         id,
		Properties: stored,
	})
	return id
}

// Pages はデータベース内のページのコピーを返す。
func (s *Server) Pages(databaseID string) []notion.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	pages := make([]notion.Page, len(s.databases[databaseID]))
	copy(pages, s.databases[databaseID])
	return pages
}

// Requests は受け付けたリクエストを "METHOD /path" 形式で返す。
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	reqs := make([]string, len(s.requests))
	copy(reqs, s.requests)
	return reqs
}

// CountRequests は指定メソッドかつパスが接頭辞に一致するリクエスト数を返す。
func (s *Server) CountRequests(method, pathPrefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if strings.HasPrefix(r, method+" "+pathPrefix) {
			n++
		}
	}
	return n
}

// FailQueries は指定データベースへのクエリを指定ステータスで失敗させる。0で解除。
func (s *Server) FailQueries(databaseID string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryFail[databaseID] = status
}

// FailCreates はページ作成を指定ステータスで失敗させる。0で解除。
func (s *Server) FailCreates(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createFail = status
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+Token {
			writeError(w, http.StatusUnauthorized, "unauthorized", "API token is invalid.")
			return
		}
		if r.Header.Get("Notion-Version") == "" {
			writeError(w, http.StatusBadRequest, "missing_version", "Notion-Version header failed validation.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRetrieveDatabase(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "databaseID")

	s.mu.Lock()
	_, ok := s.databases[id]
	props := s.schemas[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "object_not_found", fmt.Sprintf("Could not find database with ID: %s.", id))
		return
	}

	writeJSON(w, http.StatusOK, notion.Database{
		Object:     "database",
		ID:         id,
		Title:      []notion.RichText{{Type: "text", PlainText: "notiontest"}},
		Properties: props,
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "databaseID")

	var req notion.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if status := s.queryFail[id]; status != 0 {
		writeError(w, status, "internal_server_error", "query failed")
		return
	}
	pages, ok := s.databases[id]
	if !ok {
		writeError(w, http.StatusNotFound, "object_not_found", fmt.Sprintf("Could not find database with ID: %s.", id))
		return
	}

	var matched []notion.Page
	for _, p := range pages {
		if matchFilter(p, req.Filter) {
			matched = append(matched, p)
		}
	}

	start := 0
	if req.StartCursor != "" {
		start = -1
		for i, p := range matched {
			if p.ID == req.StartCursor {
				start = i
				break
			}
		}
		if start < 0 {
			writeError(w, http.StatusBadRequest, "validation_error", "start_cursor is invalid.")
			return
		}
	}

	size := req.PageSize
	if size <= 0 || size > notion.MaxPageSize {
		size = notion.MaxPageSize
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}

	resp := notion.QueryResponse{
		Object:  "list",
		Results: append([]notion.Page{}, matched[start:end]...),
	}
	if end < len(matched) {
		next := matched[end].ID
		resp.HasMore = true
		resp.NextCursor = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	var req notion.CreatePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if msg := validateProperties(req.Properties); msg != "" {
		writeError(w, http.StatusBadRequest, "validation_error", msg)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createFail != 0 {
		writeError(w, s.createFail, "internal_server_error", "create failed")
		return
	}
	if _, ok := s.databases[req.Parent.DatabaseID]; !ok {
		writeError(w, http.StatusNotFound, "object_not_found", fmt.Sprintf("Could not find database with ID: %s.", req.Parent.DatabaseID))
		return
	}

	s.addPageLocked(req.Parent.DatabaseID, req.Properties)
	pages := s.databases[req.Parent.DatabaseID]
	writeJSON(w, http.StatusOK, pages[len(pages)-1])
}

// matchFilter はcheckbox/urlのequalsフィルタを評価する。未設定のcheckboxはfalse扱い。
func matchFilter(p notion.Page, f *notion.Filter) bool {
	if f == nil {
		return true
	}
	prop, ok := p.Properties[f.Property]
	switch {
	case f.Checkbox != nil:
		checked := ok && prop.Checkbox != nil && *prop.Checkbox
		return checked == f.Checkbox.Equals
	case f.URL != nil:
		return ok && prop.URL != nil && *prop.URL == f.URL.Equals
	default:
		return true
	}
}

// validateProperties はNotionが拒否する値を検出し、エラーメッセージを返す。
func validateProperties(props map[string]notion.PropertyValue) string {
	for name, p := range props {
		for _, rt := range append(append([]notion.RichText{}, p.Title...), p.RichText...) {
			if rt.Text != nil && len([]rune(rt.Text.Content)) > notion.MaxRichTextLength {
				return fmt.Sprintf("body.properties.%s.rich_text[0].text.content.length should be ≤ `2000`", name)
			}
		}
		for _, f := range p.Files {
			if f.External == nil || !(strings.HasPrefix(f.External.URL, "http://") || strings.HasPrefix(f.External.URL, "https://")) {
				return fmt.Sprintf("body.properties.%s.files[].external.url should be a valid URL", name)
			}
		}
		if p.URL != nil && *p.URL == "" {
			return fmt.Sprintf("body.properties.%s.url should be a non-empty string or null", name)
		}
	}
	return ""
}

func withPlainText(rts []notion.RichText) []notion.RichText {
	if rts == nil {
		return nil
	}
	out := make([]notion.RichText, len(rts))
	for i, rt := range rts {
		if rt.PlainText == "" && rt.Text != nil {
			rt.PlainText = rt.Text.Content
		}
		out[i] = rt
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"object":  "error",
		"status":  status,
		"code":    code,
		"message": message,
	})
}
