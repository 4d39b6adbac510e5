// Package notion はNotion REST APIのクライアントを提供する。
// このジョブが使うデータベースクエリ・ページ作成・データベース取得の3操作のみを扱う。
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL はNotion APIのベースURL。
	DefaultBaseURL = "https://api.notion.com"
	// DefaultVersion はNotion-Versionヘッダーの既定値。
	DefaultVersion = "2022-06-28"
	// DefaultRateLimit はNotion APIの平均リクエストレート上限（req/sec）。
	DefaultRateLimit = 3.0
	// MaxPageSize はクエリ1回あたりの最大取得件数。
	MaxPageSize = 100
	// maxErrorBodySize はエラーレスポンスとして読み取る最大バイト数。
	maxErrorBodySize = 64 * 1024
)

// APIError はNotion APIのエラーレスポンスを表す。
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("notion api error: status=%d code=%s message=%s", e.Status, e.Code, e.Message)
}

// ClientConfig はClientの設定パラメータ。
type ClientConfig struct {
	BaseURL   string
	Token     string
	Version   string
	RateLimit float64 // req/sec。0以下の場合はDefaultRateLimit
}

// Client はNotion APIのクライアント。
// 全リクエストはトークンバケットでレート制限され、逐次的に発行される前提で作られている。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	token      string
	version    string
	limiter    *rate.Limiter
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		version:    cfg.Version,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
	}
}

// QueryDatabase はデータベースをクエリし、1ページ分の結果を返す。
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, req *QueryRequest) (*QueryResponse, error) {
	if req == nil {
		req = &QueryRequest{}
	}
	var resp QueryResponse
	path := fmt.Sprintf("/v1/databases/%s/query", url.PathEscape(databaseID))
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreatePage はページを作成し、作成されたページを返す。
func (c *Client) CreatePage(ctx context.Context, req *CreatePageRequest) (*Page, error) {
	var page Page
	if err := c.do(ctx, http.MethodPost, "/v1/pages", req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// RetrieveDatabase はデータベースのメタデータを取得する。
// 接続確認と統合（インテグレーション）の共有設定の確認に使用する。
func (c *Client) RetrieveDatabase(ctx context.Context, databaseID string) (*Database, error) {
	var db Database
	path := fmt.Sprintf("/v1/databases/%s", url.PathEscape(databaseID))
	if err := c.do(ctx, http.MethodGet, path, nil, &db); err != nil {
		return nil, err
	}
	return &db, nil
}

// do はレート制限の後にリクエストを発行し、レスポンスJSONをoutにデコードする。
// 2xx以外のステータスは*APIErrorとして返す。リトライは行わない。
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("レート制限の待機に失敗しました: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("リクエストJSONの生成に失敗しました: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Notion APIの呼び出しに失敗しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeAPIError(resp)
		c.logger.Error("Notion APIがエラーステータスを返しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
			slog.String("code", apiErr.Code),
			slog.String("message", apiErr.Message),
		)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return nil
}

// decodeAPIError はエラーレスポンスを*APIErrorに変換する。
// ボディがNotionのエラー形式でない場合はボディ文字列をメッセージとする。
func decodeAPIError(resp *http.Response) *APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))

	apiErr := &APIError{}
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Code == "" {
		apiErr = &APIError{Message: string(bytes.TrimSpace(data))}
	}
	apiErr.Status = resp.StatusCode
	return apiErr
}
