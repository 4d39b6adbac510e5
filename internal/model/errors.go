// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// 定義済みエラーコード
const (
	ErrCodeConfiguration  = "CONFIGURATION_ERROR"
	ErrCodeRepository     = "REPOSITORY_ERROR"
	ErrCodeFetch          = "FETCH_ERROR"
	ErrCodeWrite          = "WRITE_ERROR"
	ErrCodeDuplicateCheck = "DUPLICATE_CHECK_ERROR"
)

// SyncError は同期ジョブのエラー分類を表す。
// Codeによって致命的エラー（設定・購読取得）か、
// フィード単位・記事単位で回復するエラーかを判別する。
type SyncError struct {
	Code string // エラーコード
	Op   string // 失敗した操作
	Err  error  // 原因
}

// Error はerrorインターフェースを実装する。
func (e *SyncError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.Op)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Op, e.Err)
}

// Unwrap は原因エラーを返す。
func (e *SyncError) Unwrap() error {
	return e.Err
}

// IsCode はエラーチェーン中に指定コードのSyncErrorが含まれるかを返す。
func IsCode(err error, code string) bool {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// NewConfigurationError は設定エラーを生成する。
func NewConfigurationError(err error) *SyncError {
	return &SyncError{Code: ErrCodeConfiguration, Op: "設定の読み込み", Err: err}
}

// NewRepositoryError は購読一覧の取得失敗エラーを生成する。
func NewRepositoryError(op string, err error) *SyncError {
	return &SyncError{Code: ErrCodeRepository, Op: op, Err: err}
}

// NewFetchError はフィード取得・解析の失敗エラーを生成する。
func NewFetchError(url string, err error) *SyncError {
	return &SyncError{Code: ErrCodeFetch, Op: fmt.Sprintf("フィードの取得 (%s)", url), Err: err}
}

// NewWriteError はレコード作成の失敗エラーを生成する。
func NewWriteError(title string, err error) *SyncError {
	return &SyncError{Code: ErrCodeWrite, Op: fmt.Sprintf("レコードの作成 (%s)", title), Err: err}
}

// NewDuplicateCheckError は重複チェックの失敗エラーを生成する。
func NewDuplicateCheckError(link string, err error) *SyncError {
	return &SyncError{Code: ErrCodeDuplicateCheck, Op: fmt.Sprintf("重複チェック (%s)", link), Err: err}
}
