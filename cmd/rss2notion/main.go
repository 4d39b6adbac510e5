// Command rss2notion はNotionのfeederデータベースに登録されたRSS/Atomフィードを取得し、
// 新着かつキーワードに一致する記事をreaderデータベースへ登録する。
//
// 使い方:
//
//	rss2notion [run|dry-run|check]
package main

import (
	"log/slog"
	"os"

	"github.com/hitoshi/rss2notion/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		slog.Error("rss2notion failed", slog.String("error", err.Error()))
		os.Exit(app.ExitCode(err))
	}
}
