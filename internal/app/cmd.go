package app

import (
	"errors"
	"fmt"
)

// Command はジョブの実行モードを表す。
type Command string

const (
	// CommandRun は同期を実行し、readerデータベースへ書き込む。
	CommandRun Command = "run"
	// CommandDryRun は書き込みを行わずに同期の結果をログ出力する。
	CommandDryRun Command = "dry-run"
	// CommandCheck は設定とNotionデータベースへの接続・プロパティ定義を確認する。
	CommandCheck Command = "check"
)

// ErrUnknownCommand はサポート外のサブコマンドが指定された場合のエラー。
var ErrUnknownCommand = errors.New("unknown command")

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空の場合はCommandRunを返す。
func ParseCommand(args []string) (Command, error) {
	if len(args) == 0 {
		return CommandRun, nil
	}

	switch Command(args[0]) {
	case CommandRun:
		return CommandRun, nil
	case CommandDryRun:
		return CommandDryRun, nil
	case CommandCheck:
		return CommandCheck, nil
	default:
		return "", fmt.Errorf("%w: %q (available: run, dry-run, check)", ErrUnknownCommand, args[0])
	}
}
