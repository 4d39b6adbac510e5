package repository

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hitoshi/rss2notion/internal/notion"
)

// propertyRule はプロパティが許容する型と、省略可能かどうかを表す。
type propertyRule struct {
	types    []string
	optional bool
}

// feederSchema はfeederデータベースのプロパティ定義。
// keywordが無いデータベースは全記事を対象とする購読として扱うため省略可能。
var feederSchema = map[string]propertyRule{
	PropEnable:  {types: []string{"checkbox"}},
	PropFeedURL: {types: []string{"url", "rich_text"}},
	PropKeyword: {types: []string{"multi_select"}, optional: true},
}

// readerSchema はreaderデータベースに必要なプロパティと許容する型。
var readerSchema = map[string]propertyRule{
	PropTitle:       {types: []string{"title"}},
	PropLink:        {types: []string{"url"}},
	PropPublishedAt: {types: []string{"date"}},
	PropDescription: {types: []string{"rich_text"}},
	PropOGP:         {types: []string{"files"}},
}

// VerifyFeederSchema はfeederデータベースのプロパティ定義を検証する。
func VerifyFeederSchema(db *notion.Database) error {
	return verifySchema(db, feederSchema)
}

// VerifyReaderSchema はreaderデータベースのプロパティ定義を検証する。
func VerifyReaderSchema(db *notion.Database) error {
	return verifySchema(db, readerSchema)
}

// verifySchema は不足・型不一致のプロパティをまとめて1つのエラーとして返す。
// 省略可能なプロパティは存在する場合のみ型を検証する。
func verifySchema(db *notion.Database, want map[string]propertyRule) error {
	names := make([]string, 0, len(want))
	for name := range want {
		names = append(names, name)
	}
	sort.Strings(names)

	var problems []string
	for _, name := range names {
		rule := want[name]
		allowed := rule.types
		prop, ok := db.Properties[name]
		if !ok {
			if rule.optional {
				continue
			}
			problems = append(problems, fmt.Sprintf("%s: missing (want %s)", name, strings.Join(allowed, "|")))
			continue
		}
		if !contains(allowed, prop.Type) {
			problems = append(problems, fmt.Sprintf("%s: type %s (want %s)", name, prop.Type, strings.Join(allowed, "|")))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("database %s has invalid properties: %s", db.ID, strings.Join(problems, "; "))
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
