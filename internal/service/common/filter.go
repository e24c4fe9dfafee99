package common

import (
	"strings"

	"github.com/gobwas/glob"
)

// MatchPattern はワイルドカードパターンマッチングを行う
// ワイルドカード（* ? [ {）を含む場合はglob形式でマッチング、
// 含まない場合は部分一致で判定する
// パスを扱うため "/" を区切り文字として扱い、"*" は1階層、"**" は複数階層にマッチする
func MatchPattern(name, pattern string) (bool, error) {
	if pattern == "" {
		return true, nil
	}
	match, err := compile(pattern)
	if err != nil {
		return false, err
	}
	return match(name), nil
}

// FilterByPattern はパターンに一致する要素だけを返す
func FilterByPattern[T any](items []T, pattern string, getName func(T) string) ([]T, error) {
	if pattern == "" {
		return items, nil
	}
	g, err := compile(pattern)
	if err != nil {
		return nil, err
	}

	var matched []T
	for _, item := range items {
		if g(getName(item)) {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

func compile(pattern string) (func(string) bool, error) {
	if !strings.ContainsAny(pattern, "*?[{") {
		return func(name string) bool { return strings.Contains(name, pattern) }, nil
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, err
	}
	return g.Match, nil
}
