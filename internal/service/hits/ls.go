package hits

import (
	"context"
	"fmt"
	"hitrelay/internal/service/common"
	"hitrelay/internal/store"
	"io"
	"strconv"
)

// 並び順
const (
	SortHits = "hits"
	SortPath = "path"
)

// ListOptions はヒット数一覧のオプション
type ListOptions struct {
	Filter string // パスのフィルターパターン（ワイルドカード可）
	SortBy string // "hits" または "path"
	Limit  int    // 0 は無制限
}

// ListHits はテーブルのヒット数を取得してフィルタ・並べ替えする
func ListHits(ctx context.Context, reader store.Reader, opts ListOptions) ([]store.Hit, error) {
	all, err := reader.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ヒット数一覧の取得に失敗: %w", err)
	}

	hits, err := common.FilterByPattern(all, opts.Filter, func(h store.Hit) string { return h.Path })
	if err != nil {
		return nil, fmt.Errorf("フィルターパターンが不正です: %w", err)
	}

	switch opts.SortBy {
	case "", SortHits:
		store.SortByHits(hits)
	case SortPath:
		store.SortByPath(hits)
	default:
		return nil, fmt.Errorf("不明な並び順: %s（hits または path を指定してください）", opts.SortBy)
	}

	if opts.Limit > 0 && len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}
	return hits, nil
}

// Total はヒット数の合計を返す
func Total(hits []store.Hit) int64 {
	var total int64
	for _, h := range hits {
		total += h.Hits
	}
	return total
}

// DisplayHits はヒット数をテーブル形式で表示する
func DisplayHits(w io.Writer, tableName string, hits []store.Hit, opts ListOptions) {
	var filters []string
	if opts.Filter != "" {
		filters = append(filters, fmt.Sprintf("パターン '%s' に一致する", opts.Filter))
	}

	common.DisplayList(w, hits, fmt.Sprintf("%s のヒット数", tableName), toTableData, &common.DisplayOptions{
		ShowCount:      true,
		EmptyMessage:   "ヒット数が記録されたパスはありません",
		FilterMessages: filters,
	})
	if len(hits) > 0 {
		fmt.Fprintf(w, "総ヒット数: %d\n", Total(hits))
	}
}

func toTableData(hits []store.Hit) ([]common.TableColumn, [][]string) {
	columns := []common.TableColumn{
		{Header: "パス"},
		{Header: "ヒット数", AlignRight: true},
	}
	data := make([][]string, len(hits))
	for i, h := range hits {
		data[i] = []string{h.Path, strconv.FormatInt(h.Hits, 10)}
	}
	return columns, data
}
