package store

import (
	"context"
	"sort"
)

// Hit はパスごとのヒット数
type Hit struct {
	Path string
	Hits int64
}

// Reader はヒット数の参照に使うメソッド（CLI用）
type Reader interface {
	Get(ctx context.Context, path string) (Hit, error)
	List(ctx context.Context) ([]Hit, error)
}

// SortByHits はヒット数の多い順に並べ替える（同数はパス順）
func SortByHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Hits != hits[j].Hits {
			return hits[i].Hits > hits[j].Hits
		}
		return hits[i].Path < hits[j].Path
	})
}

// SortByPath はパスの辞書順に並べ替える
func SortByPath(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Path < hits[j].Path
	})
}
