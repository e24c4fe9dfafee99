package hits

import (
	"context"
	"fmt"
	"hitrelay/internal/store"
	"io"
)

// GetHit は1つのパスのヒット数を取得する
// 一度も呼ばれていないパスは0件として返す
func GetHit(ctx context.Context, reader store.Reader, path string) (store.Hit, error) {
	if path == "" {
		return store.Hit{}, fmt.Errorf("パスを指定してください")
	}
	hit, err := reader.Get(ctx, path)
	if err != nil {
		return store.Hit{}, fmt.Errorf("パス '%s' のヒット数取得に失敗: %w", path, err)
	}
	return hit, nil
}

// DisplayHit は1件のヒット数を表示する
func DisplayHit(w io.Writer, hit store.Hit) {
	fmt.Fprintf(w, "%s: %d\n", hit.Path, hit.Hits)
}
