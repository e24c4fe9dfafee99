// Package middleware はlambda.Handlerを包むログ・トレース・メトリクスの処理を提供する
//
// どのミドルウェアもペイロードとレスポンスを書き換えない。
package middleware

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/lambda"
)

// Middleware はハンドラーを包んで新しいハンドラーを返す
type Middleware func(lambda.Handler) lambda.Handler

// HandlerFunc は関数をlambda.Handlerとして扱うためのアダプター
type HandlerFunc func(ctx context.Context, payload []byte) ([]byte, error)

func (f HandlerFunc) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	return f(ctx, payload)
}

// Chain はミドルウェアをハンドラーに適用する
// 先頭のミドルウェアが最も外側になる
func Chain(h lambda.Handler, mws ...Middleware) lambda.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// requestPath はログやタグ付けのためにペイロードから path を取り出す
// 取り出せない場合は空文字を返す
func requestPath(payload []byte) string {
	var head struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return ""
	}
	return head.Path
}
