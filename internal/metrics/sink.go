// Package metrics はカスタムメトリクスの送信先を抽象化する
package metrics

import (
	"context"
	"errors"
	"fmt"
	"hitrelay/internal/relay"
	"io"
)

// メトリクス名
const (
	MetricHits        = "hits"
	MetricInvocations = "invocations"
	MetricErrors      = "errors"
	MetricDuration    = "duration"
)

// Sink はメトリクスの送信先
type Sink interface {
	Count(name string, value int64, tags []string)
	Distribution(name string, value float64, tags []string)
	// Flush はバッファされたメトリクスを送信する（Lambdaの呼び出し終了時に呼ぶ）
	Flush(ctx context.Context) error
}

// NopSink は何も送信しない
type NopSink struct{}

func (NopSink) Count(string, int64, []string)          {}
func (NopSink) Distribution(string, float64, []string) {}
func (NopSink) Flush(context.Context) error            { return nil }

// Shutdown は残りのメトリクスを送信し、送信先が接続を持っていれば閉じる
// 実行環境の終了時に1回だけ呼ぶ
func Shutdown(ctx context.Context, s Sink) error {
	err := s.Flush(ctx)
	if c, ok := s.(io.Closer); ok {
		err = errors.Join(err, c.Close())
	}
	return err
}

// Tag は "key:value" 形式のタグを作る
func Tag(key, value string) string {
	return fmt.Sprintf("%s:%s", key, value)
}

// MeteredCounterStore は加算が成功するたびに hits メトリクスを送る
type MeteredCounterStore struct {
	next relay.CounterStore
	sink Sink
}

// NewMeteredCounterStore はCounterStoreをメトリクス送信でラップする
func NewMeteredCounterStore(next relay.CounterStore, sink Sink) *MeteredCounterStore {
	return &MeteredCounterStore{next: next, sink: sink}
}

func (m *MeteredCounterStore) Increment(ctx context.Context, key string, amount int64) error {
	if err := m.next.Increment(ctx, key, amount); err != nil {
		return err
	}
	m.sink.Count(MetricHits, amount, []string{Tag("path", key)})
	return nil
}
