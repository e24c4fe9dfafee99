package metrics

import (
	"context"
	"fmt"
	"net"

	"github.com/DataDog/datadog-go/v5/statsd"
)

// StatsdClient はStatsdSinkが使うDogStatsDクライアントのメソッド
type StatsdClient interface {
	Count(name string, value int64, tags []string, rate float64) error
	Distribution(name string, value float64, tags []string, rate float64) error
	Flush() error
	Close() error
}

// StatsdSink はDogStatsD（Datadog ExtensionやAgent）にメトリクスを送る
type StatsdSink struct {
	client StatsdClient
}

// NewStatsdSink はhost:portに送信するStatsdSinkを作成
// namespace はメトリクス名の前に付く（例: "hitcounter."）
func NewStatsdSink(host, port, namespace string, tags []string) (*StatsdSink, error) {
	client, err := statsd.New(net.JoinHostPort(host, port),
		statsd.WithNamespace(namespace),
		statsd.WithTags(tags),
	)
	if err != nil {
		return nil, fmt.Errorf("DogStatsDクライアントの作成に失敗: %w", err)
	}
	return &StatsdSink{client: client}, nil
}

// NewStatsdSinkWithClient は既存のクライアントを使うStatsdSinkを作成
func NewStatsdSinkWithClient(client StatsdClient) *StatsdSink {
	return &StatsdSink{client: client}
}

// 送信エラーはUDPのため握りつぶす（リクエスト処理には影響させない）

func (s *StatsdSink) Count(name string, value int64, tags []string) {
	_ = s.client.Count(name, value, tags, 1)
}

func (s *StatsdSink) Distribution(name string, value float64, tags []string) {
	_ = s.client.Distribution(name, value, tags, 1)
}

func (s *StatsdSink) Flush(_ context.Context) error {
	return s.client.Flush()
}

// Close はクライアントを閉じる
func (s *StatsdSink) Close() error {
	return s.client.Close()
}
