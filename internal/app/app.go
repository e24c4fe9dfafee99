// Package app はLambda関数のハンドラーを組み立てる
package app

import (
	"errors"
	"fmt"
	"hitrelay/internal/config"
	"hitrelay/internal/hello"
	"hitrelay/internal/invoker"
	"hitrelay/internal/metrics"
	"hitrelay/internal/middleware"
	"hitrelay/internal/relay"
	"hitrelay/internal/store"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"
)

// RelayDeps はヒットカウンター関数が使う外部サービス
type RelayDeps struct {
	Dynamo store.DynamoAPI
	Lambda invoker.LambdaAPI
	Sink   metrics.Sink
	Logger logrus.FieldLogger
}

// NewRelayHandler はヒットカウンター関数のハンドラーを組み立てる
//
// 呼び出し順: Logging → Tracing → Metrics → Relay
func NewRelayHandler(cfg config.Function, deps RelayDeps) (lambda.Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定が不正です: %w", err)
	}
	if deps.Dynamo == nil || deps.Lambda == nil {
		return nil, errors.New("DynamoDBとLambdaのクライアントは必須です")
	}
	return newRelayHandler(cfg,
		store.NewDynamoCounterStore(deps.Dynamo, cfg.TableName),
		invoker.NewLambdaInvoker(deps.Lambda),
		deps.Sink, deps.Logger)
}

func newRelayHandler(cfg config.Function, counter relay.CounterStore, downstream relay.Invoker, sink metrics.Sink, logger logrus.FieldLogger) (lambda.Handler, error) {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	counter = metrics.NewMeteredCounterStore(counter, sink)

	mws := []middleware.Middleware{middleware.Logging(logger)}
	if cfg.TraceEnabled {
		counter = middleware.TraceCounterStore(counter, cfg.TableName)
		downstream = middleware.TraceInvoker(downstream)
		mws = append(mws, middleware.Tracing(cfg.Service))
	}
	mws = append(mws, middleware.Metrics(sink, logger))

	r, err := relay.New(cfg.RelayConfig(), counter, downstream)
	if err != nil {
		return nil, fmt.Errorf("リレーの作成に失敗: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"table":      cfg.TableName,
		"downstream": cfg.DownstreamFunctionName,
		"metrics":    cfg.MetricsSink,
		"tracing":    cfg.TraceEnabled,
	}).Debug("ヒットカウンターを初期化しました")

	return middleware.Chain(r, mws...), nil
}

// ローカル実行時の関数名・テーブル名
const (
	LocalFunctionName   = "HitCounter"
	LocalDownstreamName = "HelloHandler"
	LocalTableName      = "local"
)

// LocalSystem はAWSを使わずにヒットカウンターとhello関数をプロセス内で動かす
// ヒット数はプロセスが終了すると消える
type LocalSystem struct {
	Functions *invoker.HandlerInvoker
	Store     *store.MemoryCounterStore
}

// NewLocalSystem はメモリ上のカウンターでヒットカウンター関数を組み立てる
// 関数は LocalFunctionName で呼び出せる
func NewLocalSystem(logger logrus.FieldLogger) (*LocalSystem, error) {
	cfg := config.Function{
		Observability: config.Observability{
			MetricsSink: config.SinkNone,
			Service:     "hitcounter",
		},
		TableName:              LocalTableName,
		DownstreamFunctionName: LocalDownstreamName,
	}

	sys := &LocalSystem{
		Functions: invoker.NewHandlerInvoker(),
		Store:     store.NewMemoryCounterStore(),
	}
	sys.Functions.Register(LocalDownstreamName, NewHelloHandler(cfg.Observability, nil, logger))

	h, err := newRelayHandler(cfg, sys.Store, sys.Functions, nil, logger)
	if err != nil {
		return nil, err
	}
	sys.Functions.Register(LocalFunctionName, h)
	return sys, nil
}

// NewHelloHandler は下流のhello関数のハンドラーを組み立てる
func NewHelloHandler(obs config.Observability, sink metrics.Sink, logger logrus.FieldLogger) lambda.Handler {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	mws := []middleware.Middleware{middleware.Logging(logger)}
	if obs.TraceEnabled {
		mws = append(mws, middleware.Tracing(obs.Service))
	}
	mws = append(mws, middleware.Metrics(sink, logger))
	return middleware.Chain(lambda.NewHandler(hello.Handle), mws...)
}

// NewSink は設定に応じたメトリクス送信先を作る
// statsdの接続先はDatadog Extension（localhost:8125）が既定
func NewSink(obs config.Observability, cw metrics.CloudWatchAPI) (metrics.Sink, error) {
	switch obs.MetricsSink {
	case config.SinkStatsd:
		return metrics.NewStatsdSink(obs.AgentHost, obs.StatsdPort, obs.Service+".",
			[]string{metrics.Tag("service", obs.Service)})
	case config.SinkCloudWatch:
		if cw == nil {
			return nil, errors.New("CloudWatchクライアントが指定されていません")
		}
		return metrics.NewCloudWatchSink(cw, obs.MetricsNamespace), nil
	case config.SinkNone:
		return metrics.NopSink{}, nil
	default:
		return nil, fmt.Errorf("不明なメトリクス送信先: %s", obs.MetricsSink)
	}
}
