package main

import (
	"context"
	"hitrelay/internal/app"
	awsinternal "hitrelay/internal/aws"
	"hitrelay/internal/config"
	"hitrelay/internal/logging"
	"hitrelay/internal/metrics"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.NewViper())
	logger := logging.NewJSON(os.Stdout, cfg.LogLevel)
	if err != nil {
		logger.WithError(err).Fatal("設定の読み込みに失敗")
	}

	// AWS設定をロード（Lambda実行ロールが自動的に使われる）
	clients, err := awsinternal.NewAwsClients(ctx, awsinternal.Context{})
	if err != nil {
		logger.WithError(err).Fatal("AWS設定の読み込みに失敗")
	}

	if cfg.NeedsSSM() {
		cfg, err = cfg.ResolveSSM(ctx, clients.Ssm())
		if err != nil {
			logger.WithError(err).Fatal("SSMパラメータの解決に失敗")
		}
	}

	if cfg.TraceEnabled {
		tracer.Start(tracer.WithService(cfg.Service))
	}

	sink, err := app.NewSink(cfg.Observability, clients.CloudWatch())
	if err != nil {
		logger.WithError(err).Fatal("メトリクス送信先の作成に失敗")
	}

	handler, err := app.NewRelayHandler(cfg, app.RelayDeps{
		Dynamo: clients.Dynamo(),
		Lambda: clients.Lambda(),
		Sink:   sink,
		Logger: logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("ハンドラーの作成に失敗")
	}

	// 実行環境の終了時にトレースとメトリクスを送り切る
	lambda.StartWithOptions(handler, lambda.WithEnableSIGTERM(func() {
		if err := metrics.Shutdown(context.Background(), sink); err != nil {
			logger.WithError(err).Warn("メトリクスの送信に失敗")
		}
		if cfg.TraceEnabled {
			tracer.Stop()
		}
	}))
}
