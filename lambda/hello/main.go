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
	obs, err := config.LoadObservability(config.NewViper())
	logger := logging.NewJSON(os.Stdout, obs.LogLevel)
	if err != nil {
		logger.WithError(err).Fatal("設定の読み込みに失敗")
	}

	// CloudWatchに送る場合のみAWSクライアントを作る
	var cw metrics.CloudWatchAPI
	if obs.MetricsSink == config.SinkCloudWatch {
		clients, err := awsinternal.NewAwsClients(context.Background(), awsinternal.Context{})
		if err != nil {
			logger.WithError(err).Fatal("AWS設定の読み込みに失敗")
		}
		cw = clients.CloudWatch()
	}

	if obs.TraceEnabled {
		tracer.Start(tracer.WithService(obs.Service))
	}

	sink, err := app.NewSink(obs, cw)
	if err != nil {
		logger.WithError(err).Fatal("メトリクス送信先の作成に失敗")
	}

	lambda.StartWithOptions(app.NewHelloHandler(obs, sink, logger), lambda.WithEnableSIGTERM(func() {
		if err := metrics.Shutdown(context.Background(), sink); err != nil {
			logger.WithError(err).Warn("メトリクスの送信に失敗")
		}
		if obs.TraceEnabled {
			tracer.Stop()
		}
	}))
}
