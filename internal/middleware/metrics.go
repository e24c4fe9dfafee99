package middleware

import (
	"context"
	"hitrelay/internal/metrics"
	"hitrelay/internal/relay"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"
)

// Metrics は呼び出し数・エラー数・所要時間を記録し、呼び出しの最後にFlushする
// Flushの失敗はログに残すだけで、レスポンスには影響させない
func Metrics(sink metrics.Sink, logger logrus.FieldLogger) Middleware {
	return func(next lambda.Handler) lambda.Handler {
		return HandlerFunc(func(ctx context.Context, payload []byte) ([]byte, error) {
			start := time.Now()
			out, err := next.Invoke(ctx, payload)

			sink.Count(metrics.MetricInvocations, 1, nil)
			if err != nil {
				sink.Count(metrics.MetricErrors, 1, []string{metrics.Tag("kind", relay.ErrorKind(err))})
			}
			sink.Distribution(metrics.MetricDuration, float64(time.Since(start).Milliseconds()), nil)

			if flushErr := sink.Flush(ctx); flushErr != nil {
				logger.WithError(flushErr).Warn("メトリクスの送信に失敗")
			}
			return out, err
		})
	}
}
