package middleware

import (
	"context"
	"hitrelay/internal/relay"
	"sync/atomic"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/sirupsen/logrus"
)

// Logging は呼び出しごとに構造化ログを1行出力する
// debugレベルではリクエストとレスポンスの本文も出力する
func Logging(logger logrus.FieldLogger) Middleware {
	return func(next lambda.Handler) lambda.Handler {
		var warm atomic.Bool

		return HandlerFunc(func(ctx context.Context, payload []byte) ([]byte, error) {
			start := time.Now()
			fields := logrus.Fields{
				"function":   lambdacontext.FunctionName,
				"path":       requestPath(payload),
				"cold_start": !warm.Swap(true),
			}
			if lc, ok := lambdacontext.FromContext(ctx); ok {
				fields["request_id"] = lc.AwsRequestID
			}
			entry := logger.WithFields(fields)
			entry.WithField("request", string(payload)).Debug("request")

			out, err := next.Invoke(ctx, payload)

			entry = entry.WithField("duration_ms", time.Since(start).Milliseconds())
			if err != nil {
				entry.WithError(err).WithField("error_kind", relay.ErrorKind(err)).Error("リクエスト処理に失敗")
				return out, err
			}
			entry.WithField("response", string(out)).Debug("downstream response")
			entry.Info("リクエストを処理しました")
			return out, nil
		})
	}
}
