package middleware

import (
	"context"
	"hitrelay/internal/relay"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// スパン名
const (
	SpanInvocation = "aws.lambda"
	SpanIncrement  = "hitcounter.increment"
	SpanDownstream = "hitcounter.downstream"
)

// Tracing は呼び出し全体を1つのスパンで囲む
// 子スパンはctx経由で同じトレースにぶら下がる
func Tracing(service string) Middleware {
	return func(next lambda.Handler) lambda.Handler {
		return HandlerFunc(func(ctx context.Context, payload []byte) ([]byte, error) {
			path := requestPath(payload)
			span, ctx := tracer.StartSpanFromContext(ctx, SpanInvocation,
				tracer.ServiceName(service),
				tracer.ResourceName(path),
				tracer.SpanType("serverless"),
			)
			span.SetTag("path", path)
			span.SetTag("function_name", lambdacontext.FunctionName)
			if lc, ok := lambdacontext.FromContext(ctx); ok {
				span.SetTag("request_id", lc.AwsRequestID)
			}

			out, err := next.Invoke(ctx, payload)
			if err != nil {
				span.SetTag("error.kind", relay.ErrorKind(err))
			}
			span.Finish(tracer.WithError(err))
			return out, err
		})
	}
}

// tracedCounterStore は加算処理をスパンで囲む
type tracedCounterStore struct {
	next  relay.CounterStore
	table string
}

// TraceCounterStore はCounterStoreの呼び出しをトレースする
func TraceCounterStore(next relay.CounterStore, table string) relay.CounterStore {
	return &tracedCounterStore{next: next, table: table}
}

func (t *tracedCounterStore) Increment(ctx context.Context, key string, amount int64) error {
	span, ctx := tracer.StartSpanFromContext(ctx, SpanIncrement, tracer.ResourceName(t.table))
	span.SetTag("table", t.table)
	span.SetTag("path", key)
	err := t.next.Increment(ctx, key, amount)
	span.Finish(tracer.WithError(err))
	return err
}

// tracedInvoker は下流呼び出しをスパンで囲む
type tracedInvoker struct {
	next relay.Invoker
}

// TraceInvoker はInvokerの呼び出しをトレースする
func TraceInvoker(next relay.Invoker) relay.Invoker {
	return &tracedInvoker{next: next}
}

func (t *tracedInvoker) Invoke(ctx context.Context, name string, payload []byte) ([]byte, error) {
	span, ctx := tracer.StartSpanFromContext(ctx, SpanDownstream, tracer.ResourceName(name))
	span.SetTag("downstream_function", name)
	out, err := t.next.Invoke(ctx, name, payload)
	span.Finish(tracer.WithError(err))
	return out, err
}
