package middleware

import (
	"context"
	"errors"
	"hitrelay/internal/metrics"
	"hitrelay/internal/relay"
	"hitrelay/internal/store"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/mocktracer"
)

type recordingSink struct {
	mu       sync.Mutex
	counts   map[string][]string
	dists    []string
	flushes  int
	flushErr error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{counts: make(map[string][]string)}
}

func (s *recordingSink) Count(name string, _ int64, tags []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[name] = append(s.counts[name], strings.Join(tags, ","))
}

func (s *recordingSink) Distribution(name string, _ float64, _ []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dists = append(s.dists, name)
}

func (s *recordingSink) Flush(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return s.flushErr
}

func echo() HandlerFunc {
	return func(_ context.Context, payload []byte) ([]byte, error) {
		return payload, nil
	}
}

func failing(err error) HandlerFunc {
	return func(context.Context, []byte) ([]byte, error) {
		return nil, err
	}
}

func lambdaCtx() context.Context {
	return lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "req-1"})
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next lambda.Handler) lambda.Handler {
			return HandlerFunc(func(ctx context.Context, p []byte) ([]byte, error) {
				order = append(order, name)
				return next.Invoke(ctx, p)
			})
		}
	}

	h := Chain(echo(), mark("outer"), mark("inner"))
	out, err := h.Invoke(context.Background(), []byte(`{"path":"/a"}`))
	require.NoError(t, err)
	assert.Equal(t, `{"path":"/a"}`, string(out))
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestLoggingSuccess(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	h := Chain(echo(), Logging(logger))

	_, err := h.Invoke(lambdaCtx(), []byte(`{"path":"/a"}`))
	require.NoError(t, err)
	_, err = h.Invoke(lambdaCtx(), []byte(`{"path":"/a"}`))
	require.NoError(t, err)

	var infos []*logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.InfoLevel {
			infos = append(infos, e)
		}
	}
	require.Len(t, infos, 2)
	assert.Equal(t, "/a", infos[0].Data["path"])
	assert.Equal(t, "req-1", infos[0].Data["request_id"])
	assert.Equal(t, true, infos[0].Data["cold_start"])
	assert.Equal(t, false, infos[1].Data["cold_start"])
	assert.Contains(t, infos[0].Data, "duration_ms")
}

func TestLoggingError(t *testing.T) {
	logger, hook := test.NewNullLogger()
	cause := &relay.DownstreamInvocationError{Function: "HelloHandler", Err: errors.New("boom")}
	h := Chain(failing(cause), Logging(logger))

	_, err := h.Invoke(lambdaCtx(), []byte(`{"path":"/a"}`))
	assert.Same(t, cause, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, relay.KindDownstreamInvocation, entry.Data["error_kind"])
	assert.Equal(t, cause, entry.Data[logrus.ErrorKey])
}

func TestMetricsMiddleware(t *testing.T) {
	logger, hook := test.NewNullLogger()
	sink := newRecordingSink()
	sink.flushErr = errors.New("flush failed")

	ok := Chain(echo(), Metrics(sink, logger))
	_, err := ok.Invoke(context.Background(), []byte(`{"path":"/a"}`))
	require.NoError(t, err)

	bad := Chain(failing(&relay.CounterStoreError{Key: "/a", Err: errors.New("x")}), Metrics(sink, logger))
	_, err = bad.Invoke(context.Background(), []byte(`{"path":"/a"}`))
	require.Error(t, err)

	assert.Len(t, sink.counts[metrics.MetricInvocations], 2)
	assert.Equal(t, []string{"kind:counter_store"}, sink.counts[metrics.MetricErrors])
	assert.Equal(t, []string{metrics.MetricDuration, metrics.MetricDuration}, sink.dists)
	assert.Equal(t, 2, sink.flushes)
	// Flushの失敗は呼び出し結果を変えずにログだけ残す
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestTracingSpans(t *testing.T) {
	mt := mocktracer.Start()
	defer mt.Stop()

	counter := TraceCounterStore(store.NewMemoryCounterStore(), "HitsTable")
	downstream := TraceInvoker(invokerFunc(func(context.Context, string, []byte) ([]byte, error) {
		return []byte(`{"statusCode":200}`), nil
	}))
	r, err := relay.New(relay.Config{TableName: "HitsTable", DownstreamFunctionName: "HelloHandler"}, counter, downstream)
	require.NoError(t, err)

	h := Chain(r, Tracing("hitcounter"))
	_, err = h.Invoke(lambdaCtx(), []byte(`{"path":"/a"}`))
	require.NoError(t, err)

	spans := mt.FinishedSpans()
	require.Len(t, spans, 3)

	byName := map[string]mocktracer.Span{}
	for _, s := range spans {
		byName[s.OperationName()] = s
	}
	root := byName[SpanInvocation]
	require.NotNil(t, root)
	assert.Equal(t, "hitcounter", root.Tag("service.name"))
	assert.Equal(t, "/a", root.Tag("resource.name"))
	assert.Equal(t, "req-1", root.Tag("request_id"))

	inc := byName[SpanIncrement]
	require.NotNil(t, inc)
	assert.Equal(t, root.SpanID(), inc.ParentID())
	assert.Equal(t, "/a", inc.Tag("path"))

	down := byName[SpanDownstream]
	require.NotNil(t, down)
	assert.Equal(t, root.SpanID(), down.ParentID())
	assert.Equal(t, "HelloHandler", down.Tag("downstream_function"))
}

func TestTracingRecordsErrorKind(t *testing.T) {
	mt := mocktracer.Start()
	defer mt.Stop()

	h := Chain(failing(&relay.MalformedResponseError{Err: errors.New("bad")}), Tracing("hitcounter"))
	_, err := h.Invoke(context.Background(), []byte(`{"path":"/a"}`))
	require.Error(t, err)

	spans := mt.FinishedSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, relay.KindMalformedResponse, spans[0].Tag("error.kind"))
	assert.NotNil(t, spans[0].Tag("error"))
}

func TestRequestPath(t *testing.T) {
	assert.Equal(t, "/a", requestPath([]byte(`{"path":"/a"}`)))
	assert.Equal(t, "", requestPath([]byte(`not json`)))
}

type invokerFunc func(ctx context.Context, name string, payload []byte) ([]byte, error)

func (f invokerFunc) Invoke(ctx context.Context, name string, payload []byte) ([]byte, error) {
	return f(ctx, name, payload)
}
