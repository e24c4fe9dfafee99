package app

import (
	"context"
	"encoding/json"
	"hitrelay/internal/config"
	"hitrelay/internal/metrics"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	updates []*dynamodb.UpdateItemInput
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{}, nil
}

func (f *fakeDynamo) Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return &dynamodb.ScanOutput{}, nil
}

// helloLambda は下流Lambdaの代わりにhelloハンドラーをプロセス内で呼ぶ
type helloLambda struct {
	names []string
}

func (f *helloLambda) Invoke(ctx context.Context, in *awslambda.InvokeInput, _ ...func(*awslambda.Options)) (*awslambda.InvokeOutput, error) {
	f.names = append(f.names, aws.ToString(in.FunctionName))
	logger, _ := test.NewNullLogger()
	out, err := NewHelloHandler(config.Observability{}, nil, logger).Invoke(ctx, in.Payload)
	if err != nil {
		return nil, err
	}
	return &awslambda.InvokeOutput{StatusCode: 200, Payload: out}, nil
}

type fakeCloudWatch struct{}

func (fakeCloudWatch) PutMetricData(context.Context, *cloudwatch.PutMetricDataInput, ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func testConfig(trace bool) config.Function {
	return config.Function{
		Observability: config.Observability{
			MetricsSink:  config.SinkNone,
			TraceEnabled: trace,
			Service:      "hitcounter",
		},
		TableName:              "HitsTable",
		DownstreamFunctionName: "HelloHandler",
	}
}

func TestRelayHandlerEndToEnd(t *testing.T) {
	for _, trace := range []bool{false, true} {
		dynamo := &fakeDynamo{}
		downstream := &helloLambda{}
		logger, hook := test.NewNullLogger()

		h, err := NewRelayHandler(testConfig(trace), RelayDeps{Dynamo: dynamo, Lambda: downstream, Logger: logger})
		require.NoError(t, err)

		in, err := json.Marshal(events.APIGatewayProxyRequest{Path: "/foo", HTTPMethod: "GET"})
		require.NoError(t, err)
		out, err := h.Invoke(context.Background(), in)
		require.NoError(t, err)

		var resp events.APIGatewayProxyResponse
		require.NoError(t, json.Unmarshal(out, &resp))
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, "Hello, World! You've hit \"/foo\".\n", resp.Body)

		require.Len(t, dynamo.updates, 1)
		assert.Equal(t, "HitsTable", aws.ToString(dynamo.updates[0].TableName))
		assert.Equal(t, []string{"HelloHandler"}, downstream.names)
		assert.NotEmpty(t, hook.AllEntries())
	}
}

func TestRelayHandlerRequiresClients(t *testing.T) {
	_, err := NewRelayHandler(testConfig(false), RelayDeps{})
	assert.Error(t, err)

	cfg := testConfig(false)
	cfg.TableName = ""
	_, err = NewRelayHandler(cfg, RelayDeps{Dynamo: &fakeDynamo{}, Lambda: &helloLambda{}})
	assert.Error(t, err)

	cfg = testConfig(false)
	cfg.MetricsSink = "kafka"
	_, err = NewRelayHandler(cfg, RelayDeps{Dynamo: &fakeDynamo{}, Lambda: &helloLambda{}})
	assert.ErrorContains(t, err, config.EnvMetricsSink)
}

func TestLocalSystem(t *testing.T) {
	logger, _ := test.NewNullLogger()
	sys, err := NewLocalSystem(logger)
	require.NoError(t, err)

	in, err := json.Marshal(events.APIGatewayProxyRequest{Path: "/local", HTTPMethod: "GET"})
	require.NoError(t, err)
	for range 2 {
		out, err := sys.Functions.Invoke(context.Background(), LocalFunctionName, in)
		require.NoError(t, err)

		var resp events.APIGatewayProxyResponse
		require.NoError(t, json.Unmarshal(out, &resp))
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, "Hello, World! You've hit \"/local\".\n", resp.Body)
	}

	hit, err := sys.Store.Get(context.Background(), "/local")
	require.NoError(t, err)
	assert.Equal(t, int64(2), hit.Hits)
}

func TestNewSink(t *testing.T) {
	sink, err := NewSink(config.Observability{MetricsSink: config.SinkNone}, nil)
	require.NoError(t, err)
	assert.IsType(t, metrics.NopSink{}, sink)

	sink, err = NewSink(config.Observability{MetricsSink: config.SinkCloudWatch, MetricsNamespace: "HitCounter"}, fakeCloudWatch{})
	require.NoError(t, err)
	assert.IsType(t, &metrics.CloudWatchSink{}, sink)

	_, err = NewSink(config.Observability{MetricsSink: config.SinkCloudWatch}, nil)
	assert.Error(t, err)

	sink, err = NewSink(config.Observability{MetricsSink: config.SinkStatsd, AgentHost: "127.0.0.1", StatsdPort: "8125", Service: "hitcounter"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &metrics.StatsdSink{}, sink)

	_, err = NewSink(config.Observability{MetricsSink: "kafka"}, nil)
	assert.Error(t, err)
}
