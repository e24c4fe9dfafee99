package metrics

import (
	"context"
	"errors"
	"hitrelay/internal/store"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countCall struct {
	name  string
	value int64
	tags  []string
}

type fakeStatsd struct {
	counts  []countCall
	dists   []float64
	flushed int
	closed  bool
}

func (f *fakeStatsd) Count(name string, value int64, tags []string, _ float64) error {
	f.counts = append(f.counts, countCall{name, value, tags})
	return nil
}

func (f *fakeStatsd) Distribution(_ string, value float64, _ []string, _ float64) error {
	f.dists = append(f.dists, value)
	return nil
}

func (f *fakeStatsd) Flush() error { f.flushed++; return nil }
func (f *fakeStatsd) Close() error { f.closed = true; return nil }

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
	// failFirst が設定されている場合、最初の呼び出しだけ失敗する
	failFirst error
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.failFirst != nil && len(f.inputs) == 1 {
		return nil, f.failFirst
	}
	return &cloudwatch.PutMetricDataOutput{}, f.err
}

func TestStatsdSink(t *testing.T) {
	client := &fakeStatsd{}
	sink := NewStatsdSinkWithClient(client)

	sink.Count(MetricHits, 1, []string{"path:/foo"})
	sink.Distribution(MetricDuration, 12.5, nil)
	require.NoError(t, sink.Flush(context.Background()))
	require.NoError(t, sink.Close())

	assert.Equal(t, []countCall{{MetricHits, 1, []string{"path:/foo"}}}, client.counts)
	assert.Equal(t, []float64{12.5}, client.dists)
	assert.Equal(t, 1, client.flushed)
	assert.True(t, client.closed)
}

func TestShutdown(t *testing.T) {
	client := &fakeStatsd{}
	sink := NewStatsdSinkWithClient(client)
	sink.Count(MetricHits, 1, nil)

	require.NoError(t, Shutdown(context.Background(), sink))
	assert.Equal(t, 1, client.flushed)
	assert.True(t, client.closed)

	// Closeを持たない送信先はFlushのみ
	cw := &fakeCloudWatch{failFirst: errors.New("denied")}
	cwSink := NewCloudWatchSink(cw, "HitCounter")
	cwSink.Count(MetricHits, 1, nil)
	assert.Error(t, Shutdown(context.Background(), cwSink))
	assert.Len(t, cw.inputs, 1)

	assert.NoError(t, Shutdown(context.Background(), NopSink{}))
}

func TestCloudWatchSinkFlush(t *testing.T) {
	client := &fakeCloudWatch{}
	sink := NewCloudWatchSink(client, "HitCounter")
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	sink.now = func() time.Time { return fixed }

	sink.Count(MetricHits, 2, []string{"path:/foo"})
	sink.Distribution(MetricDuration, 30, []string{"cold_start"})
	require.NoError(t, sink.Flush(context.Background()))

	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "HitCounter", aws.ToString(in.Namespace))
	require.Len(t, in.MetricData, 2)

	hits := in.MetricData[0]
	assert.Equal(t, MetricHits, aws.ToString(hits.MetricName))
	assert.Equal(t, 2.0, aws.ToFloat64(hits.Value))
	assert.Equal(t, types.StandardUnitCount, hits.Unit)
	assert.Equal(t, fixed, aws.ToTime(hits.Timestamp))
	assert.Equal(t, []types.Dimension{{Name: aws.String("path"), Value: aws.String("/foo")}}, hits.Dimensions)

	duration := in.MetricData[1]
	assert.Equal(t, types.StandardUnitMilliseconds, duration.Unit)
	assert.Equal(t, "true", aws.ToString(duration.Dimensions[0].Value))

	// 送信済みのデータは再送しない
	require.NoError(t, sink.Flush(context.Background()))
	assert.Len(t, client.inputs, 1)
}

func TestCloudWatchSinkSplitsLargeBatches(t *testing.T) {
	client := &fakeCloudWatch{}
	sink := NewCloudWatchSink(client, "HitCounter")
	for i := 0; i < maxDatumsPerRequest+1; i++ {
		sink.Count(MetricInvocations, 1, nil)
	}
	require.NoError(t, sink.Flush(context.Background()))

	require.Len(t, client.inputs, 2)
	assert.Len(t, client.inputs[0].MetricData, maxDatumsPerRequest)
	assert.Len(t, client.inputs[1].MetricData, 1)
}

func TestCloudWatchSinkFlushError(t *testing.T) {
	client := &fakeCloudWatch{err: errors.New("denied")}
	sink := NewCloudWatchSink(client, "HitCounter")
	sink.Count(MetricHits, 1, nil)
	assert.Error(t, sink.Flush(context.Background()))
}

func TestCloudWatchSinkFlushContinuesAfterFailure(t *testing.T) {
	denied := errors.New("denied")
	client := &fakeCloudWatch{failFirst: denied}
	sink := NewCloudWatchSink(client, "HitCounter")
	for i := 0; i < maxDatumsPerRequest*2+1; i++ {
		sink.Count(MetricInvocations, 1, nil)
	}

	err := sink.Flush(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, denied)

	// 最初の分割が失敗しても残りは送信される
	require.Len(t, client.inputs, 3)
	assert.Len(t, client.inputs[1].MetricData, maxDatumsPerRequest)
	assert.Len(t, client.inputs[2].MetricData, 1)
}

func TestDimensionsTruncatesLongValues(t *testing.T) {
	longPath := "/" + strings.Repeat("a", 1999)
	dims := Dimensions([]string{Tag("path", longPath), Tag("path", "/短い"), "cold_start"})
	require.Len(t, dims, 3)

	assert.Equal(t, "path", aws.ToString(dims[0].Name))
	assert.Len(t, aws.ToString(dims[0].Value), maxDimensionValueLength)
	assert.True(t, strings.HasPrefix(longPath, aws.ToString(dims[0].Value)))

	assert.Equal(t, "/短い", aws.ToString(dims[1].Value))
	assert.Equal(t, "true", aws.ToString(dims[2].Value))

	// マルチバイト文字は文字数で切り詰める
	wide := Dimensions([]string{Tag("path", strings.Repeat("あ", 1500))})
	assert.Equal(t, maxDimensionValueLength, utf8.RuneCountInString(aws.ToString(wide[0].Value)))
	assert.True(t, utf8.ValidString(aws.ToString(wide[0].Value)))
}

func TestMeteredCounterStore(t *testing.T) {
	client := &fakeStatsd{}
	inner := store.NewMemoryCounterStore()
	s := NewMeteredCounterStore(inner, NewStatsdSinkWithClient(client))

	require.NoError(t, s.Increment(context.Background(), "/foo", 1))
	assert.Equal(t, []countCall{{MetricHits, 1, []string{"path:/foo"}}}, client.counts)

	inner.Err = errors.New("unavailable")
	assert.Error(t, s.Increment(context.Background(), "/foo", 1))
	assert.Len(t, client.counts, 1)
}
