package logs

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLogs struct {
	pages  [][]types.FilteredLogEvent
	inputs []cloudwatchlogs.FilterLogEventsInput
	err    error
}

func (f *fakeLogs) FilterLogEvents(_ context.Context, in *cloudwatchlogs.FilterLogEventsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error) {
	f.inputs = append(f.inputs, *in)
	if f.err != nil {
		return nil, f.err
	}
	page := len(f.inputs) - 1
	out := &cloudwatchlogs.FilterLogEventsOutput{Events: f.pages[page]}
	if page < len(f.pages)-1 {
		out.NextToken = aws.String("next")
	}
	return out, nil
}

func event(ts int64, msg string) types.FilteredLogEvent {
	return types.FilteredLogEvent{Timestamp: aws.Int64(ts), LogStreamName: aws.String("stream"), Message: aws.String(msg)}
}

func TestFetchEvents(t *testing.T) {
	client := &fakeLogs{pages: [][]types.FilteredLogEvent{
		{event(1, "START RequestId: 1\n"), event(2, `{"level":"info","message":"ok"}`)},
		{event(3, "END RequestId: 1\n")},
	}}
	now := time.UnixMilli(1_000_000)

	got, err := FetchEvents(context.Background(), client, FetchOptions{
		FunctionName: "HitCounter",
		Since:        15 * time.Minute,
		Filter:       "ERROR",
	}, now)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "START RequestId: 1", got[0].Message)

	require.Len(t, client.inputs, 2)
	first := client.inputs[0]
	assert.Equal(t, "/aws/lambda/HitCounter", aws.ToString(first.LogGroupName))
	assert.Equal(t, now.Add(-15*time.Minute).UnixMilli(), aws.ToInt64(first.StartTime))
	assert.Equal(t, "ERROR", aws.ToString(first.FilterPattern))
	assert.Equal(t, "next", aws.ToString(client.inputs[1].NextToken))
}

func TestFetchEventsLimit(t *testing.T) {
	client := &fakeLogs{pages: [][]types.FilteredLogEvent{
		{event(1, "a"), event(2, "b")},
		{event(3, "c")},
	}}
	got, err := FetchEvents(context.Background(), client, FetchOptions{FunctionName: "f", Limit: 2}, time.Now())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Len(t, client.inputs, 1)
	assert.Nil(t, client.inputs[0].StartTime)
	assert.Nil(t, client.inputs[0].FilterPattern)
}

func TestFetchEventsErrors(t *testing.T) {
	_, err := FetchEvents(context.Background(), &fakeLogs{}, FetchOptions{}, time.Now())
	assert.Error(t, err)

	_, err = FetchEvents(context.Background(), &fakeLogs{err: errors.New("ResourceNotFoundException")}, FetchOptions{FunctionName: "f"}, time.Now())
	assert.ErrorContains(t, err, "/aws/lambda/f")
}

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"START RequestId: 1", "START RequestId: 1"},
		{`{"level":"info","message":"リクエストを処理しました","path":"/foo"}`, "[INFO] リクエストを処理しました path=/foo"},
		{`{"level":"error","message":"失敗","error_kind":"counter_store","error":"boom"}`, `[ERROR] 失敗 error_kind=counter_store error="boom"`},
		{`{"not":"a log line"}`, `{"not":"a log line"}`},
		{`{broken`, `{broken`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatMessage(tt.in))
	}
}

func TestDisplayEvents(t *testing.T) {
	var buf bytes.Buffer
	DisplayEvents(&buf, "f", nil)
	assert.Contains(t, buf.String(), "/aws/lambda/f")

	buf.Reset()
	DisplayEvents(&buf, "f", []Event{{Timestamp: time.Now().UnixMilli(), Message: `{"level":"warn","message":"遅延"}`}})
	assert.Contains(t, buf.String(), "[WARN] 遅延")
	assert.Contains(t, buf.String(), "(1件)")
}
