package logs

import (
	"context"
	"encoding/json"
	"fmt"
	"hitrelay/internal/service/common"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

// LogGroupName はLambda関数のロググループ名を返す
func LogGroupName(functionName string) string {
	return "/aws/lambda/" + functionName
}

// FetchEvents は関数のロググループからイベントを取得する
func FetchEvents(ctx context.Context, client API, opts FetchOptions, now time.Time) ([]Event, error) {
	if opts.FunctionName == "" {
		return nil, fmt.Errorf("関数名を指定してください")
	}

	input := &cloudwatchlogs.FilterLogEventsInput{
		LogGroupName: aws.String(LogGroupName(opts.FunctionName)),
	}
	if opts.Since > 0 {
		input.StartTime = aws.Int64(now.Add(-opts.Since).UnixMilli())
	}
	if opts.Filter != "" {
		input.FilterPattern = aws.String(opts.Filter)
	}

	var events []Event
	for {
		result, err := client.FilterLogEvents(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("ログイベント取得エラー (%s): %w", aws.ToString(input.LogGroupName), err)
		}

		for _, e := range result.Events {
			events = append(events, Event{
				Timestamp: aws.ToInt64(e.Timestamp),
				Stream:    aws.ToString(e.LogStreamName),
				Message:   strings.TrimRight(aws.ToString(e.Message), "\n"),
			})
			if opts.Limit > 0 && len(events) >= opts.Limit {
				return events, nil
			}
		}

		if result.NextToken == nil {
			break
		}
		input.NextToken = result.NextToken
	}

	return events, nil
}

// jsonLine はJSON形式のログのうち表示に使う項目
type jsonLine struct {
	Level     string `json:"level"`
	Message   string `json:"message"`
	Path      string `json:"path"`
	ErrorKind string `json:"error_kind"`
	Error     string `json:"error"`
}

// FormatMessage はJSONログを1行の読みやすい形に整形する
// JSONでない行（START/END/REPORTなど）はそのまま返す
func FormatMessage(message string) string {
	if !strings.HasPrefix(message, "{") {
		return message
	}
	var line jsonLine
	if err := json.Unmarshal([]byte(message), &line); err != nil || line.Message == "" {
		return message
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(line.Level), line.Message)
	if line.Path != "" {
		fmt.Fprintf(&b, " path=%s", line.Path)
	}
	if line.ErrorKind != "" {
		fmt.Fprintf(&b, " error_kind=%s", line.ErrorKind)
	}
	if line.Error != "" {
		fmt.Fprintf(&b, " error=%q", line.Error)
	}
	return b.String()
}

// DisplayEvents はログイベントを時刻付きで表示する
func DisplayEvents(w io.Writer, functionName string, events []Event) {
	if len(events) == 0 {
		fmt.Fprintf(w, "%s のログイベントが見つかりませんでした\n", LogGroupName(functionName))
		return
	}

	fmt.Fprintf(w, "%s %s (%d件)\n\n", common.SearchIcon, LogGroupName(functionName), len(events))
	for _, e := range events {
		ts := e.Timestamp
		fmt.Fprintf(w, "%s %s\n", common.FormatTimestamp(&ts), FormatMessage(e.Message))
	}
}
