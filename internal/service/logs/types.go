package logs

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

// API はログ取得に使うCloudWatch Logsクライアントのメソッド
type API interface {
	FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error)
}

// FetchOptions はログ取得時のオプション
type FetchOptions struct {
	FunctionName string
	Since        time.Duration // 現在時刻からさかのぼる期間
	Filter       string        // CloudWatch Logsのフィルターパターン
	Limit        int           // 0 は無制限
}

// Event はログイベント
type Event struct {
	Timestamp int64
	Stream    string
	Message   string
}
