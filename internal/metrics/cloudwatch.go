package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const (
	// PutMetricData 1回あたりに送れるデータ数の上限
	maxDatumsPerRequest = 1000
	// ディメンション値の最大文字数
	maxDimensionValueLength = 1024
)

// CloudWatchAPI はCloudWatchSinkが使うCloudWatchクライアントのメソッド
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchSink はメトリクスをバッファし、Flush時にPutMetricDataで送る
// タグ "key:value" はディメンションに変換される
type CloudWatchSink struct {
	client    CloudWatchAPI
	namespace string
	now       func() time.Time

	mu     sync.Mutex
	datums []types.MetricDatum
}

// NewCloudWatchSink は新しいCloudWatchSinkを作成
func NewCloudWatchSink(client CloudWatchAPI, namespace string) *CloudWatchSink {
	return &CloudWatchSink{client: client, namespace: namespace, now: time.Now}
}

func (s *CloudWatchSink) Count(name string, value int64, tags []string) {
	s.add(name, float64(value), types.StandardUnitCount, tags)
}

// Distribution は所要時間（ミリ秒）として記録する
func (s *CloudWatchSink) Distribution(name string, value float64, tags []string) {
	s.add(name, value, types.StandardUnitMilliseconds, tags)
}

func (s *CloudWatchSink) add(name string, value float64, unit types.StandardUnit, tags []string) {
	datum := types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(s.now()),
		Dimensions: Dimensions(tags),
	}
	s.mu.Lock()
	s.datums = append(s.datums, datum)
	s.mu.Unlock()
}

// Flush はバッファ済みのデータを上限ごとに分割して送信する
// 途中の送信に失敗しても残りの分割は送信する
func (s *CloudWatchSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	datums := s.datums
	s.datums = nil
	s.mu.Unlock()

	var errs []error
	for start := 0; start < len(datums); start += maxDatumsPerRequest {
		end := start + maxDatumsPerRequest
		if end > len(datums) {
			end = len(datums)
		}
		_, err := s.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(s.namespace),
			MetricData: datums[start:end],
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%d件目から%d件: %w", start+1, end-start, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("CloudWatchメトリクスの送信に失敗: %w", errors.Join(errs...))
	}
	return nil
}

// Dimensions は "key:value" 形式のタグをディメンションに変換する
// ":" を含まないタグは値 "true" として扱う
// CloudWatchの上限を超える値は切り詰める
func Dimensions(tags []string) []types.Dimension {
	if len(tags) == 0 {
		return nil
	}
	dims := make([]types.Dimension, 0, len(tags))
	for _, tag := range tags {
		name, value, ok := strings.Cut(tag, ":")
		if !ok {
			value = "true"
		}
		if utf8.RuneCountInString(value) > maxDimensionValueLength {
			value = string([]rune(value)[:maxDimensionValueLength])
		}
		dims = append(dims, types.Dimension{Name: aws.String(name), Value: aws.String(value)})
	}
	return dims
}
