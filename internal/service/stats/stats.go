// Package stats はCloudWatchに送られたヒット数メトリクスを集計する
package stats

import (
	"context"
	"fmt"
	"hitrelay/internal/metrics"
	"hitrelay/internal/service/common"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// 集計を並列で行う最大数
const maxWorkers = 10

// API はメトリクス集計に使うCloudWatchクライアントのメソッド
type API interface {
	ListMetrics(ctx context.Context, params *cloudwatch.ListMetricsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.ListMetricsOutput, error)
	GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error)
}

// Options は集計のオプション
type Options struct {
	Namespace string
	Since     time.Duration
	Path      string // 空の場合は全パス
}

// PathSum はパスごとのヒット数の合計
type PathSum struct {
	Path string
	Sum  float64
}

// period は集計期間全体を1つにまとめる秒数（60の倍数）
func period(since time.Duration) int32 {
	secs := int64(since.Seconds())
	if secs < 60 {
		return 60
	}
	return int32((secs + 59) / 60 * 60)
}

// SumHits はパスごとのヒット数を集計して多い順に返す
func SumHits(ctx context.Context, client API, opts Options, now time.Time) ([]PathSum, error) {
	var paths []string
	if opts.Path != "" {
		paths = []string{opts.Path}
	} else {
		var err error
		if paths, err = listPaths(ctx, client, opts.Namespace); err != nil {
			return nil, err
		}
	}

	workers := min(maxWorkers, len(paths))
	if workers == 0 {
		return nil, nil
	}
	executor := common.NewParallelExecutor(workers)
	sums := make([]PathSum, len(paths))
	errs := make([]error, len(paths))
	var mu sync.Mutex

	for i, path := range paths {
		executor.Execute(func() {
			sum, err := sumPath(ctx, client, opts, path, now)
			mu.Lock()
			sums[i] = PathSum{Path: path, Sum: sum}
			errs[i] = err
			mu.Unlock()
		})
	}
	executor.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(sums, func(i, j int) bool {
		if sums[i].Sum != sums[j].Sum {
			return sums[i].Sum > sums[j].Sum
		}
		return sums[i].Path < sums[j].Path
	})
	return sums, nil
}

// listPaths は hits メトリクスに付いている path ディメンションの値を列挙する
func listPaths(ctx context.Context, client API, namespace string) ([]string, error) {
	input := &cloudwatch.ListMetricsInput{
		Namespace:  aws.String(namespace),
		MetricName: aws.String(metrics.MetricHits),
	}

	seen := map[string]bool{}
	var paths []string
	for {
		result, err := client.ListMetrics(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("メトリクス一覧取得エラー: %w", err)
		}
		for _, m := range result.Metrics {
			for _, d := range m.Dimensions {
				p := aws.ToString(d.Value)
				if aws.ToString(d.Name) == "path" && !seen[p] {
					seen[p] = true
					paths = append(paths, p)
				}
			}
		}
		if result.NextToken == nil {
			break
		}
		input.NextToken = result.NextToken
	}
	return paths, nil
}

func sumPath(ctx context.Context, client API, opts Options, path string, now time.Time) (float64, error) {
	out, err := client.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String(opts.Namespace),
		MetricName: aws.String(metrics.MetricHits),
		Dimensions: metrics.Dimensions([]string{metrics.Tag("path", path)}),
		StartTime:  aws.Time(now.Add(-opts.Since)),
		EndTime:    aws.Time(now),
		Period:     aws.Int32(period(opts.Since)),
		Statistics: []types.Statistic{types.StatisticSum},
	})
	if err != nil {
		return 0, fmt.Errorf("パス '%s' のメトリクス取得エラー: %w", path, err)
	}

	var sum float64
	for _, dp := range out.Datapoints {
		sum += aws.ToFloat64(dp.Sum)
	}
	return sum, nil
}

// DisplaySums は集計結果を表示する
func DisplaySums(w io.Writer, opts Options, sums []PathSum) {
	title := fmt.Sprintf("直近%sの%s/%s", opts.Since, opts.Namespace, metrics.MetricHits)
	common.DisplayList(w, sums, title, func(items []PathSum) ([]common.TableColumn, [][]string) {
		columns := []common.TableColumn{
			{Header: "パス"},
			{Header: "合計", AlignRight: true},
		}
		data := make([][]string, len(items))
		for i, s := range items {
			data[i] = []string{s.Path, strconv.FormatFloat(s.Sum, 'f', -1, 64)}
		}
		return columns, data
	}, &common.DisplayOptions{
		ShowCount:    true,
		EmptyMessage: "メトリクスが見つかりませんでした",
	})
}
