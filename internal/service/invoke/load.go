package invoke

import (
	"context"
	"errors"
	"fmt"
	"hitrelay/internal/relay"
	"hitrelay/internal/service/common"
	"hitrelay/internal/store"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// LoadOptions は負荷試験のオプション
type LoadOptions struct {
	Requests    int // 呼び出し回数
	Concurrency int // 最大並列数
	Request     Options
	Progress    io.Writer // nil の場合はプログレスバーを表示しない
}

// LoadResult は負荷試験の結果
type LoadResult struct {
	Path      string
	Requests  int
	Succeeded int
	Failed    int
	Before    int64
	After     int64
	Elapsed   time.Duration
	// Errors はエラー種別ごとの件数
	Errors map[string]int
}

// Delta は試験前後のヒット数の増分
func (r LoadResult) Delta() int64 {
	return r.After - r.Before
}

// ErrCountMismatch はヒット数の増分が呼び出し回数と一致しない場合のエラー
var ErrCountMismatch = errors.New("ヒット数の増分が呼び出し回数と一致しません")

// Load は同じパスへ並列に呼び出し、前後のヒット数を比べる
// 下流の失敗でも加算は残るため、増分は呼び出し回数と一致するはず
func Load(ctx context.Context, inv relay.Invoker, reader store.Reader, functionName, path string, opts LoadOptions) (LoadResult, error) {
	result := LoadResult{Path: path, Requests: opts.Requests, Errors: map[string]int{}}
	if opts.Requests <= 0 {
		return result, fmt.Errorf("呼び出し回数は1以上を指定してください: %d", opts.Requests)
	}
	payload, err := BuildRequest(path, opts.Request)
	if err != nil {
		return result, err
	}

	before, err := reader.Get(ctx, path)
	if err != nil {
		return result, fmt.Errorf("試験前のヒット数取得に失敗: %w", err)
	}
	result.Before = before.Hits

	// 並列実行数を設定（呼び出し回数を上限とする）
	maxWorkers := opts.Concurrency
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	if opts.Requests < maxWorkers {
		maxWorkers = opts.Requests
	}

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions(opts.Requests,
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(false),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("呼び出し中..."),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
		)
	}

	executor := common.NewParallelExecutor(maxWorkers)
	results := make([]common.ProcessResult, opts.Requests)
	resultsMutex := &sync.Mutex{}

	start := time.Now()
	for i := range opts.Requests {
		idx := i
		executor.Execute(func() {
			out, err := inv.Invoke(ctx, functionName, payload)
			if err == nil {
				_, err = relay.ParseResponse(out)
			}

			resultsMutex.Lock()
			results[idx] = common.ProcessResult{Item: path, Success: err == nil, Error: err}
			if err != nil {
				result.Errors[relay.RemoteErrorKind(err)]++
			}
			if bar != nil {
				_ = bar.Add(1)
			}
			resultsMutex.Unlock()
		})
	}
	executor.Wait()
	result.Elapsed = time.Since(start)
	if bar != nil {
		_ = bar.Finish()
	}

	result.Succeeded, result.Failed = common.CollectResults(results)

	after, err := reader.Get(ctx, path)
	if err != nil {
		return result, fmt.Errorf("試験後のヒット数取得に失敗: %w", err)
	}
	result.After = after.Hits

	if result.Delta() != int64(opts.Requests) {
		return result, fmt.Errorf("%w: 増分 %d, 呼び出し %d", ErrCountMismatch, result.Delta(), opts.Requests)
	}
	return result, nil
}

// DisplayLoadResult は負荷試験の結果を表示する
func DisplayLoadResult(w io.Writer, r LoadResult) {
	fmt.Fprintf(w, "\n%s パス: %s\n", common.InfoIcon, r.Path)
	fmt.Fprintf(w, "呼び出し: %d回 (成功 %d, 失敗 %d) %s\n", r.Requests, r.Succeeded, r.Failed, r.Elapsed.Round(time.Millisecond))
	kinds := make([]string, 0, len(r.Errors))
	for kind := range r.Errors {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(w, "   %s %s: %d件\n", common.WarningIcon, kind, r.Errors[kind])
	}
	fmt.Fprintf(w, "ヒット数: %d → %d (+%d)\n", r.Before, r.After, r.Delta())
	if r.Delta() == int64(r.Requests) {
		fmt.Fprintf(w, "%s ヒット数の増分は呼び出し回数と一致しました\n", common.SuccessIcon)
	} else {
		fmt.Fprintf(w, "%s ヒット数の増分が呼び出し回数と一致しません\n", common.ErrorIcon)
	}
}
