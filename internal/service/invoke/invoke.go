package invoke

import (
	"context"
	"encoding/json"
	"fmt"
	"hitrelay/internal/relay"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
)

// Options は関数呼び出し時のリクエスト内容
type Options struct {
	Method  string
	Body    string
	Headers map[string]string
}

// Result は1回の呼び出し結果
type Result struct {
	Response relay.Response
	Duration time.Duration
}

// BuildRequest はAPI Gatewayのプロキシリクエストを組み立てる
func BuildRequest(path string, opts Options) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("パスを指定してください")
	}
	method := strings.ToUpper(opts.Method)
	if method == "" {
		method = http.MethodGet
	}
	return json.Marshal(events.APIGatewayProxyRequest{
		Resource:   "/{proxy+}",
		Path:       path,
		HTTPMethod: method,
		Headers:    opts.Headers,
		Body:       opts.Body,
	})
}

// InvokePath はヒットカウンター関数をパス指定で1回呼び出す
func InvokePath(ctx context.Context, inv relay.Invoker, functionName, path string, opts Options) (Result, error) {
	payload, err := BuildRequest(path, opts)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	out, err := inv.Invoke(ctx, functionName, payload)
	elapsed := time.Since(start)
	if err != nil {
		return Result{Duration: elapsed}, err
	}

	resp, err := relay.ParseResponse(out)
	if err != nil {
		return Result{Duration: elapsed}, err
	}
	return Result{Response: resp, Duration: elapsed}, nil
}

// DisplayResult はレスポンスを表示する
func DisplayResult(w io.Writer, r Result) {
	fmt.Fprintf(w, "ステータス: %d (%dms)\n", r.Response.StatusCode, r.Duration.Milliseconds())

	keys := make([]string, 0, len(r.Response.Headers))
	for k := range r.Response.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s: %s\n", k, r.Response.Headers[k])
	}

	fmt.Fprintln(w)
	fmt.Fprint(w, r.Response.Body)
	if !strings.HasSuffix(r.Response.Body, "\n") {
		fmt.Fprintln(w)
	}
}
