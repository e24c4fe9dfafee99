package invoker

import (
	"context"
	"errors"
	"hitrelay/internal/relay"
	"reflect"
	"sync"

	"github.com/aws/aws-lambda-go/lambda"
)

// ErrFunctionNotFound は登録されていない関数名が指定された場合のエラー
var ErrFunctionNotFound = errors.New("関数が登録されていません")

// HandlerInvoker はプロセス内のlambda.Handlerを名前で呼び出す
// Lambdaにデプロイせずにリレーを動かす場合に使う
type HandlerInvoker struct {
	mu       sync.RWMutex
	handlers map[string]lambda.Handler
}

// NewHandlerInvoker は空のHandlerInvokerを作成
func NewHandlerInvoker() *HandlerInvoker {
	return &HandlerInvoker{handlers: make(map[string]lambda.Handler)}
}

// Register は関数名にハンドラーを登録する
func (i *HandlerInvoker) Register(name string, handler lambda.Handler) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.handlers[name] = handler
}

// Invoke は登録済みハンドラーを呼び出す
func (i *HandlerInvoker) Invoke(ctx context.Context, name string, payload []byte) ([]byte, error) {
	i.mu.RLock()
	h, ok := i.handlers[name]
	i.mu.RUnlock()
	if !ok {
		return nil, &relay.DownstreamInvocationError{Function: name, Err: ErrFunctionNotFound}
	}

	out, err := h.Invoke(ctx, payload)
	if err != nil {
		return nil, &relay.DownstreamInvocationError{
			Function:      name,
			FunctionError: "Unhandled",
			ErrorType:     errorType(err),
			Err:           err,
		}
	}
	return out, nil
}

// errorType はLambdaランタイムと同じ規則でエラーの型名を返す
func errorType(err error) string {
	t := reflect.TypeOf(err)
	if t.Kind() == reflect.Ptr {
		return t.Elem().Name()
	}
	return t.Name()
}
