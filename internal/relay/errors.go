package relay

import (
	"errors"
	"fmt"
)

// エラー種別（ログ・メトリクスのタグに使う安定した文字列）
const (
	KindBadRequest           = "bad_request"
	KindCounterStore         = "counter_store"
	KindDownstreamInvocation = "downstream_invocation"
	KindMalformedResponse    = "malformed_response"
	KindUnknown              = "unknown"
)

var (
	// ErrMissingPath はリクエストに path が含まれていない場合のエラー
	ErrMissingPath = errors.New("リクエストに path が指定されていません")
	// ErrInvalidRequest はリクエストがJSONオブジェクトとして読めない場合のエラー
	ErrInvalidRequest = errors.New("リクエストの形式が不正です")
)

// CounterStoreError はヒット数の加算に失敗したことを表す
// このエラーが返った場合、下流関数は呼び出されていない
type CounterStoreError struct {
	Key  string
	Code string // AWS APIのエラーコード（取得できた場合のみ）
	Err  error
}

func (e *CounterStoreError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("ヒット数の更新に失敗 (path=%q, code=%s): %v", e.Key, e.Code, e.Err)
	}
	return fmt.Sprintf("ヒット数の更新に失敗 (path=%q): %v", e.Key, e.Err)
}

func (e *CounterStoreError) Unwrap() error { return e.Err }

// DownstreamInvocationError は下流関数の呼び出しに失敗したことを表す
// ヒット数の加算は取り消されない
type DownstreamInvocationError struct {
	Function      string
	FunctionError string // Lambdaが返したFunctionError（Handled/Unhandled）
	ErrorType     string // 関数エラーのerrorType（呼び出し先で発生したエラーの型名）
	Err           error
}

func (e *DownstreamInvocationError) Error() string {
	if e.FunctionError != "" {
		return fmt.Sprintf("下流Lambda呼び出しに失敗 (%s, %s): %v", e.Function, e.FunctionError, e.Err)
	}
	return fmt.Sprintf("下流Lambda呼び出しに失敗 (%s): %v", e.Function, e.Err)
}

func (e *DownstreamInvocationError) Unwrap() error { return e.Err }

// MalformedResponseError は下流のレスポンスを解釈できなかったことを表す
type MalformedResponseError struct {
	Payload []byte
	Err     error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("下流レスポンスのパースに失敗: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// remoteKinds は関数エラーのerrorTypeからエラー種別を引く
// aws-lambda-goはerrorTypeにエラーの型名（ポインタの場合は要素の型名）を入れる
var remoteKinds = map[string]string{
	"CounterStoreError":         KindCounterStore,
	"DownstreamInvocationError": KindDownstreamInvocation,
	"MalformedResponseError":    KindMalformedResponse,
}

// ErrorKind はエラーを種別文字列に変換する
// ラップの外側から順に見て、最初に見つかった型付きエラーで判定する
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch e.(type) {
		case *CounterStoreError:
			return KindCounterStore
		case *DownstreamInvocationError:
			return KindDownstreamInvocation
		case *MalformedResponseError:
			return KindMalformedResponse
		}
		if e == ErrMissingPath || e == ErrInvalidRequest {
			return KindBadRequest
		}
	}
	return KindUnknown
}

// RemoteErrorKind はヒットカウンター関数を呼び出した側から見たエラー種別を返す
// 呼び出し先の関数内で発生したエラーは、その関数のエラー種別として扱う
func RemoteErrorKind(err error) string {
	kind := ErrorKind(err)
	if kind != KindDownstreamInvocation {
		return kind
	}

	var downstreamErr *DownstreamInvocationError
	if !errors.As(err, &downstreamErr) {
		return kind
	}
	if remote, ok := remoteKinds[downstreamErr.ErrorType]; ok {
		return remote
	}
	// プロセス内で呼び出した場合は元のエラーがそのまま入っている
	switch inner := ErrorKind(downstreamErr.Err); inner {
	case "", KindUnknown:
		return kind
	default:
		return inner
	}
}
