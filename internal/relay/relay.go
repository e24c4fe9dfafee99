// Package relay はリクエストパスごとのヒット数を加算してから下流関数へ転送する
// ヒットカウンターの中核ロジックを提供します。
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
)

// CounterStore はキー単位でアトミックに加算できる永続カウンター
// レコードが存在しない場合は0から加算される（upsert）
type CounterStore interface {
	Increment(ctx context.Context, key string, amount int64) error
}

// Invoker は名前で指定した関数を同期的に呼び出してレスポンスを返す
type Invoker interface {
	Invoke(ctx context.Context, name string, payload []byte) ([]byte, error)
}

// Config はリレーの起動時に渡す設定
type Config struct {
	TableName              string // ヒット数を保存するテーブル名
	DownstreamFunctionName string // 転送先の関数名
}

// Validate は必須項目が揃っているか確認する
func (c Config) Validate() error {
	if c.TableName == "" {
		return errors.New("テーブル名が指定されていません")
	}
	if c.DownstreamFunctionName == "" {
		return errors.New("下流関数名が指定されていません")
	}
	return nil
}

// Request は受信したリクエスト
// Payload は受信したJSONそのもので、下流へはこのまま転送される
type Request struct {
	Path    string
	Payload json.RawMessage
}

// Response は下流関数のレスポンス
// Raw は下流が返したバイト列そのもの
type Response struct {
	events.APIGatewayProxyResponse
	Raw json.RawMessage `json:"-"`
}

// ParseRequest は受信ペイロードからRequestを組み立てる
func ParseRequest(payload []byte) (Request, error) {
	var head struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if head.Path == "" {
		return Request{}, ErrMissingPath
	}
	return Request{Path: head.Path, Payload: payload}, nil
}

// NewRequest はAPI Gatewayのプロキシリクエストから転送用のRequestを作る
func NewRequest(req events.APIGatewayProxyRequest) (Request, error) {
	if req.Path == "" {
		return Request{}, ErrMissingPath
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return Request{Path: req.Path, Payload: payload}, nil
}

// Relay はヒット数を加算してから下流関数を呼び出す
// 呼び出し間で状態を持たないため、複数のgoroutineから同時に使える
type Relay struct {
	cfg     Config
	store   CounterStore
	invoker Invoker
}

// New は新しいRelayを作成
func New(cfg Config, store CounterStore, invoker Invoker) (*Relay, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil || invoker == nil {
		return nil, errors.New("CounterStoreとInvokerは必須です")
	}
	return &Relay{cfg: cfg, store: store, invoker: invoker}, nil
}

// Config はリレーの設定を返す
func (r *Relay) Config() Config {
	return r.cfg
}

// Handle はヒット数を1加算し、下流関数のレスポンスをそのまま返す
//
// 加算に失敗した場合は下流を呼び出さずに *CounterStoreError を返す。
// 下流の呼び出しに失敗しても加算は取り消さない。
func (r *Relay) Handle(ctx context.Context, req Request) (Response, error) {
	if req.Path == "" {
		return Response{}, ErrMissingPath
	}

	// ヒット数を更新
	if err := r.store.Increment(ctx, req.Path, 1); err != nil {
		var counterErr *CounterStoreError
		if errors.As(err, &counterErr) {
			return Response{}, err
		}
		return Response{}, &CounterStoreError{Key: req.Path, Err: err}
	}

	// 下流の関数を呼び出し
	out, err := r.invoker.Invoke(ctx, r.cfg.DownstreamFunctionName, req.Payload)
	if err != nil {
		var downstreamErr *DownstreamInvocationError
		if errors.As(err, &downstreamErr) {
			return Response{}, err
		}
		return Response{}, &DownstreamInvocationError{Function: r.cfg.DownstreamFunctionName, Err: err}
	}

	return ParseResponse(out)
}

// Invoke はlambda.Handlerとして生のペイロードを受け取り、下流のペイロードをそのまま返す
func (r *Relay) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := ParseRequest(payload)
	if err != nil {
		return nil, err
	}
	resp, err := r.Handle(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Raw, nil
}

// ParseResponse は下流のペイロードをプロキシレスポンスとして解釈する
// statusCode のないレスポンスはAPI Gatewayが扱えないため不正とみなす
func ParseResponse(out []byte) (Response, error) {
	var proxy events.APIGatewayProxyResponse
	if err := json.Unmarshal(out, &proxy); err != nil {
		return Response{}, &MalformedResponseError{Payload: out, Err: err}
	}
	if proxy.StatusCode == 0 {
		return Response{}, &MalformedResponseError{Payload: out, Err: errors.New("statusCode がありません")}
	}
	return Response{APIGatewayProxyResponse: proxy, Raw: out}, nil
}
