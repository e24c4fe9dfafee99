package invoker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hitrelay/internal/relay"

	"github.com/aws/aws-sdk-go-v2/aws"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/smithy-go"
)

// LambdaAPI はLambdaInvokerが使うLambdaクライアントのメソッド
type LambdaAPI interface {
	Invoke(ctx context.Context, params *awslambda.InvokeInput, optFns ...func(*awslambda.Options)) (*awslambda.InvokeOutput, error)
}

// LambdaInvoker はLambda関数を同期呼び出し（RequestResponse）する
type LambdaInvoker struct {
	client LambdaAPI
}

// NewLambdaInvoker は新しいLambdaInvokerを作成
func NewLambdaInvoker(client LambdaAPI) *LambdaInvoker {
	return &LambdaInvoker{client: client}
}

// functionErrorPayload はLambdaが関数エラー時に返すペイロード
type functionErrorPayload struct {
	ErrorMessage string `json:"errorMessage"`
	ErrorType    string `json:"errorType"`
}

// Invoke は関数を呼び出してペイロードを返す
// FunctionError が設定されている場合は関数内で失敗したとみなす
func (i *LambdaInvoker) Invoke(ctx context.Context, name string, payload []byte) ([]byte, error) {
	out, err := i.client.Invoke(ctx, &awslambda.InvokeInput{
		FunctionName:   aws.String(name),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		return nil, &relay.DownstreamInvocationError{Function: name, Err: withCode(err)}
	}

	if fnErr := aws.ToString(out.FunctionError); fnErr != "" {
		return nil, &relay.DownstreamInvocationError{
			Function:      name,
			FunctionError: fnErr,
			ErrorType:     functionErrorType(out.Payload),
			Err:           errors.New(functionErrorMessage(out.Payload)),
		}
	}

	if out.StatusCode < 200 || out.StatusCode > 299 {
		return nil, &relay.DownstreamInvocationError{
			Function: name,
			Err:      fmt.Errorf("想定外のステータスコード: %d", out.StatusCode),
		}
	}

	return out.Payload, nil
}

// functionErrorMessage はエラーペイロードからメッセージを取り出す
func functionErrorMessage(payload []byte) string {
	var p functionErrorPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.ErrorMessage == "" {
		if len(payload) == 0 {
			return "関数がエラーを返しました"
		}
		return string(payload)
	}
	if p.ErrorType != "" {
		return fmt.Sprintf("%s: %s", p.ErrorType, p.ErrorMessage)
	}
	return p.ErrorMessage
}

// functionErrorType はエラーペイロードからerrorTypeを取り出す
func functionErrorType(payload []byte) string {
	var p functionErrorPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return ""
	}
	return p.ErrorType
}

// withCode はAWS APIエラーのコードをメッセージに含める
func withCode(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %w", apiErr.ErrorCode(), err)
	}
	return err
}
