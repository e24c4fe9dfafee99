package store

import (
	"context"
	"errors"
	"fmt"
	"hitrelay/internal/relay"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// テーブルの属性名（CDKのHitCounterコンストラクトと同じ）
const (
	PathAttribute = "path"
	HitsAttribute = "hits"
)

// DynamoAPI はDynamoCounterStoreが使うDynamoDBクライアントのメソッド
type DynamoAPI interface {
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoCounterStore はDynamoDBテーブルにヒット数を保存する
type DynamoCounterStore struct {
	client    DynamoAPI
	tableName string
}

// NewDynamoCounterStore は新しいDynamoCounterStoreを作成
func NewDynamoCounterStore(client DynamoAPI, tableName string) *DynamoCounterStore {
	return &DynamoCounterStore{client: client, tableName: tableName}
}

// TableName はテーブル名を返す
func (s *DynamoCounterStore) TableName() string {
	return s.tableName
}

// Increment はUpdateItemの ADD 式でヒット数を加算する
// ADD は項目が存在しない場合も0から加算するため、読み込み→書き込みは不要
func (s *DynamoCounterStore) Increment(ctx context.Context, key string, amount int64) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			PathAttribute: &types.AttributeValueMemberS{Value: key},
		},
		UpdateExpression: aws.String("ADD #hits :incr"),
		ExpressionAttributeNames: map[string]string{
			"#hits": HitsAttribute,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":incr": &types.AttributeValueMemberN{Value: strconv.FormatInt(amount, 10)},
		},
	})
	if err != nil {
		return &relay.CounterStoreError{Key: key, Code: errorCode(err), Err: err}
	}
	return nil
}

// Get は指定パスのヒット数を取得する
// 項目が存在しない場合は0件として返す
func (s *DynamoCounterStore) Get(ctx context.Context, path string) (Hit, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			PathAttribute: &types.AttributeValueMemberS{Value: path},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return Hit{}, fmt.Errorf("ヒット数の取得に失敗 (%s): %w", path, err)
	}
	if out.Item == nil {
		return Hit{Path: path}, nil
	}
	return hitFromItem(out.Item)
}

// List はテーブル全体をスキャンしてヒット数一覧を返す
func (s *DynamoCounterStore) List(ctx context.Context) ([]Hit, error) {
	var hits []Hit
	var startKey map[string]types.AttributeValue

	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("ヒット数一覧の取得に失敗: %w", err)
		}

		for _, item := range out.Items {
			hit, err := hitFromItem(item)
			if err != nil {
				return nil, err
			}
			hits = append(hits, hit)
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	return hits, nil
}

func hitFromItem(item map[string]types.AttributeValue) (Hit, error) {
	pathAttr, ok := item[PathAttribute].(*types.AttributeValueMemberS)
	if !ok {
		return Hit{}, fmt.Errorf("項目に %s 属性がありません", PathAttribute)
	}
	hit := Hit{Path: pathAttr.Value}

	// ヒット数属性がない項目は0とみなす
	hitsAttr, ok := item[HitsAttribute].(*types.AttributeValueMemberN)
	if !ok {
		return hit, nil
	}
	n, err := strconv.ParseInt(hitsAttr.Value, 10, 64)
	if err != nil {
		return Hit{}, fmt.Errorf("ヒット数の値が不正 (%s=%s): %w", hit.Path, hitsAttr.Value, err)
	}
	hit.Hits = n
	return hit, nil
}

// errorCode はAWS APIエラーからエラーコードを取り出す
func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
