package cfn

import (
	"context"
	"errors"
	"fmt"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
)

// CloudFormationリソースタイプ
const (
	ResourceTypeTable    = "AWS::DynamoDB::Table"
	ResourceTypeFunction = "AWS::Lambda::Function"
)

// 論理IDに含まれるコンストラクト名
const (
	relayLogicalID      = "HitCounterHandler"
	downstreamLogicalID = "HelloHandler"
)

// API はスタックのリソース取得に使うメソッド
type API interface {
	DescribeStackResources(ctx context.Context, params *cloudformation.DescribeStackResourcesInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStackResourcesOutput, error)
}

// HitCounterResources はスタック内のヒットカウンター関連リソースの物理名
type HitCounterResources struct {
	TableName              string
	FunctionName           string
	DownstreamFunctionName string
}

// GetStackResources はスタックからリソース一覧を取得する関数
func GetStackResources(ctx context.Context, client API, stackName string) ([]types.StackResource, error) {
	resp, err := client.DescribeStackResources(ctx, &cloudformation.DescribeStackResourcesInput{
		StackName: awssdk.String(stackName),
	})
	if err != nil {
		return nil, fmt.Errorf("CloudFormationスタックのリソース取得に失敗: %w", err)
	}

	// スタック存在確認
	if len(resp.StackResources) == 0 {
		return nil, fmt.Errorf("スタック '%s' にリソースが見つかりませんでした", stackName)
	}

	return resp.StackResources, nil
}

// FindHitCounterResources はスタックからテーブルと2つのLambda関数の物理名を探す
// テーブルは最初に見つかったDynamoDBテーブル、関数は論理IDで判別する
func FindHitCounterResources(ctx context.Context, client API, stackName string) (HitCounterResources, error) {
	var result HitCounterResources

	stackResources, err := GetStackResources(ctx, client, stackName)
	if err != nil {
		return result, err
	}

	for _, resource := range stackResources {
		if resource.PhysicalResourceId == nil {
			continue
		}
		physicalID := *resource.PhysicalResourceId
		logicalID := awssdk.ToString(resource.LogicalResourceId)

		switch awssdk.ToString(resource.ResourceType) {
		case ResourceTypeTable:
			if result.TableName == "" {
				result.TableName = physicalID
			}
		case ResourceTypeFunction:
			switch {
			case strings.Contains(logicalID, relayLogicalID):
				result.FunctionName = physicalID
			case strings.Contains(logicalID, downstreamLogicalID):
				result.DownstreamFunctionName = physicalID
			}
		}
	}

	var errs []error
	if result.TableName == "" {
		errs = append(errs, fmt.Errorf("スタック '%s' にDynamoDBテーブルが見つかりませんでした", stackName))
	}
	if result.FunctionName == "" {
		errs = append(errs, fmt.Errorf("スタック '%s' にヒットカウンター関数が見つかりませんでした", stackName))
	}
	return result, errors.Join(errs...)
}
