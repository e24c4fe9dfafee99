package aws

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Clients はAWS設定と各サービスクライアントを管理
// Lambdaの初期化時に1回作成し、呼び出し間で使い回す
type Clients struct {
	cfg aws.Config
	mu  sync.Mutex

	// 遅延初期化されるクライアント群
	dynamo     *dynamodb.Client
	lambda     *lambda.Client
	cloudWatch *cloudwatch.Client
	logs       *cloudwatchlogs.Client
	cfn        *cloudformation.Client
	ssm        *ssm.Client
}

// NewAwsClients は認証情報からAWS設定を読み込んでクライアント管理構造体を作成
func NewAwsClients(ctx context.Context, awsCtx Context) (*Clients, error) {
	cfg, err := LoadAwsConfig(ctx, awsCtx)
	if err != nil {
		return nil, err
	}

	return NewAwsClientsFromConfig(cfg), nil
}

// NewAwsClientsFromConfig は読み込み済みのAWS設定からクライアント管理構造体を作成
func NewAwsClientsFromConfig(cfg aws.Config) *Clients {
	return &Clients{cfg: cfg}
}

// Config はAWS設定を返す
func (c *Clients) Config() aws.Config {
	return c.cfg
}

// Dynamo は遅延初期化でDynamoDBクライアントを取得
func (c *Clients) Dynamo() *dynamodb.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dynamo == nil {
		c.dynamo = dynamodb.NewFromConfig(c.cfg)
	}
	return c.dynamo
}

// Lambda は遅延初期化でLambdaクライアントを取得
func (c *Clients) Lambda() *lambda.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lambda == nil {
		c.lambda = lambda.NewFromConfig(c.cfg)
	}
	return c.lambda
}

// CloudWatch は遅延初期化でCloudWatchクライアントを取得
func (c *Clients) CloudWatch() *cloudwatch.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cloudWatch == nil {
		c.cloudWatch = cloudwatch.NewFromConfig(c.cfg)
	}
	return c.cloudWatch
}

// Logs は遅延初期化でCloudWatch Logsクライアントを取得
func (c *Clients) Logs() *cloudwatchlogs.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.logs == nil {
		c.logs = cloudwatchlogs.NewFromConfig(c.cfg)
	}
	return c.logs
}

// Cfn は遅延初期化でCloudFormationクライアントを取得
func (c *Clients) Cfn() *cloudformation.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfn == nil {
		c.cfn = cloudformation.NewFromConfig(c.cfg)
	}
	return c.cfn
}

// Ssm は遅延初期化でSSMクライアントを取得
func (c *Clients) Ssm() *ssm.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ssm == nil {
		c.ssm = ssm.NewFromConfig(c.cfg)
	}
	return c.ssm
}
