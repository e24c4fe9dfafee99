// Package config はLambda関数の設定を環境変数から読み込む
package config

import (
	"context"
	"errors"
	"fmt"
	"hitrelay/internal/relay"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/spf13/viper"
)

// 環境変数名（CDKのHitCounterコンストラクトが設定するものと同じ）
const (
	EnvTableName              = "HITS_TABLE_NAME"
	EnvDownstreamFunctionName = "DOWNSTREAM_FUNCTION_NAME"
	EnvLogLevel               = "LOG_LEVEL"
	EnvMetricsSink            = "METRICS_SINK"
	EnvMetricsNamespace       = "METRICS_NAMESPACE"
	EnvAgentHost              = "DD_AGENT_HOST"
	EnvStatsdPort             = "DD_DOGSTATSD_PORT"
	EnvTraceEnabled           = "DD_TRACE_ENABLED"
	EnvService                = "DD_SERVICE"
)

// メトリクスの送信先
const (
	SinkStatsd     = "statsd"
	SinkCloudWatch = "cloudwatch"
	SinkNone       = "none"
)

// ssmPrefix が付いた値はSSMパラメータ名として解決する
const ssmPrefix = "ssm:"

// Observability はログ・トレース・メトリクスの設定（全関数共通）
type Observability struct {
	LogLevel         string
	MetricsSink      string
	MetricsNamespace string
	AgentHost        string
	StatsdPort       string
	TraceEnabled     bool
	Service          string
}

// Function はヒットカウンター関数の設定
type Function struct {
	Observability
	TableName              string
	DownstreamFunctionName string
}

// SSMAPI は設定の解決に使うSSMクライアントのメソッド
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// NewViper はデフォルト値を設定したviperを返す
func NewViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault(EnvLogLevel, "info")
	v.SetDefault(EnvMetricsSink, SinkStatsd)
	v.SetDefault(EnvMetricsNamespace, "HitCounter")
	v.SetDefault(EnvAgentHost, "localhost")
	v.SetDefault(EnvStatsdPort, "8125")
	v.SetDefault(EnvTraceEnabled, true)
	v.SetDefault(EnvService, "hitcounter")
	return v
}

// LoadObservability は共通の観測設定を読み込む
func LoadObservability(v *viper.Viper) (Observability, error) {
	o := Observability{
		LogLevel:         v.GetString(EnvLogLevel),
		MetricsSink:      strings.ToLower(v.GetString(EnvMetricsSink)),
		MetricsNamespace: v.GetString(EnvMetricsNamespace),
		AgentHost:        v.GetString(EnvAgentHost),
		StatsdPort:       v.GetString(EnvStatsdPort),
		TraceEnabled:     v.GetBool(EnvTraceEnabled),
		Service:          v.GetString(EnvService),
	}
	return o, o.Validate()
}

// Validate は観測設定を検証する
func (o Observability) Validate() error {
	switch o.MetricsSink {
	case SinkStatsd, SinkCloudWatch, SinkNone:
		return nil
	default:
		return fmt.Errorf("%s の値が不正です: %q", EnvMetricsSink, o.MetricsSink)
	}
}

// Load は環境変数からヒットカウンター関数の設定を読み込む
func Load(v *viper.Viper) (Function, error) {
	obs, obsErr := LoadObservability(v)
	cfg := Function{
		Observability:          obs,
		TableName:              strings.TrimSpace(v.GetString(EnvTableName)),
		DownstreamFunctionName: strings.TrimSpace(v.GetString(EnvDownstreamFunctionName)),
	}
	return cfg, errors.Join(obsErr, cfg.validateNames())
}

// Validate は設定値を検証する
func (c Function) Validate() error {
	return errors.Join(c.Observability.Validate(), c.validateNames())
}

func (c Function) validateNames() error {
	var errs []error
	if c.TableName == "" {
		errs = append(errs, fmt.Errorf("環境変数 %s が設定されていません", EnvTableName))
	}
	if c.DownstreamFunctionName == "" {
		errs = append(errs, fmt.Errorf("環境変数 %s が設定されていません", EnvDownstreamFunctionName))
	}
	return errors.Join(errs...)
}

// NeedsSSM はSSMで解決する値が含まれているか返す
func (c Function) NeedsSSM() bool {
	return strings.HasPrefix(c.TableName, ssmPrefix) || strings.HasPrefix(c.DownstreamFunctionName, ssmPrefix)
}

// ResolveSSM は "ssm:/name" 形式の値をパラメータの値に置き換える
// 起動時に1回だけ呼び、リクエストごとには解決しない
func (c Function) ResolveSSM(ctx context.Context, client SSMAPI) (Function, error) {
	var err error
	if c.TableName, err = resolve(ctx, client, c.TableName); err != nil {
		return c, err
	}
	if c.DownstreamFunctionName, err = resolve(ctx, client, c.DownstreamFunctionName); err != nil {
		return c, err
	}
	return c, nil
}

func resolve(ctx context.Context, client SSMAPI, value string) (string, error) {
	name, ok := strings.CutPrefix(value, ssmPrefix)
	if !ok {
		return value, nil
	}
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("SSMパラメータ %s の取得に失敗: %w", name, err)
	}
	if out.Parameter == nil || aws.ToString(out.Parameter.Value) == "" {
		return "", fmt.Errorf("SSMパラメータ %s の値が空です", name)
	}
	return aws.ToString(out.Parameter.Value), nil
}

// RelayConfig はリレーに渡す設定を返す
func (c Function) RelayConfig() relay.Config {
	return relay.Config{
		TableName:              c.TableName,
		DownstreamFunctionName: c.DownstreamFunctionName,
	}
}
