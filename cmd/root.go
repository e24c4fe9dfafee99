package cmd

import (
	"context"
	"errors"
	"fmt"
	"hitrelay/internal/aws"
	"hitrelay/internal/logging"
	"hitrelay/internal/service/cfn"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// AppName はコマンド名
const AppName = "hitctl"

var region string
var profile string
var stackName string
var verbose bool

// 操作対象のリソース名（フラグ・環境変数・スタックから決定）
var tableName string
var functionName string
var downstreamFunctionName string

var awsCtx aws.Context
var awsClients *aws.Clients
var logger *logrus.Logger

// flagEnv はフラグと環境変数（HITCTL_ プレフィックス）を束ねる
var flagEnv = viper.New()

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   AppName,
	Short: "ヒットカウンターの操作・確認ツール",
	Long: `ヒットカウンター（HitCounter + hello関数）の状態を確認・操作するCLIツールです。

リソース名は --table / --function / --downstream-function で指定するか、
-S でCloudFormationスタック名を指定すると自動で検出します。`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := RootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&region, "region", "R", "ap-northeast-1", "AWSリージョン")
	RootCmd.PersistentFlags().StringVarP(&profile, "profile", "P", "", "AWSプロファイル")
	RootCmd.PersistentFlags().StringVarP(&stackName, "stack", "S", "", "CloudFormationスタック名")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "詳細ログを表示")
	RootCmd.PersistentFlags().String("table", "", "ヒット数を保存するDynamoDBテーブル名")
	RootCmd.PersistentFlags().String("function", "", "ヒットカウンター関数名")
	RootCmd.PersistentFlags().String("downstream-function", "", "下流の関数名")

	flagEnv.SetEnvPrefix("HITCTL")
	flagEnv.AutomaticEnv()
	for _, name := range []string{"table", "function", "downstream-function"} {
		_ = flagEnv.BindPFlag(name, RootCmd.PersistentFlags().Lookup(name))
	}
	_ = flagEnv.BindEnv("downstream-function", "HITCTL_DOWNSTREAM_FUNCTION")

	// コマンド実行前に共通でプロファイルチェックとクライアント生成を行う
	RootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logger = logging.NewText(cmd.ErrOrStderr(), verbose)

		// ヘルプ・バージョン表示・補完の場合はスキップ
		switch cmd.Name() {
		case "help", "version", "completion", cobra.ShellCompRequestCmd:
			return nil
		}
		// ローカル実行ではAWSに接続しない
		if localMode(cmd) {
			return nil
		}
		checkAndSetProfile(cmd)

		awsCtx = aws.Context{Profile: profile, Region: region}
		var err error
		awsClients, err = aws.NewAwsClients(cmd.Context(), awsCtx)
		if err != nil {
			return fmt.Errorf("❌ AWS設定の読み込みに失敗: %w", err)
		}

		tableName = flagEnv.GetString("table")
		functionName = flagEnv.GetString("function")
		downstreamFunctionName = flagEnv.GetString("downstream-function")
		return resolveResourceNames(cmd.Context())
	}
}

// checkAndSetProfile はプロファイルの確認と設定を行うプライベート関数
// 見つからない場合はデフォルトの認証情報チェーンを使う
func checkAndSetProfile(cmd *cobra.Command) {
	// プロファイルがすでに指定されている場合は何もしない
	if profile != "" {
		return
	}
	// 環境変数からプロファイル取得を試みる
	envProfile := os.Getenv("AWS_PROFILE")
	if envProfile == "" {
		logger.Debug("プロファイル未指定のためデフォルトの認証情報を使用します")
		return
	}
	profile = envProfile
	cmd.PrintErrln("🔍 環境変数 AWS_PROFILE の値 '" + profile + "' を使用します")
}

// resolveResourceNames はフラグで指定されていないリソース名をスタックから補う
func resolveResourceNames(ctx context.Context) error {
	resolveStackName()
	if stackName == "" || (tableName != "" && functionName != "" && downstreamFunctionName != "") {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	found, err := cfn.FindHitCounterResources(ctx, awsClients.Cfn(), stackName)
	if tableName == "" {
		tableName = found.TableName
	}
	if functionName == "" {
		functionName = found.FunctionName
	}
	if downstreamFunctionName == "" {
		downstreamFunctionName = found.DownstreamFunctionName
	}
	if err != nil && (tableName == "" || functionName == "") {
		return fmt.Errorf("❌ スタックからリソースを検出できませんでした: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"stack":               stackName,
		"table":               tableName,
		"function":            functionName,
		"downstream_function": downstreamFunctionName,
	}).Debug("スタックからリソース名を解決しました")
	return nil
}

// localMode は --local が指定されているか返す
func localMode(cmd *cobra.Command) bool {
	local, err := cmd.Flags().GetBool("local")
	return err == nil && local
}

// requireTable はテーブル名が決まっていることを確認する
func requireTable() error {
	if tableName == "" {
		return errors.New("❌ エラー: テーブル名が指定されていません。--table オプションまたは -S オプションを指定してください")
	}
	return nil
}

// requireFunction はヒットカウンター関数名が決まっていることを確認する
func requireFunction() error {
	if functionName == "" {
		return errors.New("❌ エラー: 関数名が指定されていません。--function オプションまたは -S オプションを指定してください")
	}
	return nil
}
