package cmd

import (
	"fmt"
	"hitrelay/internal/app"
	"hitrelay/internal/invoker"
	"hitrelay/internal/relay"
	invokesvc "hitrelay/internal/service/invoke"
	"strings"

	"github.com/spf13/cobra"
)

// InvokeCmd represents the invoke command
var InvokeCmd = &cobra.Command{
	Use:   "invoke <path>",
	Short: "ヒットカウンター関数を呼び出すコマンド",
	Long: `API Gatewayのプロキシリクエストを組み立ててヒットカウンター関数を同期呼び出しし、
下流関数のレスポンスを表示します。呼び出しごとにパスのヒット数が1増えます。

【使い方】
  ` + AppName + ` invoke /foo -S CdkWorkshopStack
  ` + AppName + ` invoke /foo --method POST -d '{"name":"x"}' -H Content-Type=application/json
  ` + AppName + ` invoke /foo --local                     # AWSを使わずプロセス内で実行`,
	Args: cobra.ExactArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := RootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		if localMode(cmd) {
			return nil
		}
		return requireFunction()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := requestOptions(cmd)
		if err != nil {
			return err
		}

		inv, name, err := relayInvoker(cmd)
		if err != nil {
			return err
		}
		res, err := invokesvc.InvokePath(cmd.Context(), inv, name, args[0], opts)
		if err != nil {
			return err
		}
		invokesvc.DisplayResult(cmd.OutOrStdout(), res)
		return nil
	},
}

// requestOptions はフラグからリクエスト内容を組み立てる
func requestOptions(cmd *cobra.Command) (invokesvc.Options, error) {
	method, _ := cmd.Flags().GetString("method")
	body, _ := cmd.Flags().GetString("data")
	headers, _ := cmd.Flags().GetStringArray("header")

	opts := invokesvc.Options{Method: method, Body: body}
	for _, h := range headers {
		name, value, ok := strings.Cut(h, "=")
		if !ok {
			continue
		}
		if opts.Headers == nil {
			opts.Headers = map[string]string{}
		}
		opts.Headers[name] = value
	}
	return opts, nil
}

// relayInvoker はヒットカウンター関数の呼び出し先と関数名を返す
// --local の場合はメモリ上のカウンターでプロセス内の関数を呼ぶ
func relayInvoker(cmd *cobra.Command) (relay.Invoker, string, error) {
	if !localMode(cmd) {
		return invoker.NewLambdaInvoker(awsClients.Lambda()), functionName, nil
	}
	sys, err := newLocalSystem()
	if err != nil {
		return nil, "", err
	}
	return sys.Functions, app.LocalFunctionName, nil
}

func newLocalSystem() (*app.LocalSystem, error) {
	sys, err := app.NewLocalSystem(logger)
	if err != nil {
		return nil, fmt.Errorf("❌ ローカル実行環境の作成に失敗: %w", err)
	}
	return sys, nil
}

func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("method", "X", "GET", "HTTPメソッド")
	cmd.Flags().StringP("data", "d", "", "リクエストボディ")
	cmd.Flags().StringArrayP("header", "H", nil, "リクエストヘッダー（name=value、複数指定可）")
	cmd.Flags().Bool("local", false, "AWSを使わずメモリ上のカウンターでプロセス内実行する")
}

func init() {
	RootCmd.AddCommand(InvokeCmd)
	addRequestFlags(InvokeCmd)
}
