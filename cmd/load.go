package cmd

import (
	"hitrelay/internal/app"
	"hitrelay/internal/invoker"
	"hitrelay/internal/relay"
	invokesvc "hitrelay/internal/service/invoke"
	"hitrelay/internal/store"

	"github.com/spf13/cobra"
)

// LoadCmd represents the load command
var LoadCmd = &cobra.Command{
	Use:   "load <path>",
	Short: "ヒットカウンター関数を並列に呼び出して加算を検証するコマンド",
	Long: `同じパスに対してヒットカウンター関数を並列に呼び出し、
呼び出し前後のヒット数の増分が呼び出し回数と一致するか確認します。

【使い方】
  ` + AppName + ` load /foo -n 100 -c 10 -S CdkWorkshopStack
  ` + AppName + ` load /foo -n 100 --local              # AWSを使わずプロセス内で実行`,
	Args: cobra.ExactArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := RootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		if localMode(cmd) {
			return nil
		}
		if err := requireTable(); err != nil {
			return err
		}
		return requireFunction()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		requests, _ := cmd.Flags().GetInt("requests")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		reqOpts, err := requestOptions(cmd)
		if err != nil {
			return err
		}

		var inv relay.Invoker
		var reader store.Reader
		name := functionName
		if localMode(cmd) {
			sys, err := newLocalSystem()
			if err != nil {
				return err
			}
			inv, reader, name = sys.Functions, sys.Store, app.LocalFunctionName
		} else {
			inv, reader = invoker.NewLambdaInvoker(awsClients.Lambda()), newDynamoStore()
		}

		res, err := invokesvc.Load(cmd.Context(), inv, reader, name, args[0], invokesvc.LoadOptions{
			Requests:    requests,
			Concurrency: concurrency,
			Request:     reqOpts,
			Progress:    cmd.ErrOrStderr(),
		})
		if res.Requests > 0 && res.Succeeded+res.Failed > 0 {
			invokesvc.DisplayLoadResult(cmd.OutOrStdout(), res)
		}
		return err
	},
}

func init() {
	RootCmd.AddCommand(LoadCmd)
	LoadCmd.Flags().IntP("requests", "n", 10, "呼び出し回数")
	LoadCmd.Flags().IntP("concurrency", "c", 5, "最大並列数")
	addRequestFlags(LoadCmd)
}
