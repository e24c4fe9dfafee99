package cmd

import (
	"errors"
	logssvc "hitrelay/internal/service/logs"
	"time"

	"github.com/spf13/cobra"
)

// LogsCmd represents the logs command
var LogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "関数のCloudWatch Logsを表示するコマンド",
	Long: `ヒットカウンター関数（または下流関数）のロググループからログイベントを表示します。
JSON形式のログはレベル・メッセージ・パスを1行に整形して表示します。

【使い方】
  ` + AppName + ` logs -S CdkWorkshopStack                    # 直近15分のログ
  ` + AppName + ` logs --downstream --since 1h               # 下流関数の直近1時間のログ
  ` + AppName + ` logs --filter '{ $.error_kind = "counter_store" }'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		downstream, _ := cmd.Flags().GetBool("downstream")
		since, _ := cmd.Flags().GetDuration("since")
		filter, _ := cmd.Flags().GetString("filter")
		limit, _ := cmd.Flags().GetInt("limit")

		name := functionName
		if downstream {
			name = downstreamFunctionName
		}
		if name == "" {
			return errors.New("❌ エラー: 関数名が指定されていません。--function / --downstream-function オプションまたは -S オプションを指定してください")
		}

		events, err := logssvc.FetchEvents(cmd.Context(), awsClients.Logs(), logssvc.FetchOptions{
			FunctionName: name,
			Since:        since,
			Filter:       filter,
			Limit:        limit,
		}, time.Now())
		if err != nil {
			return err
		}

		logssvc.DisplayEvents(cmd.OutOrStdout(), name, events)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(LogsCmd)
	LogsCmd.Flags().Bool("downstream", false, "下流関数のログを表示")
	LogsCmd.Flags().Duration("since", 15*time.Minute, "表示する期間")
	LogsCmd.Flags().String("filter", "", "CloudWatch Logsのフィルターパターン")
	LogsCmd.Flags().IntP("limit", "n", 100, "表示件数の上限（0は無制限）")
}
