package cmd

import (
	statssvc "hitrelay/internal/service/stats"
	"time"

	"github.com/spf13/cobra"
)

// MetricsCmd represents the metrics command
var MetricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "CloudWatchのヒット数メトリクスを集計するコマンド",
	Long: `METRICS_SINK=cloudwatch で送信されたヒット数メトリクスをパスごとに合計して表示します。

【使い方】
  ` + AppName + ` metrics                       # 直近1時間の全パス
  ` + AppName + ` metrics --since 24h -p /foo   # 直近24時間の /foo`,
	RunE: func(cmd *cobra.Command, args []string) error {
		namespace, _ := cmd.Flags().GetString("namespace")
		since, _ := cmd.Flags().GetDuration("since")
		path, _ := cmd.Flags().GetString("path")

		opts := statssvc.Options{Namespace: namespace, Since: since, Path: path}
		sums, err := statssvc.SumHits(cmd.Context(), awsClients.CloudWatch(), opts, time.Now())
		if err != nil {
			return err
		}

		statssvc.DisplaySums(cmd.OutOrStdout(), opts, sums)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(MetricsCmd)
	MetricsCmd.Flags().String("namespace", "HitCounter", "CloudWatchメトリクスの名前空間")
	MetricsCmd.Flags().Duration("since", time.Hour, "集計する期間")
	MetricsCmd.Flags().StringP("path", "p", "", "集計するパス（省略時は全パス）")
}
