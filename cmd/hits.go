package cmd

import (
	hitssvc "hitrelay/internal/service/hits"

	"github.com/spf13/cobra"
)

// HitsCmd represents the hits command
var HitsCmd = &cobra.Command{
	Use:   "hits",
	Short: "ヒット数の確認コマンド",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := RootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return requireTable()
	},
}

// hitsLsCmd represents the ls command
var hitsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "パスごとのヒット数一覧を表示するコマンド",
	Long: `DynamoDBテーブルに記録されたパスごとのヒット数を一覧表示します。

【使い方】
  ` + AppName + ` hits ls -S CdkWorkshopStack            # ヒット数の多い順に表示
  ` + AppName + ` hits ls --table HitsTable --sort path  # パス順に表示
  ` + AppName + ` hits ls -f "/api/*"                    # パターンに一致するパスのみ表示

【例】
  ` + AppName + ` hits ls -f "/{foo,bar}/**" -n 10
  → /foo と /bar 配下のパスのうち上位10件を表示します。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, _ := cmd.Flags().GetString("filter")
		sortBy, _ := cmd.Flags().GetString("sort")
		limit, _ := cmd.Flags().GetInt("limit")

		opts := hitssvc.ListOptions{Filter: filter, SortBy: sortBy, Limit: limit}
		counter := newDynamoStore()
		hits, err := hitssvc.ListHits(cmd.Context(), counter, opts)
		if err != nil {
			return err
		}

		hitssvc.DisplayHits(cmd.OutOrStdout(), counter.TableName(), hits, opts)
		return nil
	},
}

// hitsGetCmd represents the get command
var hitsGetCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "指定パスのヒット数を表示するコマンド",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hit, err := hitssvc.GetHit(cmd.Context(), newDynamoStore(), args[0])
		if err != nil {
			return err
		}
		hitssvc.DisplayHit(cmd.OutOrStdout(), hit)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(HitsCmd)
	HitsCmd.AddCommand(hitsLsCmd)
	HitsCmd.AddCommand(hitsGetCmd)

	hitsLsCmd.Flags().StringP("filter", "f", "", "パスのフィルターパターン（ワイルドカード対応）")
	hitsLsCmd.Flags().String("sort", hitssvc.SortHits, "並び順（hits または path）")
	hitsLsCmd.Flags().IntP("limit", "n", 0, "表示件数の上限（0は無制限）")
}
