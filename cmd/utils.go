package cmd

import (
	"fmt"
	"hitrelay/internal/store"
	"os"
)

// resolveStackName はコマンドライン引数または環境変数からスタック名を決定し、グローバル変数 stackName にセットする
func resolveStackName() {
	if stackName != "" {
		logger.Debug("-Sオプションで指定されたスタック名 '" + stackName + "' を使用します")
		return
	}
	envStack := os.Getenv("AWS_STACK_NAME")
	if envStack != "" {
		fmt.Fprintln(os.Stderr, "🔍 環境変数 AWS_STACK_NAME の値 '"+envStack+"' を使用します")
		stackName = envStack
	}
	// どちらもなければstackNameは空のまま
}

// newDynamoStore はヒット数参照用のストアを作る
func newDynamoStore() *store.DynamoCounterStore {
	return store.NewDynamoCounterStore(awsClients.Dynamo(), tableName)
}
