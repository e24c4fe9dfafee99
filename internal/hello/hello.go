// Package hello はヒットカウンターの下流で動く最小のハンドラー
package hello

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
)

// Handle はアクセスされたパスを含む挨拶を返す
func Handle(_ context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return events.APIGatewayProxyResponse{
		StatusCode: 200,
		Headers: map[string]string{
			"Content-Type": "text/plain",
		},
		Body: Greeting(request.Path),
	}, nil
}

// Greeting はレスポンス本文を組み立てる
func Greeting(path string) string {
	return fmt.Sprintf("Hello, World! You've hit %q.\n", path)
}
