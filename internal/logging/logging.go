// Package logging はlogrusロガーの生成をまとめる
package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewJSON はLambda用のJSONロガーを作る
// CloudWatch Logsでフィールド検索できるようにJSONで出力する
func NewJSON(out io.Writer, level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyMsg: "message",
		},
	})
	logger.SetLevel(ParseLevel(level))
	return logger
}

// NewText はCLI用のテキストロガーを作る
func NewText(out io.Writer, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}
	return logger
}

// ParseLevel はレベル文字列を変換する。不正な値はinfoとして扱う
func ParseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
