package main

import (
	"bytes"
	"fmt"
	"hitrelay/cmd"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

func main() {
	docsDir := "./docs"

	// 既存のdocsディレクトリをクリーン
	if err := os.RemoveAll(docsDir); err != nil {
		log.Fatalf("Failed to clean docs directory: %v", err)
	}

	// ディレクトリ作成
	if err := os.MkdirAll(docsDir, 0755); err != nil {
		log.Fatalf("Failed to create docs directory: %v", err)
	}

	// ルートコマンドはdocs/README.mdとして生成
	if err := genSingleMarkdown(cmd.RootCmd, filepath.Join(docsDir, "README.md")); err != nil {
		log.Fatalf("Failed to generate root documentation: %v", err)
	}

	// サブコマンドごとに単一ファイルを生成（子コマンドは同じファイルにまとめる）
	fileCount := 1
	for _, subCmd := range cmd.RootCmd.Commands() {
		if !subCmd.IsAvailableCommand() || subCmd.IsAdditionalHelpTopicCommand() {
			continue
		}

		commands := []*cobra.Command{subCmd}
		for _, childCmd := range subCmd.Commands() {
			if childCmd.IsAvailableCommand() && !childCmd.IsAdditionalHelpTopicCommand() {
				commands = append(commands, childCmd)
			}
		}

		filename := filepath.Join(docsDir, fmt.Sprintf("%s.md", subCmd.Name()))
		if err := genCommandMarkdown(subCmd.Name(), commands, filename); err != nil {
			log.Printf("Failed to generate documentation for %s: %v", subCmd.Name(), err)
			continue
		}
		fileCount++
	}

	fmt.Printf("✅ Documentation generated in %s (%d files)\n", docsDir, fileCount)
}

// customLinkHandler はドキュメント内のリンクをカスタマイズ
func customLinkHandler(name string) string {
	base := strings.TrimSuffix(name, ".md")

	// hitctl -> README
	if base == cmd.AppName {
		return "README.md"
	}

	// hitctl_hits_ls -> hits.md#hitctl-hits-ls
	// hitctl_hits -> hits.md
	parts := strings.Split(base, "_")
	if len(parts) >= 2 && parts[0] == cmd.AppName {
		if len(parts) > 2 {
			return parts[1] + ".md#" + strings.ReplaceAll(base, "_", "-")
		}
		return parts[1] + ".md"
	}

	return name
}

// genSingleMarkdown は単一のコマンドのドキュメントを生成
func genSingleMarkdown(c *cobra.Command, filename string) error {
	buf := new(bytes.Buffer)
	if err := doc.GenMarkdownCustom(c, buf, customLinkHandler); err != nil {
		return err
	}
	return os.WriteFile(filename, []byte(buf.String()), 0644)
}

// genCommandMarkdown はコマンドとその子コマンドを1つのファイルにまとめて生成
func genCommandMarkdown(name string, commands []*cobra.Command, filename string) error {
	var content strings.Builder

	content.WriteString(fmt.Sprintf("# %s Commands\n\n", name))
	content.WriteString("## Table of Contents\n\n")
	for _, c := range commands {
		cmdPath := c.CommandPath()
		content.WriteString(fmt.Sprintf("- [%s](#%s)\n", cmdPath, strings.ReplaceAll(cmdPath, " ", "-")))
	}
	content.WriteString("\n---\n\n")

	for _, c := range commands {
		buf := new(bytes.Buffer)
		if err := doc.GenMarkdownCustom(c, buf, customLinkHandler); err != nil {
			return fmt.Errorf("failed to generate markdown for %s: %w", c.CommandPath(), err)
		}

		cmdDoc := buf.String()
		// versionコマンドはAWS関連のフラグを使わない
		if c.Name() == "version" {
			cmdDoc = removeInheritedFlagsSection(cmdDoc)
		}

		content.WriteString(cmdDoc)
		content.WriteString("\n---\n\n")
	}

	return os.WriteFile(filename, []byte(content.String()), 0644)
}

var inheritedSection = regexp.MustCompile(`(?s)### Options inherited from parent commands\n.*?(\n#{2,5} |\z)`)

// removeInheritedFlagsSection は継承フラグセクションを削除
func removeInheritedFlagsSection(content string) string {
	return inheritedSection.ReplaceAllString(content, "$1")
}
