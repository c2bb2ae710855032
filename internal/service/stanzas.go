package service

import (
	"strconv"
	"strings"

	"storybook/internal/model"
)

// ExtractTitle 从脚本中取标题行（"Title: xxx"），没有则返回空串
func ExtractTitle(script string) string {
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "Title:") {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "Title:"))
		}
	}
	return ""
}

// SplitStanzas 把脚本按"Stanza"标题行切成节。
// 不足12节用占位文本补齐，超出12节截断，保证每页都有文字。
// 脚本结构不标准时不报错，切出来什么算什么，交给用户编辑。
func SplitStanzas(script string) []string {
	lines := strings.Split(script, "\n")

	var stanzas []string
	var current strings.Builder
	inStanza := false

	flush := func() {
		if inStanza && strings.TrimSpace(current.String()) != "" {
			stanzas = append(stanzas, strings.TrimSpace(current.String()))
		}
		current.Reset()
	}

	for _, line := range lines {
		if strings.Contains(line, "Stanza") {
			flush()
			inStanza = true
			continue
		}
		if inStanza {
			current.WriteString(line)
			current.WriteString(" ")
		}
	}
	flush()

	for len(stanzas) < model.PageCount {
		stanzas = append(stanzas, "Empty page")
	}
	return stanzas[:model.PageCount]
}

// FormatScriptPages 把"Stanza n"标题改写为"Page n"，用于展示
func FormatScriptPages(script string) []string {
	lines := strings.Split(script, "\n")
	out := make([]string, 0, len(lines))
	page := 1
	for _, line := range lines {
		if strings.Contains(line, "Stanza") {
			out = append(out, "Page "+strconv.Itoa(page))
			page++
			continue
		}
		out = append(out, line)
	}
	return out
}
