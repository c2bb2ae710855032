package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storybook/internal/model"
)

func sampleScript(stanzas int) string {
	var b strings.Builder
	b.WriteString("Title: The Magic of the Stars\n\n")
	for i := 1; i <= stanzas; i++ {
		fmt.Fprintf(&b, "Stanza %d\n", i)
		fmt.Fprintf(&b, "Line one of stanza %d,\n", i)
		b.WriteString("A second rhyming line,\n")
		fmt.Fprintf(&b, "Line three of stanza %d,\n", i)
		b.WriteString("A fourth to close in time.\n\n")
	}
	return b.String()
}

func TestExtractTitle(t *testing.T) {
	assert.Equal(t, "The Magic of the Stars", ExtractTitle(sampleScript(12)))
	assert.Equal(t, "Indented", ExtractTitle("  Title: Indented  \nrest"))
	assert.Equal(t, "", ExtractTitle("no title here\nStanza 1\nline"))
	assert.Equal(t, "", ExtractTitle(""))
}

func TestSplitStanzasComplete(t *testing.T) {
	stanzas := SplitStanzas(sampleScript(12))
	require.Len(t, stanzas, model.PageCount)
	assert.Contains(t, stanzas[0], "Line one of stanza 1")
	assert.Contains(t, stanzas[11], "Line three of stanza 12")
	// 标题行不进任何一节
	assert.NotContains(t, stanzas[0], "Title:")
}

func TestSplitStanzasPadsShortScript(t *testing.T) {
	stanzas := SplitStanzas(sampleScript(3))
	require.Len(t, stanzas, model.PageCount)
	assert.Contains(t, stanzas[2], "Line one of stanza 3")
	for i := 3; i < model.PageCount; i++ {
		assert.Equal(t, "Empty page", stanzas[i])
	}
}

func TestSplitStanzasCapsLongScript(t *testing.T) {
	stanzas := SplitStanzas(sampleScript(15))
	require.Len(t, stanzas, model.PageCount)
	assert.Contains(t, stanzas[11], "Line one of stanza 12")
}

func TestSplitStanzasMalformedScript(t *testing.T) {
	// 完全没有Stanza标记：12个占位页
	stanzas := SplitStanzas("just prose\nwith no structure")
	require.Len(t, stanzas, model.PageCount)
	for _, s := range stanzas {
		assert.Equal(t, "Empty page", s)
	}

	// 空脚本同样不报错
	stanzas = SplitStanzas("")
	require.Len(t, stanzas, model.PageCount)
}

func TestFormatScriptPages(t *testing.T) {
	out := FormatScriptPages("Title: T\n\nStanza 1\nline a\n\nStanza 2\nline b")
	joined := strings.Join(out, "\n")
	assert.Contains(t, joined, "Page 1")
	assert.Contains(t, joined, "Page 2")
	assert.NotContains(t, joined, "Stanza")
	assert.Contains(t, joined, "line a")
}

func TestStyleDescription(t *testing.T) {
	for _, style := range []string{"disney", "seuss", "anime", "modern", "ghibli"} {
		assert.NotEmpty(t, StyleDescription(style), style)
	}
	// 未知风格有兜底描述
	assert.NotEmpty(t, StyleDescription("unknown"))
}
