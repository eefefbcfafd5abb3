package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, SplitMessage("short", 10))
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, SplitMessage("abcdefghij", 4))
	assert.Equal(t, []string{"aaaa\n", "bbbbbb"}, SplitMessage("aaaa\nbbbbbb", 6))
	assert.Equal(t, []string{"éé", "éé", "é"}, SplitMessage("ééééé", 2))
}

func TestSplitMessageKeepsAllText(t *testing.T) {
	text := strings.Repeat("Aged cheese is high in histamine.\n", 300)
	parts := SplitMessage(text, 4096)

	assert.Greater(t, len(parts), 1)
	assert.Equal(t, text, strings.Join(parts, ""))
	for _, p := range parts {
		assert.LessOrEqual(t, len([]rune(p)), 4096)
	}
}

func TestFixMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bold", "**Safe** to eat", "*Safe* to eat"},
		{"heading", "## Verdict\nAvoid it", "*Verdict*\nAvoid it"},
		{"bold heading", "### **Verdict**", "*Verdict*"},
		{"hashtag is not a heading", "#lowhistamine", "#lowhistamine"},
		{"unclosed block", "```\nx := 1", "```\nx := 1\n```"},
		{"block content untouched", "```\n**x**\n```", "```\n**x**\n```"},
		{"unclosed inline code", "use `code", "use `code`"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FixMarkdown(tt.in))
		})
	}
}
