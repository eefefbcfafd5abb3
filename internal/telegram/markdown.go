package telegram

import (
	"strings"
	"unicode/utf8"
)

// SplitMessage splits a message into chunks of at most maxLen runes,
// preferring to cut after a newline in the second half of a chunk.
func SplitMessage(text string, maxLen int) []string {
	if utf8.RuneCountInString(text) <= maxLen {
		return []string{text}
	}

	var parts []string
	runes := []rune(text)
	for len(runes) > 0 {
		if len(runes) <= maxLen {
			parts = append(parts, string(runes))
			break
		}

		splitAt := maxLen
		for i := maxLen - 1; i > maxLen/2; i-- {
			if runes[i] == '\n' {
				splitAt = i + 1
				break
			}
		}

		parts = append(parts, string(runes[:splitAt]))
		runes = runes[splitAt:]
	}

	return parts
}

// FixMarkdown rewrites the CommonMark the model answers with into Telegram's
// legacy Markdown: headings and **bold** become *bold*, and unbalanced code
// markers are closed.
func FixMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	inBlock := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inBlock = !inBlock
			continue
		}
		if inBlock {
			continue
		}
		if heading, ok := headingText(line); ok {
			line = "*" + heading + "*"
		}
		lines[i] = strings.ReplaceAll(line, "**", "*")
	}
	text = strings.Join(lines, "\n")

	if strings.Count(text, "```")%2 != 0 {
		text += "\n```"
	}
	return closeInlineCode(text)
}

func headingText(line string) (string, bool) {
	trimmed := strings.TrimLeft(line, "#")
	if len(trimmed) == len(line) || len(line)-len(trimmed) > 6 || !strings.HasPrefix(trimmed, " ") {
		return "", false
	}
	heading := strings.Trim(strings.TrimSpace(trimmed), "*")
	if heading == "" {
		return "", false
	}
	return heading, true
}

func closeInlineCode(text string) string {
	var builder strings.Builder
	inBlock := false
	inlineOpen := false

	for i := 0; i < len(text); i++ {
		if strings.HasPrefix(text[i:], "```") {
			if inlineOpen {
				builder.WriteByte('`')
				inlineOpen = false
			}
			inBlock = !inBlock
			builder.WriteString("```")
			i += 2
			continue
		}
		if !inBlock && text[i] == '`' {
			inlineOpen = !inlineOpen
		}
		builder.WriteByte(text[i])
	}

	if inlineOpen {
		builder.WriteByte('`')
	}
	return builder.String()
}
