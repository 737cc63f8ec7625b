package output

import (
	"fmt"
	"strings"
)

// FormatHeader returns a markdown header at the given level.
func FormatHeader(level int, text string) string {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue returns a bolded key-value line.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("**%s:** %s", key, value)
}

// FormatCodeBlock returns a fenced code block with a language tag.
func FormatCodeBlock(lang, code string) string {
	code = strings.TrimRight(code, "\n")
	return "```" + lang + "\n" + code + "\n```"
}
