// Package markdown normalizes model output for Telegram's legacy
// Markdown parse mode. Models emit CommonMark-ish text; Telegram
// rejects the whole message when a formatting marker is unbalanced,
// so unpaired markers are stripped rather than sent.
package markdown

import (
	"strings"
)

const fence = "```"

// Prepare converts model-style Markdown into text Telegram will
// accept: ** becomes *, unpaired markers are dropped, code fences are
// preserved and closed if the model stopped mid-block.
func Prepare(text string) string {
	text = strings.ToValidUTF8(text, "")

	segments := strings.Split(text, fence)
	// Even indexes are prose, odd indexes are code blocks.
	for i := 0; i < len(segments); i += 2 {
		segments[i] = normalizeProse(segments[i])
	}

	out := strings.Join(segments, fence)
	if strings.Count(out, fence)%2 != 0 {
		out += "\n" + fence
	}
	return out
}

func normalizeProse(text string) string {
	text = strings.ReplaceAll(text, "**", "*")
	text = strings.ReplaceAll(text, "__", "_")

	for _, marker := range []string{"*", "_", "`"} {
		if strings.Count(text, marker)%2 != 0 {
			text = strings.ReplaceAll(text, marker, "")
		}
	}
	return text
}

// Escape escapes all MarkdownV2 special characters. Use for literal
// values interpolated into formatted templates.
func Escape(text string) string {
	text = strings.ToValidUTF8(text, "")

	specialChars := []string{
		"_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!",
	}

	for _, char := range specialChars {
		text = strings.ReplaceAll(text, char, "\\"+char)
	}

	return text
}
