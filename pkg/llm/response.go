package llm

import (
	"regexp"
	"strings"
)

var (
	// thinkBlockPattern matches reasoning blocks some models emit before the answer.
	thinkBlockPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)
	// codeFencePattern captures the body of the first fenced block, any language tag.
	codeFencePattern = regexp.MustCompile("(?s)```(?:[a-zA-Z0-9_+-]*[ \t]*\n)?(.*?)```")
)

// NormalizeCompletion turns a raw completion into plain text: reasoning blocks
// are removed, a fenced block is unwrapped, and surrounding whitespace is trimmed.
// An unterminated opening fence is dropped.
func NormalizeCompletion(raw string) string {
	text := thinkBlockPattern.ReplaceAllString(raw, "")

	if m := codeFencePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}

	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
	}
	return strings.TrimSpace(text)
}
