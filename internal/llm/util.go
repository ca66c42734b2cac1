package llm

import "strings"

// StripCodeFence removes a code fence wrapping the whole reply. Models
// sometimes return markdown tables inside ```markdown blocks.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") || len(text) < 6 {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	// Skip a language identifier on the first line
	if idx := strings.Index(text, "\n"); idx >= 0 {
		firstLine := text[:idx]
		if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.Contains(firstLine, "|") {
			text = text[idx+1:]
		}
	}
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
