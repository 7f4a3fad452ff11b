package telegram

import "strings"

// messageLimit ограничивает длину сообщения Bot API в рунах.
const messageLimit = 4096

// SplitMessage режет текст на части не длиннее лимита Telegram.
// Разрез делается по последнему переводу строки внутри окна, иначе ровно по лимиту.
func SplitMessage(text string) []string {
	return splitRunes(text, messageLimit)
}

func splitRunes(text string, limit int) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	runes := []rune(trimmed)
	if len(runes) <= limit {
		return []string{trimmed}
	}

	var parts []string
	for start := 0; start < len(runes); {
		end := min(start+limit, len(runes))
		cut := end
		if end < len(runes) {
			if nl := lastNewline(runes[start:end]); nl > 0 {
				cut = start + nl
			}
		}
		if chunk := strings.Trim(string(runes[start:cut]), "\n"); chunk != "" {
			parts = append(parts, chunk)
		}
		start = cut
		for start < len(runes) && runes[start] == '\n' {
			start++
		}
	}
	return parts
}

// lastNewline возвращает позицию сразу после последнего '\n' или 0.
func lastNewline(window []rune) int {
	for i := len(window); i > 0; i-- {
		if window[i-1] == '\n' {
			return i
		}
	}
	return 0
}
