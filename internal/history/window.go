package history

import (
	"unicode/utf8"

	"ragchat/internal/domain"
)

// Window picks the part of the history sent with the next request: leading
// system messages, then the newest messages that fit within maxMessages and
// maxChars. The newest message is always included even when it alone exceeds
// maxChars. Zero limits are treated as unbounded.
func Window(messages []domain.Message, maxMessages, maxChars int) []domain.Message {
	if len(messages) == 0 {
		return nil
	}
	pinned := 0
	for pinned < len(messages) && messages[pinned].Role == domain.RoleSystem {
		pinned++
	}
	rest := messages[pinned:]

	start := len(rest)
	chars := 0
	for i := len(rest) - 1; i >= 0; i-- {
		n := utf8.RuneCountInString(rest[i].Content)
		newest := i == len(rest)-1
		if !newest {
			if maxMessages > 0 && len(rest)-i > maxMessages {
				break
			}
			if maxChars > 0 && chars+n > maxChars {
				break
			}
		}
		chars += n
		start = i
	}

	out := make([]domain.Message, 0, pinned+len(rest)-start)
	out = append(out, messages[:pinned]...)
	return append(out, rest[start:]...)
}
