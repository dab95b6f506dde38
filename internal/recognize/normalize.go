package recognize

import (
	"encoding/json"
	"strings"

	"smart-ocr-server/internal/domain"
)

// responseShape covers the known structured backend response shapes. The
// fields are probed in a fixed priority order: content, text, then the
// OpenAI-style choices list.
type responseShape struct {
	Content *string `json:"content"`
	Text    *string `json:"text"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
}

// Normalize reduces a polymorphic backend response to plain text. Payloads
// that are not JSON at all are taken as literal text; a JSON document of
// an unknown shape is stringified with a warning rather than failing the
// page. Wrapping code fences are stripped from the result.
func Normalize(raw []byte, logger domain.Logger) string {
	payload := strings.TrimSpace(string(raw))
	if payload == "" {
		return ""
	}

	var text string
	switch {
	case decodeString(payload, &text):
	case decodeShape(payload, &text, logger):
	case json.Valid([]byte(payload)):
		logger.Warn("Unknown recognition response shape, using raw payload", "payload_len", len(payload))
		text = payload
	default:
		// Not JSON: the backend answered with bare text.
		text = payload
	}

	return StripFences(text)
}

func decodeString(payload string, out *string) bool {
	var s string
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return false
	}
	*out = s
	return true
}

func decodeShape(payload string, out *string, logger domain.Logger) bool {
	var shape responseShape
	if err := json.Unmarshal([]byte(payload), &shape); err != nil {
		return false
	}
	switch {
	case shape.Content != nil:
		*out = *shape.Content
	case shape.Text != nil:
		*out = *shape.Text
	case len(shape.Choices) > 0:
		first := shape.Choices[0]
		if first.Message.Content != "" {
			*out = first.Message.Content
		} else if first.Text != "" {
			*out = first.Text
		} else {
			logger.Warn("Recognition response choice carries no content")
			*out = ""
		}
	default:
		return false
	}
	return true
}

// StripFences removes a triple-backtick code fence wrapping the whole
// response, including a leading "```text" language tag.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```text") {
		text = strings.TrimSpace(strings.TrimPrefix(text, "```text"))
	}
	if strings.HasPrefix(text, "```") {
		text = strings.TrimSpace(strings.TrimPrefix(text, "```"))
	}
	if strings.HasSuffix(text, "```") {
		text = strings.TrimSpace(strings.TrimSuffix(text, "```"))
	}
	return text
}
