package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errNoJSON = errors.New("no JSON value in reply")

// cleanReply strips a surrounding Markdown code fence and whitespace. Fences
// inside the payload are left alone since generated files may contain them.
func cleanReply(reply string) string {
	s := strings.TrimSpace(reply)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractJSON returns the outermost JSON value that opens with open and closes
// with close, tolerating prose around it.
func extractJSON(s string, open, close byte) (string, error) {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start < 0 || end < start {
		return "", errNoJSON
	}
	return s[start : end+1], nil
}

func decodeObject(reply string, v any) error {
	return decode(reply, '{', '}', v)
}

func decodeArray(reply string, v any) error {
	return decode(reply, '[', ']', v)
}

func decode(reply string, open, close byte, v any) error {
	body, err := extractJSON(cleanReply(reply), open, close)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	return nil
}
