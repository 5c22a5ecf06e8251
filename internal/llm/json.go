package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?s)```[A-Za-z]*[ \t]*\r?\n?(.*?)```")

// CleanJSONBlock strips a markdown code fence wrapping the whole response.
// Models fence their JSON even when told not to. An unterminated fence
// (truncated output) is stripped from the front only.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	body := strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		// A short first line without spaces or braces is the language tag
		if tag := strings.TrimSpace(body[:nl]); len(tag) < 20 && !strings.ContainsAny(tag, " {[") {
			body = body[nl+1:]
		}
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// ExtractJSONObject locates and decodes the JSON object in a model response.
// It accepts plain JSON, JSON inside fenced code blocks, and JSON embedded in
// surrounding prose. A top-level array yields its first object element.
// Numbers are decoded as json.Number.
func ExtractJSONObject(text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrNoJSONObject
	}

	candidates := []string{trimmed, CleanJSONBlock(trimmed)}
	for _, m := range fencedBlock.FindAllStringSubmatch(trimmed, -1) {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	for _, candidate := range candidates {
		if obj, ok := decodeObject(candidate); ok {
			return obj, nil
		}
	}

	if obj, ok := embeddedObject(trimmed); ok {
		return obj, nil
	}

	return nil, ErrNoJSONObject
}

// decodeObject decodes text as a JSON object, or as an array whose first
// object element is returned.
func decodeObject(text string) (map[string]any, bool) {
	if text == "" {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, false
	}
	// Reject trailing content so "{} garbage" falls through to segment scanning
	if dec.More() {
		return nil, false
	}

	switch v := value.(type) {
	case map[string]any:
		return v, true
	case []any:
		for _, item := range v {
			if obj, ok := item.(map[string]any); ok {
				return obj, true
			}
		}
	}
	return nil, false
}

// embeddedObject decodes the first JSON object that starts at one of the
// '{' offsets of text, trying offsets in order. Only the first value after
// an offset is read, so trailing prose never spoils a match. A value cut off
// by the end of the text (truncated output) ends the search, so objects
// nested inside it are never mistaken for the whole.
func embeddedObject(text string) (map[string]any, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		dec.UseNumber()

		var obj map[string]any
		err := dec.Decode(&obj)
		if err == nil {
			return obj, true
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, false
		}
	}
	return nil, false
}
