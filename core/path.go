package core

import (
	"strconv"
	"strings"
)

// SplitPath splits a dot path into trimmed, non-empty segments, so
// " a . b ", "a..b" and "a.b" all address the same field.
func SplitPath(path string) []string {
	raw := strings.Split(path, ".")
	segments := make([]string, 0, len(raw))
	for _, segment := range raw {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		segments = append(segments, segment)
	}
	return segments
}

// GetPath reads the value at path. found is false when any segment is
// missing or crosses a non-container; a present null yields (nil, true).
func GetPath(record map[string]any, path string) (value any, found bool) {
	segments := SplitPath(path)
	if record == nil || len(segments) == 0 {
		return nil, false
	}
	current := any(record)
	for _, segment := range segments {
		next, ok := childOf(current, segment)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// HasOwnPath reports whether the parent container of the last segment
// directly owns that key, whatever its value. It walks to the parent
// instead of reading the leaf so an explicit null still counts as present.
func HasOwnPath(record map[string]any, path string) bool {
	segments := SplitPath(path)
	if record == nil || len(segments) == 0 {
		return false
	}
	parent := any(record)
	for _, segment := range segments[:len(segments)-1] {
		next, ok := childOf(parent, segment)
		if !ok {
			return false
		}
		parent = next
	}
	_, owned := childOf(parent, segments[len(segments)-1])
	return owned
}

// SetPath assigns value at path, creating intermediate objects and replacing
// any intermediate that cannot hold the next segment. Arrays are descended
// only through an in-range index.
func SetPath(output map[string]any, path string, value any) {
	segments := SplitPath(path)
	if output == nil || len(segments) == 0 {
		return
	}
	container := any(output)
	for idx, segment := range segments {
		last := idx == len(segments)-1
		switch typed := container.(type) {
		case map[string]any:
			if last {
				typed[segment] = value
				return
			}
			next := typed[segment]
			if !canHold(next, segments[idx+1]) {
				next = make(map[string]any)
				typed[segment] = next
			}
			container = next
		case []any:
			// The parent already checked the index is in range.
			index, _ := arrayIndex(segment, len(typed))
			if last {
				typed[index] = value
				return
			}
			next := typed[index]
			if !canHold(next, segments[idx+1]) {
				next = make(map[string]any)
				typed[index] = next
			}
			container = next
		default:
			return
		}
	}
}

func canHold(container any, segment string) bool {
	switch typed := container.(type) {
	case map[string]any:
		return typed != nil
	case []any:
		_, ok := arrayIndex(segment, len(typed))
		return ok
	default:
		return false
	}
}

func childOf(container any, segment string) (any, bool) {
	switch typed := container.(type) {
	case map[string]any:
		if typed == nil {
			return nil, false
		}
		value, ok := typed[segment]
		return value, ok
	case []any:
		index, ok := arrayIndex(segment, len(typed))
		if !ok {
			return nil, false
		}
		return typed[index], true
	default:
		return nil, false
	}
}

func arrayIndex(segment string, length int) (int, bool) {
	index, err := strconv.Atoi(segment)
	if err != nil || index < 0 || index >= length {
		return 0, false
	}
	if strconv.Itoa(index) != segment {
		return 0, false
	}
	return index, true
}

// cloneValue deep-copies object and array containers so mapped output never
// aliases the caller's input.
func cloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		if typed == nil {
			return typed
		}
		copied := make(map[string]any, len(typed))
		for key, item := range typed {
			copied[key] = cloneValue(item)
		}
		return copied
	case []any:
		if typed == nil {
			return typed
		}
		copied := make([]any, len(typed))
		for idx, item := range typed {
			copied[idx] = cloneValue(item)
		}
		return copied
	default:
		return value
	}
}
