// Package binding 负责 ${key} 占位符替换，主要用于生成确定性的导出文件名。
package binding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Values 是占位符可以引用的数据，支持嵌套 map 与切片下标（如 ${copy.current}、${codes[0]}）。
type Values map[string]any

// Interpolate 将文本中的 ${path.to.value} 替换为 data 中的值。
// 若 data 为空或路径不存在，则保留原占位符。
func Interpolate(text string, data any) string {
	if data == nil {
		return text
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		if val, ok := lookup(data, match); ok {
			return val
		}
		return match
	})
}

// Missing 返回文本中无法解析的占位符路径，按出现顺序去重。
func Missing(text string, data any) []string {
	var out []string
	seen := map[string]bool{}
	for _, groups := range exprPattern.FindAllStringSubmatch(text, -1) {
		path := strings.TrimSpace(groups[1])
		if seen[path] {
			continue
		}
		if _, ok := lookup(data, groups[0]); !ok {
			seen[path] = true
			out = append(out, path)
		}
	}
	return out
}

// Filename 替换占位符后清理为安全的文件名：缺失的值替换为空，
// 路径分隔符与控制字符替换为 "_"，合并重复的 "-"，base 为空时使用 fallback。
func Filename(pattern string, data any, fallback string) string {
	name := exprPattern.ReplaceAllStringFunc(pattern, func(match string) string {
		val, _ := lookup(data, match)
		return val
	})
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			sb.WriteRune('_')
		case r < 0x20 || r == 0x7f:
			sb.WriteRune('_')
		case r == ' ':
			sb.WriteRune('_')
		default:
			sb.WriteRune(r)
		}
	}
	name = sb.String()
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}
	ext := ""
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		ext = name[i:]
		name = name[:i]
	}
	name = strings.Trim(strings.TrimLeft(name, "."), "-_")
	if name == "" {
		name = fallback
	}
	return name + ext
}

func lookup(data any, match string) (string, bool) {
	groups := exprPattern.FindStringSubmatch(match)
	if len(groups) < 2 {
		return "", false
	}
	path := strings.TrimSpace(groups[1])
	if path == "" || data == nil {
		return "", false
	}
	val, ok := resolvePath(data, path)
	if !ok || val == nil {
		return "", false
	}
	return fmt.Sprint(val), true
}

func resolvePath(data any, path string) (any, bool) {
	current := data
	for _, segment := range strings.Split(path, ".") {
		name, indexes := parseSegment(segment)
		if name != "" {
			var ok bool
			current, ok = descendMap(current, name)
			if !ok {
				return nil, false
			}
		}
		for _, idxStr := range indexes {
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, false
			}
			var ok bool
			current, ok = descendArray(current, idx)
			if !ok {
				return nil, false
			}
		}
	}
	return current, true
}

func parseSegment(segment string) (string, []string) {
	name := segment
	var indexes []string
	if i := strings.Index(segment, "["); i != -1 {
		name = segment[:i]
		rest := segment[i:]
		for len(rest) > 0 && rest[0] == '[' {
			end := strings.IndexByte(rest, ']')
			if end == -1 {
				break
			}
			indexes = append(indexes, rest[1:end])
			rest = rest[end+1:]
		}
	}
	return name, indexes
}

func descendMap(current any, key string) (any, bool) {
	switch c := current.(type) {
	case Values:
		val, ok := c[key]
		return val, ok
	case map[string]any:
		val, ok := c[key]
		return val, ok
	case map[string]string:
		val, ok := c[key]
		return val, ok
	default:
		return nil, false
	}
}

func descendArray(current any, idx int) (any, bool) {
	switch c := current.(type) {
	case []any:
		if idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	case []string:
		if idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	default:
		return nil, false
	}
}
