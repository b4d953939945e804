package node

import (
	"strings"
)

// ExtractJSONObject 从模型输出中截取第一个完整的 JSON 对象。
// 模型可能用 ``` 代码块包裹，也可能在前后夹杂说明文字；找不到完整对象时返回去掉代码块后的原文，
// 交给后续解码器报错。
func ExtractJSONObject(s string) string {
	raw := StripCodeFence(s)
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return raw
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return raw
}

// StripCodeFence 去掉首尾的 markdown 代码块标记（含语言标注行）
func StripCodeFence(s string) string {
	text := strings.TrimSpace(s)
	if strings.HasPrefix(text, "```") {
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		} else {
			text = text[3:]
		}
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
