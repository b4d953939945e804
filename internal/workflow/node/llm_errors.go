package node

import "strings"

// IsResponseFormatUnsupportedError 判断提供商是否拒绝了 response_format / response_schema 参数。
// 命中时调用方应去掉结构化输出约束，退回纯提示词模式重试一次。
func IsResponseFormatUnsupportedError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "response_format"),
		strings.Contains(msg, "response_mime_type"),
		strings.Contains(msg, "response_schema"),
		strings.Contains(msg, "json_object"),
		strings.Contains(msg, "json_schema"):
		return true
	case strings.Contains(msg, "unknown parameter") && strings.Contains(msg, "response"):
		return true
	case strings.Contains(msg, "invalid") && strings.Contains(msg, "response"):
		return true
	default:
		return false
	}
}
