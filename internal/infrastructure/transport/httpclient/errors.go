package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"slidedeck-ai/internal/domain/service"
)

// errorBody 同时兼容 {"code","message","detail"} 与 {"detail": ...} 两种错误体
type errorBody struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
}

func parseHTTPError(op string, status int, raw []byte) *service.TransportError {
	te := &service.TransportError{
		Op:         op,
		StatusCode: status,
		Class:      service.ClassifyStatus(status),
	}

	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		te.Message = joinMessage(strings.TrimSpace(body.Message), detailText(body.Detail))
	}
	if te.Message == "" {
		te.Message = strings.TrimSpace(string(raw))
	}
	if te.Message == "" {
		te.Message = http.StatusText(status)
	}
	return te
}

// ErrResponseTooLarge 响应体超过 MaxResponseBytes
var ErrResponseTooLarge = errors.New("response body too large")

func tooLargeError(op string, status int, limit int64) *service.TransportError {
	return &service.TransportError{
		Op:         op,
		StatusCode: status,
		Class:      service.ClassUnexpected,
		Message:    fmt.Sprintf("response body exceeds %d bytes", limit),
		Err:        ErrResponseTooLarge,
	}
}

func networkError(op string, err error) *service.TransportError {
	return &service.TransportError{Op: op, Class: service.ClassNetwork, Message: err.Error(), Err: err}
}

// detailText detail 可能是字符串，也可能是校验错误列表
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var items []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil && len(items) > 0 {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return strings.TrimSpace(string(raw))
}

func joinMessage(message, detail string) string {
	switch {
	case message == "":
		return detail
	case detail == "" || detail == message:
		return message
	default:
		return message + ": " + detail
	}
}
