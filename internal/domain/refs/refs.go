// Package refs 构造下载与预览资源定位符。纯字符串运算，不访问网络。
package refs

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	downloadPrefix = "/api/download/"
	previewPrefix  = "/api/preview/"
)

// Locator 以 Base 为前缀生成定位符；Base 为空时生成站内相对路径
type Locator struct {
	Base string
}

// NewLocator 创建定位符构造器，去掉 base 末尾的斜杠
func NewLocator(base string) Locator {
	return Locator{Base: strings.TrimRight(strings.TrimSpace(base), "/")}
}

// Download 返回演示文稿下载地址
func (l Locator) Download(id string) string {
	return l.Base + downloadPrefix + url.PathEscape(id)
}

// Preview 返回第 index 页（从 0 开始）的预览图地址
func (l Locator) Preview(id string, index int) string {
	return l.Base + previewPrefix + url.PathEscape(id) + "/" + strconv.Itoa(index)
}

// Previews 返回前 n 页的预览图地址
func (l Locator) Previews(id string, n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, l.Preview(id, i))
	}
	return out
}

// Resolve 把服务端返回的相对地址解析为基于 Base 的绝对地址；已是绝对地址时原样返回
func (l Locator) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || l.Base == "" {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	base, err := url.Parse(l.Base + "/")
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

// DownloadFilename presentation-{id 前 8 位}.pptx
func DownloadFilename(id string) string {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return "presentation-" + short + ".pptx"
}
