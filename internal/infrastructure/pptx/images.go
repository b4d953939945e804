package pptx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

const maxImageBytes = 10 << 20

var ErrImageSourceDenied = errors.New("image source not allowed")

// ImageLoader 加载 http(s) 图片或资源目录下的本地图片。
// 本地路径一律相对 assetsRoot 解析，assetsRoot 为空时不读本地文件。
// 图片地址来自模型输出，默认拒绝连接回环、私有与链路本地地址。
type ImageLoader struct {
	client     *http.Client
	assetsRoot string
}

func NewImageLoader(timeout time.Duration, assetsRoot string, allowPrivate bool) *ImageLoader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !allowPrivate {
		dialer := &net.Dialer{Timeout: timeout, Control: refusePrivate}
		transport.DialContext = dialer.DialContext
		// 经代理时实际连接的是代理地址，检查会失效
		transport.Proxy = nil
	}
	return &ImageLoader{
		client:     &http.Client{Timeout: timeout, Transport: transport},
		assetsRoot: strings.TrimSpace(assetsRoot),
	}
}

// refusePrivate 在 DNS 解析之后、建立连接之前检查目标地址
func refusePrivate(_, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrImageSourceDenied, address)
	}
	ip := ap.Addr().Unmap()
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified() || ip.IsMulticast() || ip.IsInterfaceLocalMulticast() {
		return fmt.Errorf("%w: %s is not a public address", ErrImageSourceDenied, ip)
	}
	return nil
}

func (l *ImageLoader) Load(ctx context.Context, src string) ([]byte, string, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, "", fmt.Errorf("%w: empty source", ErrImageSourceDenied)
	}

	var (
		data []byte
		err  error
	)
	if u, perr := url.Parse(src); perr == nil && (u.Scheme == "http" || u.Scheme == "https") {
		data, err = l.fetch(ctx, src)
	} else {
		data, err = l.readLocal(src)
	}
	if err != nil {
		return nil, "", err
	}

	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return nil, "", fmt.Errorf("unsupported image content type %s", mime)
	}
	return data, mime, nil
}

func (l *ImageLoader) fetch(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	return readLimited(resp.Body)
}

func (l *ImageLoader) readLocal(src string) ([]byte, error) {
	if l.assetsRoot == "" {
		return nil, fmt.Errorf("%w: local paths disabled", ErrImageSourceDenied)
	}
	// 先按根目录清理，防止 ../ 越界
	full := filepath.Join(l.assetsRoot, filepath.Clean(string(filepath.Separator)+src))
	f, err := os.Open(full)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLimited(f)
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	return data, nil
}
