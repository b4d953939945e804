// Package render 把 .pptx 渲染为逐页 PNG 预览：LibreOffice 转 PDF，再由 pdftoppm 光栅化。
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"slidedeck-ai/internal/config"
	"slidedeck-ai/pkg/logger"
	"slidedeck-ai/pkg/metrics"
)

// ErrDisabled 渲染已在配置中关闭
var ErrDisabled = errors.New("preview rendering disabled")

// Runner 执行外部命令，测试中替换
type Runner func(ctx context.Context, dir, name string, args ...string) error

// Renderer 调用外部工具生成预览，同一时刻最多 concurrency 个渲染进程
type Renderer struct {
	enabled  bool
	soffice  string
	pdftoppm string
	dpi      int
	timeout  time.Duration
	run      Runner
	slots    chan struct{}
}

func NewRenderer(cfg config.RenderConfig) *Renderer {
	dpi := cfg.DPI
	if dpi <= 0 {
		dpi = 96
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Renderer{
		enabled:  cfg.Enabled,
		soffice:  cfg.SofficePath,
		pdftoppm: cfg.PdftoppmPath,
		dpi:      dpi,
		timeout:  timeout,
		run:      execRunner,
		// LibreOffice 单用户配置目录不支持并发实例，这里串行化
		slots: make(chan struct{}, 1),
	}
}

// WithRunner 替换命令执行器
func (r *Renderer) WithRunner(run Runner) *Renderer {
	r.run = run
	return r
}

// Render 返回按页序排列的 PNG。失败时返回错误，由调用方决定是否降级。
func (r *Renderer) Render(ctx context.Context, pptx []byte) ([][]byte, error) {
	if !r.enabled {
		return nil, ErrDisabled
	}
	start := time.Now()
	pngs, err := r.render(ctx, pptx)
	metrics.PreviewRenderDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PreviewRenderTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.PreviewRenderTotal.WithLabelValues("success").Inc()
	logger.Debug(ctx, "previews rendered", "pages", len(pngs), "duration_ms", time.Since(start).Milliseconds())
	return pngs, nil
}

func (r *Renderer) render(ctx context.Context, pptx []byte) ([][]byte, error) {
	select {
	case r.slots <- struct{}{}:
		defer func() { <-r.slots }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	dir, err := os.MkdirTemp("", "slidedeck-render-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "deck.pptx")
	if err := os.WriteFile(src, pptx, 0o600); err != nil {
		return nil, err
	}

	// 独立的用户配置目录，避免与其他 soffice 进程争用锁
	profile := "-env:UserInstallation=file://" + filepath.ToSlash(filepath.Join(dir, "profile"))
	if err := r.run(ctx, dir, r.soffice, profile, "--headless", "--convert-to", "pdf", "--outdir", dir, src); err != nil {
		return nil, fmt.Errorf("convert to pdf: %w", err)
	}
	pdf := filepath.Join(dir, "deck.pdf")
	if _, err := os.Stat(pdf); err != nil {
		return nil, fmt.Errorf("convert to pdf: no output: %w", err)
	}

	if err := r.run(ctx, dir, r.pdftoppm, "-png", "-r", strconv.Itoa(r.dpi), pdf, filepath.Join(dir, "slide")); err != nil {
		return nil, fmt.Errorf("rasterize pdf: %w", err)
	}
	return collectPages(dir, "slide-")
}

// collectPages 读取 pdftoppm 输出（slide-1.png 或按页数补零的 slide-01.png）
func collectPages(dir, prefix string) ([][]byte, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"*.png"))
	if err != nil {
		return nil, err
	}
	type page struct {
		n    int
		path string
	}
	pages := make([]page, 0, len(matches))
	for _, m := range matches {
		num := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), prefix), ".png")
		n, err := strconv.Atoi(num)
		if err != nil {
			continue
		}
		pages = append(pages, page{n: n, path: m})
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("rasterize pdf: no pages produced")
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].n < pages[j].n })

	out := make([][]byte, 0, len(pages))
	for _, p := range pages {
		data, err := os.ReadFile(p.path)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

func execRunner(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 500 {
			msg = msg[:500]
		}
		if msg != "" {
			return fmt.Errorf("%s: %w: %s", filepath.Base(name), err, msg)
		}
		return fmt.Errorf("%s: %w", filepath.Base(name), err)
	}
	return nil
}
