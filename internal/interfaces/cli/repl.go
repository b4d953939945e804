// Package cli 提供交互式命令行客户端
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"slidedeck-ai/internal/application/session"
	"slidedeck-ai/internal/domain/ir"
	"slidedeck-ai/internal/domain/refs"
	"slidedeck-ai/internal/domain/service"
)

// Transport 会话使用的传输层，外加下载地址的读取
type Transport interface {
	service.DeckTransport
	Fetch(ctx context.Context, ref string) ([]byte, string, error)
}

// Examples 示例提示词
var Examples = []string{
	"A 5-slide pitch deck for a coffee subscription startup",
	"Quarterly business review for a SaaS company with revenue and churn charts",
	"Introduction to Go concurrency for a team onboarding session",
	"Project kickoff: goals, timeline, risks and owners",
}

// REPL 交互循环。一行输入对应一个动作：普通文本在没有文稿时生成，否则修改。
type REPL struct {
	transport Transport
	session   *session.Session
	in        io.Reader
	out       io.Writer

	numSlides int
	file      *service.Attachment
	readFile  func(string) ([]byte, error)
	writeFile func(string, []byte) error
}

// Option REPL 选项
type Option func(*REPL)

// WithIO 替换输入输出，默认使用标准输入输出
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *REPL) {
		r.in = in
		r.out = out
	}
}

// WithFiles 替换文件读写，用于测试
func WithFiles(read func(string) ([]byte, error), write func(string, []byte) error) Option {
	return func(r *REPL) {
		r.readFile = read
		r.writeFile = write
	}
}

// New 创建 REPL
func New(transport Transport, opts ...Option) *REPL {
	r := &REPL{
		transport: transport,
		session:   session.New(transport),
		in:        os.Stdin,
		out:       os.Stdout,
		readFile:  os.ReadFile,
		writeFile: func(path string, data []byte) error { return os.WriteFile(path, data, 0o644) },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Session 底层会话
func (r *REPL) Session() *session.Session { return r.session }

// Run 读取输入直到 /quit 或 EOF
func (r *REPL) Run(ctx context.Context) error {
	r.printf("slidedeck: describe a presentation, or /help for commands\n")
	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for {
		r.printf("%s> ", r.session.State())
		if !scanner.Scan() {
			r.printf("\n")
			return scanner.Err()
		}
		if quit := r.Handle(ctx, scanner.Text()); quit {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Handle 处理一行输入，返回 true 表示退出
func (r *REPL) Handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		r.submit(ctx, line)
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		r.help()
	case "/new":
		r.generate(ctx, arg)
	case "/slides":
		r.setSlides(arg)
	case "/mode":
		r.setMode(arg)
	case "/file":
		r.setFile(arg)
	case "/slide":
		r.moveCursor(arg)
	case "/show":
		r.show()
	case "/outline":
		r.outline()
	case "/history":
		r.history()
	case "/download":
		r.download(ctx, arg)
	case "/examples":
		for i, ex := range Examples {
			r.printf("  %d. %s\n", i+1, ex)
		}
	case "/reset":
		r.session.Reset()
		r.numSlides = 0
		r.file = nil
		r.printf("session cleared\n")
	default:
		r.printf("unknown command %s, try /help\n", cmd)
	}
	return false
}

func (r *REPL) submit(ctx context.Context, text string) {
	if r.session.Snapshot().PresentationID == "" {
		r.generate(ctx, text)
		return
	}
	r.report(r.session.Refine(ctx, text), "refine")
}

func (r *REPL) generate(ctx context.Context, prompt string) {
	if prompt == "" {
		r.printf("usage: /new <prompt>\n")
		return
	}
	out := r.session.Generate(ctx, prompt, session.GenerateOptions{
		NumSlides: r.numSlides,
		File:      r.file,
	})
	r.report(out, "generate")
}

func (r *REPL) report(out session.Outcome, op string) {
	snap := r.session.Snapshot()
	switch out {
	case session.OutcomeApplied:
		r.printf("%s ok: %q, %d slides (id %s)\n", op, snap.Presentation.Title, snap.Presentation.SlideCount(), snap.PresentationID)
		if snap.DesignTokens != nil {
			r.printf("  design: primary %s, fonts %s / %s\n", snap.DesignTokens.PrimaryColor, snap.DesignTokens.FontHeading, snap.DesignTokens.FontBody)
		}
		if n := len(snap.PreviewRefs); n < snap.Presentation.SlideCount() {
			r.printf("  previews: %d of %d slides\n", n, snap.Presentation.SlideCount())
		}
		r.printf("  download: %s\n", snap.DownloadRef)
	case session.OutcomeFailed:
		if snap.Err != nil {
			r.printf("%s failed (%s): %s\n", op, snap.Err.Kind, snap.Err.Message)
		} else {
			r.printf("%s failed\n", op)
		}
	case session.OutcomeIgnored:
		r.printf("%s ignored: session is %s\n", op, snap.State)
	case session.OutcomeDiscarded:
		r.printf("%s result discarded after reset\n", op)
	}
}

func (r *REPL) setSlides(arg string) {
	if arg == "" {
		r.numSlides = 0
		r.printf("slide count: decided by the model\n")
		return
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		r.printf("slide count must be a positive integer\n")
		return
	}
	r.numSlides = n
	r.printf("slide count: %d\n", n)
}

func (r *REPL) setMode(arg string) {
	if !r.session.SelectMode(ir.GenerationMode(arg)) {
		r.printf("unknown mode %q, expected one of %v\n", arg, ir.GenerationModes)
		return
	}
	mode := r.session.Snapshot().SelectedMode
	r.printf("mode: %s\n", mode)
	if mode.RequiresFile() && r.file == nil {
		r.printf("  attach a template with /file path.pptx\n")
	}
}

func (r *REPL) setFile(arg string) {
	if arg == "" {
		r.file = nil
		r.printf("attachment cleared\n")
		return
	}
	if !service.IsPPTXName(arg) {
		r.printf("only .pptx files are accepted\n")
		return
	}
	data, err := r.readFile(arg)
	if err != nil {
		r.printf("read %s: %v\n", arg, err)
		return
	}
	r.file = &service.Attachment{Name: filepath.Base(arg), Data: data}
	r.printf("attached %s (%d bytes)\n", r.file.Name, len(data))
}

func (r *REPL) moveCursor(arg string) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		r.printf("usage: /slide N (1-based)\n")
		return
	}
	if r.session.Snapshot().Presentation == nil {
		r.printf("no presentation yet\n")
		return
	}
	got := r.session.SetActiveSlide(n - 1)
	r.printf("slide %d\n", got+1)
	r.show()
}

func (r *REPL) show() {
	snap := r.session.Snapshot()
	if snap.Presentation == nil {
		r.printf("no presentation yet\n")
		return
	}
	i := snap.ActiveSlide
	r.printf("%s", describeSlide(i, snap.Presentation.Slides[i]))
	if ref, ok := r.session.PreviewRef(i); ok {
		r.printf("  preview: %s\n", ref)
	} else {
		r.printf("  preview: unavailable\n")
	}
}

func (r *REPL) outline() {
	snap := r.session.Snapshot()
	if snap.Presentation == nil {
		r.printf("no presentation yet\n")
		return
	}
	r.printf("%s", describeOutline(snap.Presentation, snap.ActiveSlide))
}

func (r *REPL) history() {
	snap := r.session.Snapshot()
	if len(snap.History) == 0 {
		r.printf("no history\n")
		return
	}
	for i, h := range snap.History {
		label := "refine"
		if i == 0 {
			label = "prompt"
		}
		r.printf("  %d. [%s] %s\n", i+1, label, h)
	}
}

func (r *REPL) download(ctx context.Context, path string) {
	snap := r.session.Snapshot()
	if snap.DownloadRef == "" {
		r.printf("no presentation yet\n")
		return
	}
	if path == "" {
		path = refs.DownloadFilename(snap.PresentationID)
	}
	data, _, err := r.transport.Fetch(ctx, snap.DownloadRef)
	if err != nil {
		r.printf("download failed: %v\n", err)
		return
	}
	if err := r.writeFile(path, data); err != nil {
		r.printf("write %s: %v\n", path, err)
		return
	}
	r.printf("saved %s (%d bytes)\n", path, len(data))
}

func (r *REPL) help() {
	r.printf(`commands:
  <text>              generate a deck, or refine the current one
  /new <prompt>       start over with a fresh deck
  /slides N           slide count for the next generate (empty: model decides)
  /mode M             from_scratch | template | reference
  /file path.pptx     attach a template or reference deck (empty: clear)
  /slide N            move to slide N and show it
  /show  /outline     current slide, whole deck
  /history            prompt and refinements so far
  /download [path]    save the .pptx
  /examples  /reset  /quit
`)
}

func (r *REPL) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}
