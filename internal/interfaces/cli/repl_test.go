package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"slidedeck-ai/internal/domain/ir"
	"slidedeck-ai/internal/domain/service"
)

const deckJSON = `{"title":"Coffee Club","slides":[
	{"layout":"title","elements":[{"type":"text","content":"Coffee Club","is_title":true}],"speaker_notes":"welcome"},
	{"elements":[{"type":"text","content":"Market","is_title":true},{"type":"chart","chart_type":"pie","title":"Share","categories":["A","B"],"series":[{"name":"s","values":[1,2]}]}]},
	{"layout":"image_full","elements":[{"type":"image","url":"https://img.example.com/cup.png","alt_text":"cup"}]}
]}`

type fakeTransport struct {
	generated []service.GenerateRequest
	refined   []string
	refineErr error
	fetched   string
}

func (f *fakeTransport) Generate(_ context.Context, req service.GenerateRequest) (*service.GenerateResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	f.generated = append(f.generated, req)
	p, err := ir.Parse([]byte(deckJSON))
	if err != nil {
		return nil, err
	}
	res := &service.GenerateResult{
		ID:           "abcdef1234",
		Presentation: p,
		DownloadRef:  f.DownloadRef("abcdef1234"),
		PreviewRefs:  []string{f.PreviewRef("abcdef1234", 0)},
		Mode:         ir.ModeFromScratch,
	}
	if req.File != nil {
		res.Mode = req.Mode
		res.Tokens = &ir.DesignTokens{PrimaryColor: "#112233", FontHeading: "Georgia", FontBody: "Arial"}
	}
	return res, nil
}

func (f *fakeTransport) Refine(_ context.Context, id, instruction string) (*service.RefineResult, error) {
	if f.refineErr != nil {
		return nil, f.refineErr
	}
	f.refined = append(f.refined, instruction)
	p, _ := ir.Parse([]byte(deckJSON))
	p.Title = instruction
	return &service.RefineResult{ID: id, Presentation: p, DownloadRef: f.DownloadRef(id)}, nil
}

func (f *fakeTransport) DownloadRef(id string) string { return "/api/download/" + id }

func (f *fakeTransport) PreviewRef(id string, i int) string {
	return "/api/preview/" + id + "/" + string(rune('0'+i))
}

func (f *fakeTransport) Fetch(_ context.Context, ref string) ([]byte, string, error) {
	f.fetched = ref
	return []byte("PK-deck"), "application/octet-stream", nil
}

type harness struct {
	repl    *REPL
	ft      *fakeTransport
	out     *bytes.Buffer
	written map[string][]byte
}

func newHarness() *harness {
	h := &harness{ft: &fakeTransport{}, out: &bytes.Buffer{}, written: map[string][]byte{}}
	h.repl = New(h.ft,
		WithIO(strings.NewReader(""), h.out),
		WithFiles(
			func(path string) ([]byte, error) {
				if strings.Contains(path, "missing") {
					return nil, errors.New("no such file")
				}
				return []byte("PK-template"), nil
			},
			func(path string, data []byte) error {
				h.written[path] = data
				return nil
			},
		),
	)
	return h
}

// run 执行一行并返回本行输出
func (h *harness) run(line string) string {
	h.out.Reset()
	h.repl.Handle(context.Background(), line)
	return h.out.String()
}

func TestPlainTextGeneratesThenRefines(t *testing.T) {
	h := newHarness()

	out := h.run("a deck about coffee")
	if !strings.Contains(out, `generate ok: "Coffee Club", 3 slides`) || !strings.Contains(out, "previews: 1 of 3") {
		t.Errorf("generate output = %q", out)
	}
	out = h.run("rename to Tea Club")
	if !strings.Contains(out, `refine ok: "rename to Tea Club"`) {
		t.Errorf("refine output = %q", out)
	}
	if len(h.ft.generated) != 1 || len(h.ft.refined) != 1 {
		t.Fatalf("calls = %d generate, %d refine", len(h.ft.generated), len(h.ft.refined))
	}

	out = h.run("/history")
	if !strings.Contains(out, "1. [prompt] a deck about coffee") || !strings.Contains(out, "2. [refine] rename to Tea Club") {
		t.Errorf("history = %q", out)
	}

	h.run("/new another deck")
	if len(h.ft.generated) != 2 {
		t.Errorf("/new did not generate")
	}
}

func TestOptionsFlowIntoGenerate(t *testing.T) {
	h := newHarness()

	if out := h.run("/slides zero"); !strings.Contains(out, "positive integer") {
		t.Errorf("/slides zero = %q", out)
	}
	h.run("/slides 4")
	if out := h.run("/mode sideways"); !strings.Contains(out, "unknown mode") {
		t.Errorf("/mode sideways = %q", out)
	}
	if out := h.run("/mode template"); !strings.Contains(out, "/file") {
		t.Errorf("/mode template = %q", out)
	}
	if out := h.run("/file notes.txt"); !strings.Contains(out, ".pptx") {
		t.Errorf("/file notes.txt = %q", out)
	}
	if out := h.run("/file missing.pptx"); !strings.Contains(out, "no such file") {
		t.Errorf("/file missing = %q", out)
	}
	h.run("/file decks/brand.pptx")

	out := h.run("quarterly review")
	if !strings.Contains(out, "design: primary #112233, fonts Georgia / Arial") {
		t.Errorf("generate output = %q", out)
	}
	req := h.ft.generated[0]
	if req.NumSlides != 4 || req.Mode != ir.ModeTemplate || req.File == nil || req.File.Name != "brand.pptx" {
		t.Errorf("request = %+v", req)
	}
}

func TestTemplateWithoutFileFailsAndKeepsIdle(t *testing.T) {
	h := newHarness()
	h.run("/mode reference")
	out := h.run("quarterly review")
	if !strings.Contains(out, "generate failed") {
		t.Errorf("output = %q", out)
	}
	if h.repl.Session().Snapshot().PresentationID != "" {
		t.Error("failed generate set an identity")
	}
}

func TestRefineFailureKeepsPresentation(t *testing.T) {
	h := newHarness()
	h.run("a deck about coffee")
	h.ft.refineErr = &service.TransportError{Op: "refine", StatusCode: 502, Class: service.ClassServerError, Message: "model returned invalid JSON"}

	out := h.run("make it purple")
	if !strings.Contains(out, "refine failed") || !strings.Contains(out, "model returned invalid JSON") {
		t.Errorf("output = %q", out)
	}
	if got := h.repl.Session().Snapshot().Presentation.Title; got != "Coffee Club" {
		t.Errorf("title after failed refine = %q", got)
	}
}

func TestNavigationAndDownload(t *testing.T) {
	h := newHarness()
	if out := h.run("/show"); !strings.Contains(out, "no presentation") {
		t.Errorf("/show before generate = %q", out)
	}
	h.run("a deck about coffee")

	out := h.run("/outline")
	if !strings.Contains(out, "*  1. title") || !strings.Contains(out, "2. title_content") {
		t.Errorf("/outline = %q", out)
	}
	out = h.run("/slide 99")
	if !strings.Contains(out, "slide 3 [image_full]") || !strings.Contains(out, "preview: unavailable") {
		t.Errorf("/slide 99 = %q", out)
	}
	out = h.run("/slide 1")
	if !strings.Contains(out, "notes  welcome") || !strings.Contains(out, "preview: /api/preview/abcdef1234/0") {
		t.Errorf("/slide 1 = %q", out)
	}
	out = h.run("/slide 2")
	if !strings.Contains(out, `chart  pie "Share": 2 categories, 1 series`) {
		t.Errorf("/slide 2 = %q", out)
	}

	h.run("/download")
	if string(h.written["presentation-abcdef12.pptx"]) != "PK-deck" || h.ft.fetched != "/api/download/abcdef1234" {
		t.Errorf("written = %v fetched = %q", h.written, h.ft.fetched)
	}
	h.run("/download out.pptx")
	if _, ok := h.written["out.pptx"]; !ok {
		t.Error("explicit path not written")
	}
}

func TestResetAndQuit(t *testing.T) {
	h := newHarness()
	h.run("a deck about coffee")
	h.run("/reset")
	if snap := h.repl.Session().Snapshot(); snap.Presentation != nil || len(snap.History) != 0 {
		t.Errorf("snapshot after reset = %+v", snap)
	}
	// 重置后普通文本重新生成
	h.run("a new deck")
	if len(h.ft.generated) != 2 || len(h.ft.refined) != 0 {
		t.Errorf("calls = %d generate, %d refine", len(h.ft.generated), len(h.ft.refined))
	}
	if !h.repl.Handle(context.Background(), "/quit") {
		t.Error("/quit did not stop the loop")
	}
}

func TestRunStopsAtEOF(t *testing.T) {
	ft := &fakeTransport{}
	var out bytes.Buffer
	r := New(ft, WithIO(strings.NewReader("/examples\nhello deck\n"), &out))
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), Examples[0]) || len(ft.generated) != 1 {
		t.Errorf("output = %q", out.String())
	}
}
