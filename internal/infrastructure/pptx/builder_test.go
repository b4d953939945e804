package pptx

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ppt "github.com/VantageDataChat/GoPPT"

	"slidedeck-ai/internal/domain/ir"
)

type stubImages struct {
	data []byte
	err  error
	srcs []string
}

func (s *stubImages) Load(_ context.Context, src string) ([]byte, string, error) {
	s.srcs = append(s.srcs, src)
	if s.err != nil {
		return nil, "", s.err
	}
	return s.data, "image/png", nil
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

const sampleDeck = `{
	"title": "Quarterly Review",
	"author": "Finance",
	"slides": [
		{"layout": "title", "background_color": "#0B1F3A", "elements": [
			{"type": "text", "content": "Quarterly Review", "is_title": true, "font_size": 40, "alignment": "center", "font_color": "#FFFFFF"},
			{"type": "text", "content": "Line one\nLine two", "y": 3}
		]},
		{"elements": [
			{"type": "chart", "chart_type": "bar", "title": "Revenue", "categories": ["Q1", "Q2"], "series": [{"name": "2024", "values": [3, 5]}, {"values": [2, 4]}]},
			{"type": "chart", "chart_type": "pie", "categories": ["A", "B"], "series": [{"name": "Share", "values": [60, 40]}]}
		]},
		{"elements": [
			{"type": "image", "url": "https://img.example.com/a.png", "alt_text": "Team photo"}
		]}
	]
}`

// readBack 通过 GoPPT 读取生成的文件，返回每页的文本
func readBack(t *testing.T, data []byte) [][]string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deck.pptx")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	reader := &ppt.PPTXReader{}
	pres, err := reader.Read(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var out [][]string
	for _, slide := range pres.GetAllSlides() {
		var texts []string
		for _, shape := range slide.GetShapes() {
			rts, ok := shape.(*ppt.RichTextShape)
			if !ok {
				continue
			}
			for _, para := range rts.GetParagraphs() {
				for _, elem := range para.GetElements() {
					if run, ok := elem.(*ppt.TextRun); ok && strings.TrimSpace(run.GetText()) != "" {
						texts = append(texts, run.GetText())
					}
				}
			}
		}
		out = append(out, texts)
	}
	return out
}

func TestBuildWritesEverySlide(t *testing.T) {
	p, err := ir.Parse([]byte(sampleDeck))
	if err != nil {
		t.Fatal(err)
	}
	images := &stubImages{data: tinyPNG(t)}
	data, err := NewBuilder(images).Build(context.Background(), p)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Fatal("output is not a zip package")
	}

	slides := readBack(t, data)
	if len(slides) != 3 {
		t.Fatalf("slides = %d, want 3", len(slides))
	}
	joined := strings.Join(slides[0], "|")
	for _, want := range []string{"Quarterly Review", "Line one", "Line two"} {
		if !strings.Contains(joined, want) {
			t.Errorf("slide 1 texts %q missing %q", joined, want)
		}
	}
	parts := unzipParts(t, data)
	if !strings.Contains(parts["ppt/charts/chart1.xml"], "<c:barChart>") || !strings.Contains(parts["ppt/charts/chart1.xml"], "Revenue") {
		t.Errorf("chart1 should be a titled bar chart:\n%s", parts["ppt/charts/chart1.xml"])
	}
	if !strings.Contains(parts["ppt/charts/chart2.xml"], "<c:pieChart>") {
		t.Errorf("chart2 should be a pie chart:\n%s", parts["ppt/charts/chart2.xml"])
	}
	if !strings.Contains(parts["ppt/slides/slide1.xml"], "<p:bg>") || !strings.Contains(parts["ppt/slides/slide1.xml"], "0B1F3A") {
		t.Error("slide 1 should carry its background color as slide background")
	}
	if len(images.srcs) != 1 || images.srcs[0] != "https://img.example.com/a.png" {
		t.Errorf("image sources = %v", images.srcs)
	}

	if _, err := NewScanner().Scan(context.Background(), data); err != nil {
		t.Errorf("generated deck should be scannable: %v", err)
	}
}

// unzipParts 返回包内每个部件的文本内容
func unzipParts(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open package: %v", err)
	}
	parts := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		parts[f.Name] = string(b)
	}
	return parts
}

func TestBuildWritesTextStyleNotesAndCharts(t *testing.T) {
	const deck = `{"slides": [{
		"speaker_notes": "Pause here for questions",
		"elements": [
			{"type": "text", "content": "Quoted", "font_name": "Georgia", "font_italic": true, "vertical_alignment": "middle"},
			{"type": "text", "content": "Footer", "vertical_alignment": "bottom"},
			{"type": "chart", "chart_type": "line", "categories": ["Jan", "Feb"], "series": [{"name": "Visits", "values": [10, 12]}]},
			{"type": "chart", "chart_type": "doughnut", "categories": ["Yes", "No"], "series": [{"name": "Vote", "values": [7, 3]}]}
		]
	}]}`
	p, err := ir.Parse([]byte(deck))
	if err != nil {
		t.Fatal(err)
	}
	data, err := NewBuilder(nil).Build(context.Background(), p)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	parts := unzipParts(t, data)

	notes, ok := parts["ppt/notesSlides/notesSlide1.xml"]
	if !ok || !strings.Contains(notes, "Pause here for questions") {
		t.Errorf("notes part missing or without text: %q", notes)
	}
	slide := parts["ppt/slides/slide1.xml"]
	for _, want := range []string{`i="1"`, `<a:latin typeface="Georgia"/>`, `anchor="ctr"`, `anchor="b"`} {
		if !strings.Contains(slide, want) {
			t.Errorf("slide1.xml missing %s", want)
		}
	}
	if !strings.Contains(parts["ppt/charts/chart1.xml"], "<c:lineChart>") {
		t.Errorf("chart1 should be a line chart:\n%s", parts["ppt/charts/chart1.xml"])
	}
	if !strings.Contains(parts["ppt/charts/chart2.xml"], "<c:doughnutChart>") {
		t.Errorf("chart2 should be a doughnut chart:\n%s", parts["ppt/charts/chart2.xml"])
	}
}

func TestBuildUsesAltTextWhenImageFails(t *testing.T) {
	p, err := ir.Parse([]byte(sampleDeck))
	if err != nil {
		t.Fatal(err)
	}
	data, err := NewBuilder(&stubImages{err: errors.New("offline")}).Build(context.Background(), p)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	slides := readBack(t, data)
	if !strings.Contains(strings.Join(slides[2], "|"), "Team photo") {
		t.Errorf("slide 3 texts = %v, want alt text placeholder", slides[2])
	}
}

func TestBuildRejectsEmpty(t *testing.T) {
	if _, err := NewBuilder(nil).Build(context.Background(), &ir.Presentation{}); err == nil {
		t.Error("expected error for presentation without slides")
	}
}

func TestGeometryAndColorConversion(t *testing.T) {
	if got := emu(ir.CanvasWidth); got != int64(slideWidth*emuPerInch) {
		t.Errorf("emu(canvas width) = %d", got)
	}
	if got := fontSize(40); got != 30 {
		t.Errorf("fontSize(40) = %d, want 30", got)
	}
	if got := fontSize(4); got != minFontSize {
		t.Errorf("fontSize(4) = %d", got)
	}
	tests := map[string]string{
		"#1a73e8": "FF1A73E8",
		"fff":     "FFFFFFFF",
		"#12345":  "FF333333",
		"#GGGGGG": "FF333333",
	}
	for in, want := range tests {
		if got := argb(in, "#333333"); got != want {
			t.Errorf("argb(%q) = %q, want %q", in, got, want)
		}
	}
}
