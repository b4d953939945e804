// Package pptx 读写 .pptx：Builder 用 GoPPT 从归一化的 Presentation 生成文档，Scanner 从上传文件提取设计令牌。
package pptx

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	ppt "github.com/VantageDataChat/GoPPT"

	"slidedeck-ai/internal/domain/ir"
	"slidedeck-ai/pkg/logger"
)

// 写出器的幻灯片为 10 x 5.625 英寸，IR 画布为 13.333 x 7.5 英寸，统一按比例缩放
const (
	emuPerInch  = 914400
	slideWidth  = 10.0
	slideHeight = 5.625
	scale       = slideWidth / ir.CanvasWidth

	minFontSize = 6
)

// ImageSource 按 URL 或本地路径加载图片
type ImageSource interface {
	Load(ctx context.Context, src string) ([]byte, string, error)
}

// Builder 生成 .pptx
type Builder struct {
	images ImageSource
}

func NewBuilder(images ImageSource) *Builder {
	return &Builder{images: images}
}

// Build 输出 .pptx 字节。图片加载失败时以替代文字占位，不影响整体生成。
func (b *Builder) Build(ctx context.Context, p *ir.Presentation) ([]byte, error) {
	if p == nil || len(p.Slides) == 0 {
		return nil, fmt.Errorf("presentation has no slides")
	}

	doc := ppt.New()
	doc.GetDocumentProperties().Title = p.Title
	doc.GetDocumentProperties().Creator = p.Author

	for i := range p.Slides {
		var slide *ppt.Slide
		if i == 0 {
			slide = doc.GetActiveSlide()
		} else {
			slide = doc.CreateSlide()
		}
		b.renderSlide(ctx, slide, &p.Slides[i], i)
	}

	w, err := ppt.NewWriter(doc, ppt.WriterPowerPoint2007)
	if err != nil {
		return nil, fmt.Errorf("failed to create PPT writer: %w", err)
	}
	var buf bytes.Buffer
	if err := w.(*ppt.PPTXWriter).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to save PPT: %w", err)
	}
	return buf.Bytes(), nil
}

func (b *Builder) renderSlide(ctx context.Context, slide *ppt.Slide, s *ir.Slide, index int) {
	slide.SetBackground(solidFill(s.BackgroundColor, ir.DefaultBackgroundColor))
	if s.SpeakerNotes != "" {
		slide.SetNotes(s.SpeakerNotes)
	}

	for j, el := range s.Elements {
		switch e := el.(type) {
		case ir.TextBox:
			renderText(slide, e)
		case ir.ImageElement:
			b.renderImage(ctx, slide, e, index, j)
		case ir.ChartElement:
			renderChart(slide, e)
		}
	}
}

func renderText(slide *ppt.Slide, t ir.TextBox) {
	shape := slide.CreateRichTextShape()
	place(shape, t.Geometry)
	shape.SetWordWrap(true)
	shape.SetTextAnchor(anchor(t.VerticalAlignment))

	lines := strings.Split(t.Content, "\n")
	for i, line := range lines {
		if i > 0 {
			shape.CreateParagraph()
		}
		run := shape.CreateTextRun(line)
		run.GetFont().
			SetName(t.FontName).
			SetSize(fontSize(t.FontSize)).
			SetBold(t.FontBold).
			SetItalic(t.FontItalic).
			SetColor(argbColor(t.FontColor, ir.DefaultFontColor))
		align(shape.GetActiveParagraph(), t.Alignment)
	}
}

func (b *Builder) renderImage(ctx context.Context, slide *ppt.Slide, img ir.ImageElement, slideIndex, elementIndex int) {
	src := img.Source()
	if b.images != nil {
		data, mime, err := b.images.Load(ctx, src)
		if err == nil {
			shape := slide.CreateDrawingShape()
			shape.SetImageData(data, mime)
			shape.SetDescription(img.AltText)
			shape.SetOffsetX(emu(img.X)).SetOffsetY(emu(img.Y))
			shape.SetWidth(emu(img.Width)).SetHeight(emu(img.Height))
			return
		}
		logger.Warn(ctx, "image load failed, using placeholder",
			"slide", slideIndex,
			"element", elementIndex,
			"source", src,
			"error", err.Error(),
		)
	}

	label := img.AltText
	if label == "" {
		label = "[image]"
	}
	shape := slide.CreateRichTextShape()
	place(shape, img.Geometry)
	shape.SetFill(solidFill("#F1F5F9", "#F1F5F9"))
	shape.SetTextAnchor(ppt.TextAnchorMiddle)
	run := shape.CreateTextRun(label)
	run.GetFont().SetSize(fontSize(14)).SetColor(argbColor("#64748B", "#64748B"))
	align(shape.GetActiveParagraph(), ir.AlignCenter)
}

var seriesPalette = []string{"#1a73e8", "#e8710a", "#34a853", "#a142f4", "#ea4335", "#24c1e0"}

// renderChart 按 chart_type 生成原生图表，数据写入 ppt/charts/chartN.xml
func renderChart(slide *ppt.Slide, c ir.ChartElement) {
	chart := slide.CreateChartShape()
	chart.SetOffsetX(emu(c.X)).SetOffsetY(emu(c.Y))
	chart.SetWidth(emu(c.Width)).SetHeight(emu(c.Height))

	if c.Title != "" {
		chart.GetTitle().SetText(c.Title).Font.SetSize(fontSize(16)).SetBold(true)
	} else {
		chart.GetTitle().SetVisible(false)
	}

	series := make([]*ppt.ChartSeries, len(c.Series))
	for i, s := range c.Series {
		name := s.Name
		if name == "" {
			name = "Series " + strconv.Itoa(i+1)
		}
		series[i] = ppt.NewChartSeriesOrdered(name, c.Categories, s.Values).
			SetFillColor(argbColor(seriesPalette[i%len(seriesPalette)], ir.DefaultPrimaryColor))
	}

	switch c.ChartType {
	case ir.ChartLine:
		line := ppt.NewLineChart()
		for _, s := range series {
			line.AddSeries(s)
		}
		chart.GetPlotArea().SetType(line)
	case ir.ChartPie:
		pie := ppt.NewPieChart()
		for _, s := range series {
			pie.AddSeries(s)
		}
		chart.GetPlotArea().SetType(pie)
	case ir.ChartDoughnut:
		doughnut := ppt.NewDoughnutChart()
		for _, s := range series {
			doughnut.AddSeries(s)
		}
		chart.GetPlotArea().SetType(doughnut)
	default:
		bar := ppt.NewBarChart()
		for _, s := range series {
			bar.AddSeries(s)
		}
		chart.GetPlotArea().SetType(bar)
	}

	// 单系列柱状图和折线图不需要图例
	if len(series) < 2 && c.ChartType != ir.ChartPie && c.ChartType != ir.ChartDoughnut {
		chart.GetLegend().Visible = false
	}
}

func place(shape *ppt.RichTextShape, g ir.Geometry) {
	shape.SetOffsetX(emu(g.X)).SetOffsetY(emu(g.Y))
	shape.SetWidth(emu(g.Width)).SetHeight(emu(g.Height))
}

func align(p *ppt.Paragraph, a ir.Alignment) {
	switch a {
	case ir.AlignCenter:
		p.SetAlignment(ppt.NewAlignment().SetHorizontal(ppt.HorizontalCenter))
	case ir.AlignRight:
		p.SetAlignment(ppt.NewAlignment().SetHorizontal(ppt.HorizontalRight))
	}
}

func emu(inches float64) int64 {
	return int64(math.Round(inches * scale * emuPerInch))
}

func fontSize(pt float64) int {
	n := int(math.Round(pt * scale))
	if n < minFontSize {
		return minFontSize
	}
	return n
}

func anchor(v ir.VerticalAlignment) ppt.TextAnchorType {
	switch v {
	case ir.VAlignMiddle:
		return ppt.TextAnchorMiddle
	case ir.VAlignBottom:
		return ppt.TextAnchorBottom
	default:
		return ppt.TextAnchorTop
	}
}

func solidFill(hex, fallback string) *ppt.Fill {
	return ppt.NewFill().SetSolid(argbColor(hex, fallback))
}

func argbColor(hex, fallback string) ppt.Color {
	return ppt.NewColor(argb(hex, fallback))
}

// argb "#RRGGBB" 转 GoPPT 的 "FFRRGGBB"，非法值取 fallback
func argb(hex, fallback string) string {
	if v, ok := parseHex(hex); ok {
		return "FF" + v
	}
	v, _ := parseHex(fallback)
	return "FF" + v
}

func parseHex(s string) (string, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return "000000", false
	}
	if _, err := strconv.ParseUint(s, 16, 32); err != nil {
		return "000000", false
	}
	return strings.ToUpper(s), true
}
