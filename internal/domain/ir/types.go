// Package ir 定义演示文稿中间表示（IR）及其校验/归一化逻辑。
//
// IR 把“模型生成”与“文档构建/预览/修改”解耦：所有消费方只看到经过 Normalize
// 处理后的完整值，不需要再做任何字段兜底。
package ir

// Layout 幻灯片版式
type Layout string

const (
	LayoutTitle         Layout = "title"
	LayoutTitleContent  Layout = "title_content"
	LayoutTwoColumn     Layout = "two_column"
	LayoutBlank         Layout = "blank"
	LayoutSectionHeader Layout = "section_header"
	LayoutImageFull     Layout = "image_full"
)

// Layouts 全部合法版式
var Layouts = []Layout{
	LayoutTitle, LayoutTitleContent, LayoutTwoColumn,
	LayoutBlank, LayoutSectionHeader, LayoutImageFull,
}

// ChartType 图表类型
type ChartType string

const (
	ChartBar      ChartType = "bar"
	ChartLine     ChartType = "line"
	ChartPie      ChartType = "pie"
	ChartDoughnut ChartType = "doughnut"
)

// ChartTypes 全部合法图表类型
var ChartTypes = []ChartType{ChartBar, ChartLine, ChartPie, ChartDoughnut}

// Alignment 水平对齐
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// Alignments 全部合法水平对齐方式
var Alignments = []Alignment{AlignLeft, AlignCenter, AlignRight}

// VerticalAlignment 垂直对齐
type VerticalAlignment string

const (
	VAlignTop    VerticalAlignment = "top"
	VAlignMiddle VerticalAlignment = "middle"
	VAlignBottom VerticalAlignment = "bottom"
)

// VerticalAlignments 全部合法垂直对齐方式
var VerticalAlignments = []VerticalAlignment{VAlignTop, VAlignMiddle, VAlignBottom}

// ElementType 元素类型标签
type ElementType string

const (
	ElementText  ElementType = "text"
	ElementImage ElementType = "image"
	ElementChart ElementType = "chart"
)

// ElementTypes 全部合法元素类型
var ElementTypes = []ElementType{ElementText, ElementImage, ElementChart}

// Presentation 演示文稿根对象。身份（presentation id）由生成服务分配，不属于 IR。
type Presentation struct {
	Title    string        `json:"title"`
	Subtitle string        `json:"subtitle"`
	Author   string        `json:"author"`
	Theme    ThemeSettings `json:"theme"`
	Slides   []Slide       `json:"slides"`
}

// SlideCount 返回幻灯片数量，nil 安全
func (p *Presentation) SlideCount() int {
	if p == nil {
		return 0
	}
	return len(p.Slides)
}

// ThemeSettings 主题，五个字段归一化后必定非空
type ThemeSettings struct {
	PrimaryColor    string `json:"primary_color"`
	SecondaryColor  string `json:"secondary_color"`
	BackgroundColor string `json:"background_color"`
	FontHeading     string `json:"font_heading"`
	FontBody        string `json:"font_body"`
}

// Slide 单页幻灯片。Elements 的顺序即 z 序与阅读顺序。
type Slide struct {
	Layout          Layout    `json:"layout"`
	BackgroundColor string    `json:"background_color"`
	Elements        []Element `json:"elements"`
	SpeakerNotes    string    `json:"speaker_notes"`
}

// Title 返回本页第一个标题文本框的内容
func (s Slide) Title() (string, bool) {
	for _, el := range s.Elements {
		if tb, ok := el.(TextBox); ok && tb.IsTitle {
			return tb.Content, true
		}
	}
	return "", false
}

// Geometry 元素位置与尺寸，单位由生成方定义（英寸画布），核心不做换算
type Geometry struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Element 幻灯片元素，封闭的三选一联合类型：TextBox、ImageElement、ChartElement。
type Element interface {
	Type() ElementType
	Bounds() Geometry
	isElement()
}

// TextBox 文本框
type TextBox struct {
	Content string `json:"content"`
	IsTitle bool   `json:"is_title"`
	Geometry
	FontName          string            `json:"font_name"`
	FontSize          float64           `json:"font_size"`
	FontBold          bool              `json:"font_bold"`
	FontItalic        bool              `json:"font_italic"`
	FontColor         string            `json:"font_color"`
	Alignment         Alignment         `json:"alignment"`
	VerticalAlignment VerticalAlignment `json:"vertical_alignment"`
}

func (TextBox) Type() ElementType  { return ElementText }
func (t TextBox) Bounds() Geometry { return t.Geometry }
func (TextBox) isElement()         {}

// ImageElement 图片。归一化后 URL 与 Path 恰有一个非空。
type ImageElement struct {
	URL     string `json:"url,omitempty"`
	Path    string `json:"path,omitempty"`
	AltText string `json:"alt_text"`
	Geometry
}

func (ImageElement) Type() ElementType  { return ElementImage }
func (i ImageElement) Bounds() Geometry { return i.Geometry }
func (ImageElement) isElement()         {}

// Source 返回图片来源（url 优先）
func (i ImageElement) Source() string {
	if i.URL != "" {
		return i.URL
	}
	return i.Path
}

// Series 图表数据系列，len(Values) 恒等于所属图表的 len(Categories)
type Series struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// ChartElement 图表
type ChartElement struct {
	ChartType  ChartType `json:"chart_type"`
	Title      string    `json:"title"`
	Categories []string  `json:"categories"`
	Series     []Series  `json:"series"`
	Geometry
}

func (ChartElement) Type() ElementType  { return ElementChart }
func (c ChartElement) Bounds() Geometry { return c.Geometry }
func (ChartElement) isElement()         {}

// DesignTokens 从上传的 .pptx 中提取的风格约束，只作为生成约束使用，不属于 Presentation。
type DesignTokens struct {
	PrimaryColor    string   `json:"primary_color"`
	SecondaryColor  string   `json:"secondary_color"`
	BackgroundColor string   `json:"background_color"`
	FontHeading     string   `json:"font_heading"`
	FontBody        string   `json:"font_body"`
	LayoutNames     []string `json:"layout_names"`
	ExtractedColors []string `json:"extracted_colors"`
	ExtractedFonts  []string `json:"extracted_fonts"`
}

// Theme 把设计令牌转换为主题
func (t DesignTokens) Theme() ThemeSettings {
	return ThemeSettings{
		PrimaryColor:    t.PrimaryColor,
		SecondaryColor:  t.SecondaryColor,
		BackgroundColor: t.BackgroundColor,
		FontHeading:     t.FontHeading,
		FontBody:        t.FontBody,
	}
}
