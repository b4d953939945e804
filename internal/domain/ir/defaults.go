package ir

// 归一化默认值。修改任何一项都会改变已归一化数据的再归一化结果，需要同步更新测试。
const (
	DefaultAuthor = "SlideDeck AI"

	DefaultPrimaryColor    = "#1a73e8"
	DefaultSecondaryColor  = "#e8710a"
	DefaultBackgroundColor = "#FFFFFF"
	DefaultFont            = "Calibri"

	DefaultLayout = LayoutTitleContent

	DefaultFontSize  = 18.0
	DefaultFontColor = "#333333"

	DefaultAlignment         = AlignLeft
	DefaultVerticalAlignment = VAlignTop

	DefaultChartType = ChartBar

	DefaultGenerationMode = ModeFromScratch
)

// 画布尺寸（英寸），提示词与文档构建共用
const (
	CanvasWidth  = 13.333
	CanvasHeight = 7.5
)

// DefaultTextGeometry 文本框默认几何
var DefaultTextGeometry = Geometry{X: 0.5, Y: 0.5, Width: 9, Height: 1}

// DefaultMediaGeometry 图片与图表默认几何
var DefaultMediaGeometry = Geometry{X: 1, Y: 1.5, Width: 8, Height: 5}

// DefaultTheme 返回默认主题
func DefaultTheme() ThemeSettings {
	return ThemeSettings{
		PrimaryColor:    DefaultPrimaryColor,
		SecondaryColor:  DefaultSecondaryColor,
		BackgroundColor: DefaultBackgroundColor,
		FontHeading:     DefaultFont,
		FontBody:        DefaultFont,
	}
}

// DefaultDesignTokens 返回默认设计令牌，序列字段为空切片
func DefaultDesignTokens() DesignTokens {
	return DesignTokens{
		PrimaryColor:    DefaultPrimaryColor,
		SecondaryColor:  DefaultSecondaryColor,
		BackgroundColor: DefaultBackgroundColor,
		FontHeading:     DefaultFont,
		FontBody:        DefaultFont,
		LayoutNames:     []string{},
		ExtractedColors: []string{},
		ExtractedFonts:  []string{},
	}
}
