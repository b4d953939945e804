package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const rootPath = "$"

// Option 归一化选项
type Option func(*Normalizer)

// WithStrictTitles 同一页出现多个 is_title 文本框时直接拒绝，而不是只给出警告
func WithStrictTitles() Option {
	return func(n *Normalizer) { n.strictTitles = true }
}

// Normalizer 把不可信的 JSON 值转换为完整的 Presentation。
//
// 校验自顶向下（Presentation → theme → slides → elements），遇到第一个结构错误即返回；
// 非结构字段缺失时填充 defaults.go 中的默认值。对同一输入的输出是确定的，
// 且对输出再做一次序列化 + 归一化得到相等的值。
type Normalizer struct {
	strictTitles bool
}

// NewNormalizer 创建归一化器
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var defaultNormalizer = NewNormalizer()

// Normalize 使用默认选项归一化，丢弃警告
func Normalize(raw any) (*Presentation, error) {
	p, _, err := defaultNormalizer.Normalize(raw)
	return p, err
}

// Parse 解析 JSON 文本并归一化
func Parse(data []byte) (*Presentation, error) {
	p, _, err := defaultNormalizer.Parse(data)
	return p, err
}

// Parse 解析 JSON 文本并归一化
func (n *Normalizer) Parse(data []byte) (*Presentation, []Warning, error) {
	raw, err := decodeJSON(data)
	if err != nil {
		return nil, nil, err
	}
	return n.Normalize(raw)
}

// Normalize 归一化任意 JSON 形态的值（map[string]any / []any / string / float64 / json.Number / bool / nil）
func (n *Normalizer) Normalize(raw any) (*Presentation, []Warning, error) {
	w := &walker{strictTitles: n.strictTitles}
	p, err := w.presentation(raw)
	if err != nil {
		return nil, nil, err
	}
	return p, w.warnings, nil
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, violation(rootPath, ConstraintType, "malformed json: %v", err)
	}
	if dec.More() {
		return nil, violation(rootPath, ConstraintType, "trailing data after json value")
	}
	return raw, nil
}

type walker struct {
	strictTitles bool
	warnings     []Warning
}

func (w *walker) warn(path, kind, format string, args ...any) {
	w.warnings = append(w.warnings, Warning{Path: path, Kind: kind, Detail: fmt.Sprintf(format, args...)})
}

func (w *walker) presentation(raw any) (*Presentation, error) {
	obj, err := asObject(raw, rootPath)
	if err != nil {
		return nil, err
	}

	p := &Presentation{}
	if p.Title, err = reqString(obj, "title", ""); err != nil {
		return nil, err
	}
	if p.Subtitle, err = optString(obj, "subtitle", "", ""); err != nil {
		return nil, err
	}
	if p.Author, err = optString(obj, "author", "", DefaultAuthor); err != nil {
		return nil, err
	}
	if p.Theme, err = theme(obj["theme"], "theme"); err != nil {
		return nil, err
	}

	rawSlides, present := obj["slides"]
	if !present || rawSlides == nil {
		return nil, violation("slides", ConstraintRequired, "slides is required")
	}
	items, ok := rawSlides.([]any)
	if !ok {
		return nil, violation("slides", ConstraintType, "expected array, got %s", typeName(rawSlides))
	}
	if len(items) == 0 {
		return nil, violation("slides", ConstraintMinItems, "at least one slide is required")
	}

	p.Slides = make([]Slide, 0, len(items))
	for i, item := range items {
		s, err := w.slide(item, indexPath("slides", i), p.Theme)
		if err != nil {
			return nil, err
		}
		p.Slides = append(p.Slides, s)
	}
	return p, nil
}

func theme(raw any, path string) (ThemeSettings, error) {
	t := DefaultTheme()
	if raw == nil {
		return t, nil
	}
	obj, err := asObject(raw, path)
	if err != nil {
		return t, err
	}
	fields := []struct {
		key string
		dst *string
	}{
		{"primary_color", &t.PrimaryColor},
		{"secondary_color", &t.SecondaryColor},
		{"background_color", &t.BackgroundColor},
		{"font_heading", &t.FontHeading},
		{"font_body", &t.FontBody},
	}
	for _, f := range fields {
		v, err := optString(obj, f.key, path, *f.dst)
		if err != nil {
			return t, err
		}
		// 主题字段不允许为空串
		if strings.TrimSpace(v) != "" {
			*f.dst = v
		}
	}
	return t, nil
}

func (w *walker) slide(raw any, path string, th ThemeSettings) (Slide, error) {
	var s Slide
	obj, err := asObject(raw, path)
	if err != nil {
		return s, err
	}
	if s.Layout, err = optEnum(obj, "layout", path, DefaultLayout, Layouts); err != nil {
		return s, err
	}
	if s.BackgroundColor, err = optString(obj, "background_color", path, th.BackgroundColor); err != nil {
		return s, err
	}
	if s.BackgroundColor == "" {
		s.BackgroundColor = th.BackgroundColor
	}
	if s.SpeakerNotes, err = optString(obj, "speaker_notes", path, ""); err != nil {
		return s, err
	}

	items, err := optArray(obj, "elements", path)
	if err != nil {
		return s, err
	}
	elementsPath := joinPath(path, "elements")
	s.Elements = make([]Element, 0, len(items))
	titles := 0
	for j, item := range items {
		elPath := indexPath(elementsPath, j)
		el, err := w.element(item, elPath, th)
		if err != nil {
			return s, err
		}
		if tb, ok := el.(TextBox); ok && tb.IsTitle {
			titles++
			if titles == 2 {
				if w.strictTitles {
					return s, violation(joinPath(elPath, "is_title"), ConstraintUnique, "slide already has a title text box")
				}
				w.warn(elementsPath, WarnMultipleTitles, "more than one text box has is_title=true")
			}
		}
		s.Elements = append(s.Elements, el)
	}
	return s, nil
}

func (w *walker) element(raw any, path string, th ThemeSettings) (Element, error) {
	obj, err := asObject(raw, path)
	if err != nil {
		return nil, err
	}
	typePath := joinPath(path, "type")
	rawType, present := obj["type"]
	if !present || rawType == nil {
		return nil, violation(typePath, ConstraintRequired, "element type is required")
	}
	tag, ok := rawType.(string)
	if !ok {
		return nil, violation(typePath, ConstraintType, "expected string, got %s", typeName(rawType))
	}
	switch ElementType(tag) {
	case ElementText:
		return textBox(obj, path, th)
	case ElementImage:
		return w.image(obj, path)
	case ElementChart:
		return chart(obj, path)
	default:
		return nil, violation(typePath, ConstraintEnum, "unknown element type %q, expected one of %s", tag, joinValues(ElementTypes))
	}
}

func textBox(obj map[string]any, path string, th ThemeSettings) (Element, error) {
	var (
		t   TextBox
		err error
	)
	if t.Content, err = reqString(obj, "content", path); err != nil {
		return nil, err
	}
	if t.IsTitle, err = optBool(obj, "is_title", path, false); err != nil {
		return nil, err
	}
	if t.Geometry, err = geometry(obj, path, DefaultTextGeometry); err != nil {
		return nil, err
	}
	defaultFont := th.FontBody
	if t.IsTitle {
		defaultFont = th.FontHeading
	}
	if t.FontName, err = optString(obj, "font_name", path, defaultFont); err != nil {
		return nil, err
	}
	if t.FontName == "" {
		t.FontName = defaultFont
	}
	if t.FontSize, err = optNumber(obj, "font_size", path, DefaultFontSize); err != nil {
		return nil, err
	}
	if t.FontSize <= 0 {
		return nil, violation(joinPath(path, "font_size"), ConstraintRange, "font_size must be > 0, got %v", t.FontSize)
	}
	if t.FontBold, err = optBool(obj, "font_bold", path, false); err != nil {
		return nil, err
	}
	if t.FontItalic, err = optBool(obj, "font_italic", path, false); err != nil {
		return nil, err
	}
	if t.FontColor, err = optString(obj, "font_color", path, DefaultFontColor); err != nil {
		return nil, err
	}
	if t.FontColor == "" {
		t.FontColor = DefaultFontColor
	}
	if t.Alignment, err = optEnum(obj, "alignment", path, DefaultAlignment, Alignments); err != nil {
		return nil, err
	}
	if t.VerticalAlignment, err = optEnum(obj, "vertical_alignment", path, DefaultVerticalAlignment, VerticalAlignments); err != nil {
		return nil, err
	}
	return t, nil
}

func (w *walker) image(obj map[string]any, path string) (Element, error) {
	var (
		im  ImageElement
		err error
	)
	if im.URL, err = optString(obj, "url", path, ""); err != nil {
		return nil, err
	}
	if im.Path, err = optString(obj, "path", path, ""); err != nil {
		return nil, err
	}
	im.URL = strings.TrimSpace(im.URL)
	im.Path = strings.TrimSpace(im.Path)
	switch {
	case im.URL == "" && im.Path == "":
		return nil, violation(joinPath(path, "url"), ConstraintRequired, "image needs a url or a path")
	case im.URL != "" && im.Path != "":
		// url 优先
		w.warn(path, WarnImageSourceAmbiguous, "both url and path given, keeping url and dropping path %q", im.Path)
		im.Path = ""
	}
	if im.AltText, err = optString(obj, "alt_text", path, ""); err != nil {
		return nil, err
	}
	if im.Geometry, err = geometry(obj, path, DefaultMediaGeometry); err != nil {
		return nil, err
	}
	return im, nil
}

func chart(obj map[string]any, path string) (Element, error) {
	var (
		c   ChartElement
		err error
	)
	if c.ChartType, err = optEnum(obj, "chart_type", path, DefaultChartType, ChartTypes); err != nil {
		return nil, err
	}
	if c.Title, err = optString(obj, "title", path, ""); err != nil {
		return nil, err
	}

	rawCategories, err := optArray(obj, "categories", path)
	if err != nil {
		return nil, err
	}
	categoriesPath := joinPath(path, "categories")
	c.Categories = make([]string, 0, len(rawCategories))
	for i, rc := range rawCategories {
		s, ok := rc.(string)
		if !ok {
			return nil, violation(indexPath(categoriesPath, i), ConstraintType, "expected string, got %s", typeName(rc))
		}
		c.Categories = append(c.Categories, s)
	}

	rawSeries, err := optArray(obj, "series", path)
	if err != nil {
		return nil, err
	}
	seriesPath := joinPath(path, "series")
	c.Series = make([]Series, 0, len(rawSeries))
	for k, rs := range rawSeries {
		sp := indexPath(seriesPath, k)
		s, err := series(rs, sp, k, len(c.Categories))
		if err != nil {
			return nil, err
		}
		c.Series = append(c.Series, s)
	}

	if c.Geometry, err = geometry(obj, path, DefaultMediaGeometry); err != nil {
		return nil, err
	}
	return c, nil
}

func series(raw any, path string, index, categories int) (Series, error) {
	var s Series
	obj, err := asObject(raw, path)
	if err != nil {
		return s, err
	}
	if s.Name, err = optString(obj, "name", path, ""); err != nil {
		return s, err
	}
	if s.Name == "" {
		s.Name = "Series " + strconv.Itoa(index+1)
	}

	valuesPath := joinPath(path, "values")
	rawValues, present := obj["values"]
	if !present || rawValues == nil {
		return s, violation(valuesPath, ConstraintRequired, "values is required")
	}
	items, ok := rawValues.([]any)
	if !ok {
		return s, violation(valuesPath, ConstraintType, "expected array, got %s", typeName(rawValues))
	}
	s.Values = make([]float64, 0, len(items))
	for i, item := range items {
		v, err := number(item, indexPath(valuesPath, i))
		if err != nil {
			return s, err
		}
		s.Values = append(s.Values, v)
	}
	if len(s.Values) != categories {
		return s, violation(valuesPath, ConstraintLengthMismatch,
			"series has %d values but chart has %d categories", len(s.Values), categories)
	}
	return s, nil
}

func geometry(obj map[string]any, path string, def Geometry) (Geometry, error) {
	var (
		g   Geometry
		err error
	)
	if g.X, err = optNumber(obj, "x", path, def.X); err != nil {
		return g, err
	}
	if g.Y, err = optNumber(obj, "y", path, def.Y); err != nil {
		return g, err
	}
	if g.Width, err = optNumber(obj, "width", path, def.Width); err != nil {
		return g, err
	}
	if g.Width < 0 {
		return g, violation(joinPath(path, "width"), ConstraintRange, "width must be >= 0, got %v", g.Width)
	}
	if g.Height, err = optNumber(obj, "height", path, def.Height); err != nil {
		return g, err
	}
	if g.Height < 0 {
		return g, violation(joinPath(path, "height"), ConstraintRange, "height must be >= 0, got %v", g.Height)
	}
	return g, nil
}

// ---- 基础取值 ----

func asObject(raw any, path string) (map[string]any, error) {
	if raw == nil {
		return nil, violation(path, ConstraintRequired, "value is required")
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, violation(path, ConstraintType, "expected object, got %s", typeName(raw))
	}
	return obj, nil
}

func reqString(obj map[string]any, key, path string) (string, error) {
	fieldPath := joinPath(path, key)
	v, present := obj[key]
	if !present || v == nil {
		return "", violation(fieldPath, ConstraintRequired, "%s is required", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", violation(fieldPath, ConstraintType, "expected string, got %s", typeName(v))
	}
	return s, nil
}

func optString(obj map[string]any, key, path, def string) (string, error) {
	v, present := obj[key]
	if !present || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", violation(joinPath(path, key), ConstraintType, "expected string, got %s", typeName(v))
	}
	return s, nil
}

func optBool(obj map[string]any, key, path string, def bool) (bool, error) {
	v, present := obj[key]
	if !present || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, violation(joinPath(path, key), ConstraintType, "expected boolean, got %s", typeName(v))
	}
	return b, nil
}

func optNumber(obj map[string]any, key, path string, def float64) (float64, error) {
	v, present := obj[key]
	if !present || v == nil {
		return def, nil
	}
	return number(v, joinPath(path, key))
}

func optArray(obj map[string]any, key, path string) ([]any, error) {
	v, present := obj[key]
	if !present || v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, violation(joinPath(path, key), ConstraintType, "expected array, got %s", typeName(v))
	}
	return items, nil
}

func optEnum[T ~string](obj map[string]any, key, path string, def T, set []T) (T, error) {
	s, err := optString(obj, key, path, string(def))
	if err != nil {
		return "", err
	}
	if !oneOf(T(s), set) {
		return "", violation(joinPath(path, key), ConstraintEnum, "unknown value %q, expected one of %s", s, joinValues(set))
	}
	return T(s), nil
}

func number(v any, path string) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, violation(path, ConstraintType, "invalid number %q", n.String())
		}
		f = parsed
	default:
		return 0, violation(path, ConstraintType, "expected number, got %s", typeName(v))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, violation(path, ConstraintRange, "number must be finite")
	}
	return f, nil
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int64, int32, json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func joinPath(parent, key string) string {
	if parent == "" || parent == rootPath {
		return key
	}
	return parent + "." + key
}

func indexPath(parent string, i int) string {
	return parent + "[" + strconv.Itoa(i) + "]"
}

func joinValues[T ~string](set []T) string {
	parts := make([]string, len(set))
	for i, v := range set {
		parts[i] = string(v)
	}
	return strings.Join(parts, "|")
}
