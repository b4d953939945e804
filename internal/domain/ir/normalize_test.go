package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
)

func mustDecode(t *testing.T, s string) any {
	t.Helper()
	raw, err := decodeJSON([]byte(s))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return raw
}

func TestNormalizeFillsDefaults(t *testing.T) {
	raw := mustDecode(t, `{
		"title": "Quarterly review",
		"slides": [
			{"elements": [
				{"type": "text", "content": "Quarterly review", "is_title": true},
				{"type": "text", "content": "Revenue grew"},
				{"type": "image", "url": "https://example.com/a.png"},
				{"type": "chart", "categories": ["Q1"], "series": [{"values": [1]}]}
			]}
		]
	}`)

	p, warnings, err := NewNormalizer().Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", warnings)
	}
	if p.Author != DefaultAuthor || p.Subtitle != "" {
		t.Fatalf("author/subtitle defaults: %q %q", p.Author, p.Subtitle)
	}
	if p.Theme != DefaultTheme() {
		t.Fatalf("theme = %+v, want defaults", p.Theme)
	}

	s := p.Slides[0]
	if s.Layout != LayoutTitleContent || s.BackgroundColor != DefaultBackgroundColor || s.SpeakerNotes != "" {
		t.Fatalf("slide defaults: %+v", s)
	}
	if len(s.Elements) != 4 {
		t.Fatalf("elements = %d, want 4", len(s.Elements))
	}

	title := s.Elements[0].(TextBox)
	body := s.Elements[1].(TextBox)
	if title.FontName != p.Theme.FontHeading || body.FontName != p.Theme.FontBody {
		t.Fatalf("font defaults: title=%q body=%q", title.FontName, body.FontName)
	}
	if body.Geometry != DefaultTextGeometry || body.FontSize != DefaultFontSize || body.FontColor != DefaultFontColor {
		t.Fatalf("text defaults: %+v", body)
	}
	if body.Alignment != AlignLeft || body.VerticalAlignment != VAlignTop {
		t.Fatalf("alignment defaults: %q %q", body.Alignment, body.VerticalAlignment)
	}

	img := s.Elements[2].(ImageElement)
	if img.Geometry != DefaultMediaGeometry || img.AltText != "" {
		t.Fatalf("image defaults: %+v", img)
	}

	ch := s.Elements[3].(ChartElement)
	if ch.ChartType != ChartBar || ch.Series[0].Name != "Series 1" || ch.Geometry != DefaultMediaGeometry {
		t.Fatalf("chart defaults: %+v", ch)
	}
}

func TestNormalizeSlideBackgroundFollowsTheme(t *testing.T) {
	raw := mustDecode(t, `{"title":"t","theme":{"background_color":"#101010"},"slides":[{}]}`)
	p, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got := p.Slides[0].BackgroundColor; got != "#101010" {
		t.Fatalf("background = %q, want theme background", got)
	}
	if p.Slides[0].Elements == nil {
		t.Fatalf("elements must be an empty slice, not nil")
	}
}

func TestNormalizeRejects(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		path       string
		constraint Constraint
	}{
		{
			name:       "unsupported element type",
			input:      `{"title":"t","slides":[{"elements":[{"type":"video","src":"x.mp4"}]}]}`,
			path:       "slides[0].elements[0].type",
			constraint: ConstraintEnum,
		},
		{
			name:       "series shorter than categories",
			input:      `{"title":"t","slides":[{"elements":[{"type":"chart","categories":["Q1","Q2","Q3"],"series":[{"name":"Revenue","values":[10,20]}]}]}]}`,
			path:       "slides[0].elements[0].series[0].values",
			constraint: ConstraintLengthMismatch,
		},
		{
			name:       "missing element type",
			input:      `{"title":"t","slides":[{"elements":[{"content":"x"}]}]}`,
			path:       "slides[0].elements[0].type",
			constraint: ConstraintRequired,
		},
		{
			name:       "missing title",
			input:      `{"slides":[{}]}`,
			path:       "title",
			constraint: ConstraintRequired,
		},
		{
			name:       "title wrong type",
			input:      `{"title":42,"slides":[{}]}`,
			path:       "title",
			constraint: ConstraintType,
		},
		{
			name:       "missing slides",
			input:      `{"title":"t"}`,
			path:       "slides",
			constraint: ConstraintRequired,
		},
		{
			name:       "empty slides",
			input:      `{"title":"t","slides":[]}`,
			path:       "slides",
			constraint: ConstraintMinItems,
		},
		{
			name:       "root is not an object",
			input:      `["t"]`,
			path:       "$",
			constraint: ConstraintType,
		},
		{
			name:       "theme is not an object",
			input:      `{"title":"t","theme":"dark","slides":[{}]}`,
			path:       "theme",
			constraint: ConstraintType,
		},
		{
			name:       "theme color not a string",
			input:      `{"title":"t","theme":{"secondary_color":7},"slides":[{}]}`,
			path:       "theme.secondary_color",
			constraint: ConstraintType,
		},
		{
			name:       "unknown layout",
			input:      `{"title":"t","slides":[{"layout":"three_column"}]}`,
			path:       "slides[0].layout",
			constraint: ConstraintEnum,
		},
		{
			name:       "unknown alignment",
			input:      `{"title":"t","slides":[{"elements":[{"type":"text","content":"x","alignment":"justify"}]}]}`,
			path:       "slides[0].elements[0].alignment",
			constraint: ConstraintEnum,
		},
		{
			name:       "unknown chart type",
			input:      `{"title":"t","slides":[{"elements":[{"type":"chart","chart_type":"radar"}]}]}`,
			path:       "slides[0].elements[0].chart_type",
			constraint: ConstraintEnum,
		},
		{
			name:       "negative width",
			input:      `{"title":"t","slides":[{"elements":[{"type":"text","content":"x","width":-1}]}]}`,
			path:       "slides[0].elements[0].width",
			constraint: ConstraintRange,
		},
		{
			name:       "zero font size",
			input:      `{"title":"t","slides":[{"elements":[{"type":"text","content":"x","font_size":0}]}]}`,
			path:       "slides[0].elements[0].font_size",
			constraint: ConstraintRange,
		},
		{
			name:       "text without content",
			input:      `{"title":"t","slides":[{},{"elements":[{"type":"text"}]}]}`,
			path:       "slides[1].elements[0].content",
			constraint: ConstraintRequired,
		},
		{
			name:       "geometry given as string",
			input:      `{"title":"t","slides":[{"elements":[{"type":"image","path":"a.png","x":"1in"}]}]}`,
			path:       "slides[0].elements[0].x",
			constraint: ConstraintType,
		},
		{
			name:       "image without source",
			input:      `{"title":"t","slides":[{"elements":[{"type":"image","alt_text":"logo"}]}]}`,
			path:       "slides[0].elements[0].url",
			constraint: ConstraintRequired,
		},
		{
			name:       "category not a string",
			input:      `{"title":"t","slides":[{"elements":[{"type":"chart","categories":["Q1",2]}]}]}`,
			path:       "slides[0].elements[0].categories[1]",
			constraint: ConstraintType,
		},
		{
			name:       "series without values",
			input:      `{"title":"t","slides":[{"elements":[{"type":"chart","categories":[],"series":[{"name":"a"}]}]}]}`,
			path:       "slides[0].elements[0].series[0].values",
			constraint: ConstraintRequired,
		},
		{
			name:       "element is not an object",
			input:      `{"title":"t","slides":[{"elements":["hello"]}]}`,
			path:       "slides[0].elements[0]",
			constraint: ConstraintType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(mustDecode(t, tt.input))
			if err == nil {
				t.Fatalf("expected rejection")
			}
			if !errors.Is(err, ErrInvalidIR) {
				t.Fatalf("error %v is not ErrInvalidIR", err)
			}
			ve, ok := AsValidationError(err)
			if !ok {
				t.Fatalf("error %T is not a ValidationError", err)
			}
			if ve.Path != tt.path || ve.Constraint != tt.constraint {
				t.Fatalf("got (%s, %s), want (%s, %s)", ve.Path, ve.Constraint, tt.path, tt.constraint)
			}
		})
	}
}

func TestNormalizeRejectsFirstErrorOnly(t *testing.T) {
	raw := mustDecode(t, `{"title":"t","slides":[
		{"layout":"bogus"},
		{"elements":[{"type":"video"}]}
	]}`)
	_, err := Normalize(raw)
	ve, ok := AsValidationError(err)
	if !ok || ve.Path != "slides[0].layout" {
		t.Fatalf("want first error at slides[0].layout, got %v", err)
	}
}

func TestNormalizeRejectsNonFiniteNumbers(t *testing.T) {
	raw := map[string]any{
		"title": "t",
		"slides": []any{map[string]any{
			"elements": []any{map[string]any{"type": "text", "content": "x", "y": math.Inf(1)}},
		}},
	}
	_, err := Normalize(raw)
	ve, ok := AsValidationError(err)
	if !ok || ve.Constraint != ConstraintRange || ve.Path != "slides[0].elements[0].y" {
		t.Fatalf("unexpected result: %v", err)
	}
}

func TestNormalizeImageURLWins(t *testing.T) {
	raw := mustDecode(t, `{"title":"t","slides":[{"elements":[
		{"type":"image","url":"https://cdn.example.com/x.png","path":"/tmp/x.png"}
	]}]}`)
	p, warnings, err := NewNormalizer().Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	img := p.Slides[0].Elements[0].(ImageElement)
	if img.URL != "https://cdn.example.com/x.png" || img.Path != "" {
		t.Fatalf("image source = %+v, want url only", img)
	}
	if len(warnings) != 1 || warnings[0].Kind != WarnImageSourceAmbiguous || warnings[0].Path != "slides[0].elements[0]" {
		t.Fatalf("warnings = %+v", warnings)
	}
}

func TestNormalizeMultipleTitles(t *testing.T) {
	input := `{"title":"t","slides":[{"elements":[
		{"type":"text","content":"A","is_title":true},
		{"type":"text","content":"B","is_title":true},
		{"type":"text","content":"C","is_title":true}
	]}]}`

	p, warnings, err := NewNormalizer().Normalize(mustDecode(t, input))
	if err != nil {
		t.Fatalf("lenient Normalize: %v", err)
	}
	if len(p.Slides[0].Elements) != 3 {
		t.Fatalf("all text boxes must be kept")
	}
	if len(warnings) != 1 || warnings[0].Kind != WarnMultipleTitles {
		t.Fatalf("warnings = %+v, want one multiple_titles", warnings)
	}

	_, _, err = NewNormalizer(WithStrictTitles()).Normalize(mustDecode(t, input))
	ve, ok := AsValidationError(err)
	if !ok || ve.Constraint != ConstraintUnique || ve.Path != "slides[0].elements[1].is_title" {
		t.Fatalf("strict Normalize error = %v", err)
	}
}

func TestDefaultingIsDeterministic(t *testing.T) {
	input := []byte(`{"title":"t","theme":{"primary_color":"#000000"},"slides":[{"elements":[{"type":"text","content":"x"}]}]}`)

	var outputs [][]byte
	for i := 0; i < 5; i++ {
		p, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if p.Theme.SecondaryColor != DefaultSecondaryColor {
			t.Fatalf("secondary_color = %q, want %q", p.Theme.SecondaryColor, DefaultSecondaryColor)
		}
		b, err := json.Marshal(p)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		outputs = append(outputs, b)
	}
	for i := 1; i < len(outputs); i++ {
		if !bytes.Equal(outputs[0], outputs[i]) {
			t.Fatalf("run %d differs:\n%s\n%s", i, outputs[0], outputs[i])
		}
	}
}

func TestRoundTripIsFixedPoint(t *testing.T) {
	input := []byte(`{
		"title": "Pitch", "subtitle": "Seed round", "author": "",
		"theme": {"primary_color": "#222222", "font_body": ""},
		"slides": [
			{"layout": "title", "speaker_notes": "open strong", "elements": [
				{"type": "text", "content": "Pitch", "is_title": true, "font_size": 40.5, "alignment": "center", "vertical_alignment": "middle"}
			]},
			{"layout": "two_column", "background_color": "", "elements": [
				{"type": "image", "path": " assets/logo.png ", "alt_text": "logo", "x": -0.25},
				{"type": "chart", "chart_type": "pie", "categories": ["a", "b"], "series": [{"name": "", "values": [0.1, 1e-3]}], "extra": true}
			]}
		]
	}`)

	first, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	wire, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Parse(wire)
	if err != nil {
		t.Fatalf("re-Parse: %v\n%s", err, wire)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("round trip changed value:\n%+v\n%+v", first, second)
	}
	again, _ := json.Marshal(second)
	if !bytes.Equal(wire, again) {
		t.Fatalf("wire form not stable:\n%s\n%s", wire, again)
	}

	img := second.Slides[1].Elements[0].(ImageElement)
	if img.Path != "assets/logo.png" || img.X != -0.25 {
		t.Fatalf("image = %+v", img)
	}
	if second.Theme.FontBody != DefaultFont || second.Author != "" {
		t.Fatalf("theme/author = %+v %q", second.Theme, second.Author)
	}
}

func TestMarshalWritesTypeTag(t *testing.T) {
	b, err := json.Marshal(ChartElement{ChartType: ChartLine, Categories: []string{}, Series: []Series{}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if m["type"] != "chart" || m["chart_type"] != "line" {
		t.Fatalf("wire form = %s", b)
	}
	if _, ok := m["width"]; !ok {
		t.Fatalf("geometry must be flattened: %s", b)
	}
}

func TestPresentationUnmarshalJSONValidates(t *testing.T) {
	var envelope struct {
		Presentation *Presentation `json:"presentation"`
	}
	err := json.Unmarshal([]byte(`{"presentation":{"title":"t","slides":[{"elements":[{"type":"video"}]}]}}`), &envelope)
	if !errors.Is(err, ErrInvalidIR) {
		t.Fatalf("want invalid_ir, got %v", err)
	}

	err = json.Unmarshal([]byte(`{"presentation":{"title":"t","slides":[{}]}}`), &envelope)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if envelope.Presentation.Author != DefaultAuthor {
		t.Fatalf("defaults not applied: %+v", envelope.Presentation)
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	for _, in := range []string{`{"title":`, `{"title":"t","slides":[{}]} {}`, ``} {
		if _, err := Parse([]byte(in)); !errors.Is(err, ErrInvalidIR) {
			t.Fatalf("Parse(%q) = %v, want invalid_ir", in, err)
		}
	}
}

func TestNormalizeDesignTokens(t *testing.T) {
	tokens, err := NormalizeDesignTokens(mustDecode(t, `{"primary_color":"#AA0000","extracted_fonts":["Inter"]}`))
	if err != nil {
		t.Fatalf("NormalizeDesignTokens: %v", err)
	}
	if tokens.PrimaryColor != "#AA0000" || tokens.SecondaryColor != DefaultSecondaryColor {
		t.Fatalf("colors = %+v", tokens)
	}
	if tokens.LayoutNames == nil || len(tokens.ExtractedColors) != 0 || tokens.ExtractedFonts[0] != "Inter" {
		t.Fatalf("lists = %+v", tokens)
	}

	_, err = NormalizeDesignTokens(mustDecode(t, `{"layout_names":[1]}`))
	if ve, ok := AsValidationError(err); !ok || ve.Path != "layout_names[0]" {
		t.Fatalf("want layout_names[0] error, got %v", err)
	}
}

func TestParseGenerationMode(t *testing.T) {
	tests := []struct {
		in      string
		want    GenerationMode
		wantErr bool
	}{
		{"", ModeFromScratch, false},
		{"template", ModeTemplate, false},
		{" reference ", ModeReference, false},
		{"remix", "", true},
	}
	for _, tt := range tests {
		got, err := ParseGenerationMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Fatalf("ParseGenerationMode(%q) = %q, %v", tt.in, got, err)
		}
	}
	if !ModeTemplate.RequiresFile() || ModeFromScratch.RequiresFile() {
		t.Fatalf("RequiresFile mismatch")
	}
}
