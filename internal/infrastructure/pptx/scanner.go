package pptx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"

	"slidedeck-ai/internal/domain/ir"
	"slidedeck-ai/pkg/logger"
)

// 单个 XML 部件的读取上限，防止压缩炸弹
const maxPartBytes = 32 << 20

var ErrNotPPTX = errors.New("not a pptx package")

// Scanner 从已有 .pptx 中提取设计令牌
type Scanner struct{}

func NewScanner() *Scanner { return &Scanner{} }

// Scan 提取颜色、字体与版式名。颜色按字典序去重，主色取第一个、辅色取第二个，
// 背景色固定为白色；标题字体取第一个、正文字体取第二个（不足时回退）。
func (s *Scanner) Scan(ctx context.Context, data []byte) (*ir.DesignTokens, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPPTX, err)
	}

	colors := map[string]struct{}{}
	fonts := map[string]struct{}{}
	type layout struct {
		index int
		name  string
	}
	var layouts []layout
	hasPresentation := false

	for _, f := range zr.File {
		name := f.Name
		switch {
		case name == "ppt/presentation.xml":
			hasPresentation = true
		case isPart(name, "ppt/slides/slide"), isPart(name, "ppt/theme/theme"):
			if err := scanPart(f, func(se xml.StartElement) {
				switch se.Name.Local {
				case "srgbClr":
					if v, ok := attr(se, "val"); ok && len(v) == 6 {
						colors["#"+strings.ToLower(v)] = struct{}{}
					}
				case "latin":
					// +mj-lt / +mn-lt 是主题字体引用，不是字体名
					if v, ok := attr(se, "typeface"); ok && v != "" && !strings.HasPrefix(v, "+") {
						fonts[v] = struct{}{}
					}
				}
			}); err != nil {
				return nil, err
			}
		case isPart(name, "ppt/slideLayouts/slideLayout"):
			idx := partIndex(name, "ppt/slideLayouts/slideLayout")
			if err := scanPart(f, func(se xml.StartElement) {
				if se.Name.Local == "cSld" {
					if v, ok := attr(se, "name"); ok && v != "" {
						layouts = append(layouts, layout{index: idx, name: v})
					}
				}
			}); err != nil {
				return nil, err
			}
		}
	}
	if !hasPresentation {
		return nil, fmt.Errorf("%w: missing ppt/presentation.xml", ErrNotPPTX)
	}

	tokens := ir.DefaultDesignTokens()
	tokens.ExtractedColors = sortedKeys(colors)
	tokens.ExtractedFonts = sortedKeys(fonts)
	sort.SliceStable(layouts, func(i, j int) bool { return layouts[i].index < layouts[j].index })
	for _, l := range layouts {
		tokens.LayoutNames = append(tokens.LayoutNames, l.name)
	}

	if n := len(tokens.ExtractedColors); n > 0 {
		tokens.PrimaryColor = tokens.ExtractedColors[0]
		if n > 1 {
			tokens.SecondaryColor = tokens.ExtractedColors[1]
		}
	}
	switch len(tokens.ExtractedFonts) {
	case 0:
	case 1:
		tokens.FontHeading = tokens.ExtractedFonts[0]
		tokens.FontBody = tokens.ExtractedFonts[0]
	default:
		tokens.FontHeading = tokens.ExtractedFonts[0]
		tokens.FontBody = tokens.ExtractedFonts[1]
	}

	logger.Info(ctx, "design tokens extracted",
		"colors", len(tokens.ExtractedColors),
		"fonts", len(tokens.ExtractedFonts),
		"layouts", len(tokens.LayoutNames),
	)
	return &tokens, nil
}

// ScanOrDefault 扫描失败时记录告警并返回默认令牌
func (s *Scanner) ScanOrDefault(ctx context.Context, data []byte) *ir.DesignTokens {
	tokens, err := s.Scan(ctx, data)
	if err != nil {
		logger.Warn(ctx, "design token scan failed, using defaults", "error", err.Error())
		def := ir.DefaultDesignTokens()
		return &def
	}
	return tokens
}

func isPart(name, prefix string) bool {
	return strings.HasPrefix(name, prefix) && path.Ext(name) == ".xml" && path.Dir(name) == path.Dir(prefix+"x")
}

func partIndex(name, prefix string) int {
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".xml"))
	if err != nil {
		return 1 << 30
	}
	return n
}

func scanPart(f *zip.File, visit func(xml.StartElement)) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	dec := xml.NewDecoder(io.LimitReader(rc, maxPartBytes))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse %s: %w", f.Name, err)
		}
		if se, ok := tok.(xml.StartElement); ok {
			visit(se)
		}
	}
}

func attr(se xml.StartElement, local string) (string, bool) {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
