package cli

import (
	"fmt"
	"strings"

	"slidedeck-ai/internal/domain/ir"
)

const maxLine = 72

func describeOutline(p *ir.Presentation, active int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", p.Title)
	if p.Subtitle != "" {
		fmt.Fprintf(&b, " - %s", p.Subtitle)
	}
	b.WriteString("\n")
	for i, s := range p.Slides {
		marker := " "
		if i == active {
			marker = "*"
		}
		title, ok := s.Title()
		if !ok {
			title = "(untitled)"
		}
		fmt.Fprintf(&b, " %s %2d. %-14s %s\n", marker, i+1, s.Layout, clip(title))
	}
	return b.String()
}

func describeSlide(i int, s ir.Slide) string {
	var b strings.Builder
	fmt.Fprintf(&b, "slide %d [%s]\n", i+1, s.Layout)
	for _, el := range s.Elements {
		switch e := el.(type) {
		case ir.TextBox:
			tag := "text"
			if e.IsTitle {
				tag = "title"
			}
			fmt.Fprintf(&b, "  %-6s %s\n", tag, clip(e.Content))
		case ir.ImageElement:
			fmt.Fprintf(&b, "  image  %s (%s)\n", clip(e.AltText), e.Source())
		case ir.ChartElement:
			fmt.Fprintf(&b, "  chart  %s %q: %d categories, %d series\n", e.ChartType, e.Title, len(e.Categories), len(e.Series))
		}
	}
	if s.SpeakerNotes != "" {
		fmt.Fprintf(&b, "  notes  %s\n", clip(s.SpeakerNotes))
	}
	return b.String()
}

// clip 截断为单行
func clip(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= maxLine {
		return s
	}
	return string(r[:maxLine-3]) + "..."
}
