package ir

import "encoding/json"

// 三个元素变体序列化时写入 type 标签，保证线上格式可被 Normalize 还原。

func (t TextBox) MarshalJSON() ([]byte, error) {
	type plain TextBox
	return json.Marshal(struct {
		Type ElementType `json:"type"`
		plain
	}{ElementText, plain(t)})
}

func (i ImageElement) MarshalJSON() ([]byte, error) {
	type plain ImageElement
	return json.Marshal(struct {
		Type ElementType `json:"type"`
		plain
	}{ElementImage, plain(i)})
}

func (c ChartElement) MarshalJSON() ([]byte, error) {
	type plain ChartElement
	return json.Marshal(struct {
		Type ElementType `json:"type"`
		plain
	}{ElementChart, plain(c)})
}

// UnmarshalJSON 解码时总是经过默认归一化器，非法输入返回 *ValidationError
func (p *Presentation) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*p = *parsed
	return nil
}

// UnmarshalJSON 解码设计令牌并补齐默认值
func (t *DesignTokens) UnmarshalJSON(data []byte) error {
	raw, err := decodeJSON(data)
	if err != nil {
		return err
	}
	parsed, err := NormalizeDesignTokens(raw)
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}

// NormalizeDesignTokens 归一化设计令牌：主题字段缺失或为空时取默认值，序列字段缺失时为空切片
func NormalizeDesignTokens(raw any) (*DesignTokens, error) {
	obj, err := asObject(raw, rootPath)
	if err != nil {
		return nil, err
	}
	th, err := theme(obj, "")
	if err != nil {
		return nil, err
	}
	tokens := DefaultDesignTokens()
	tokens.PrimaryColor = th.PrimaryColor
	tokens.SecondaryColor = th.SecondaryColor
	tokens.BackgroundColor = th.BackgroundColor
	tokens.FontHeading = th.FontHeading
	tokens.FontBody = th.FontBody

	lists := []struct {
		key string
		dst *[]string
	}{
		{"layout_names", &tokens.LayoutNames},
		{"extracted_colors", &tokens.ExtractedColors},
		{"extracted_fonts", &tokens.ExtractedFonts},
	}
	for _, l := range lists {
		items, err := optArray(obj, l.key, "")
		if err != nil {
			return nil, err
		}
		for i, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, violation(indexPath(l.key, i), ConstraintType, "expected string, got %s", typeName(item))
			}
			*l.dst = append(*l.dst, s)
		}
	}
	return &tokens, nil
}
