// Package entity 定义领域实体
package entity

import (
	"strconv"
	"time"

	"slidedeck-ai/internal/domain/ir"
)

// PresentationRecord 生成服务登记的演示文稿
type PresentationRecord struct {
	ID           string            `json:"id"`
	Presentation *ir.Presentation  `json:"presentation"`
	Mode         ir.GenerationMode `json:"generation_mode"`
	Tokens       *ir.DesignTokens  `json:"design_tokens,omitempty"`
	// PPTXKey 产物存储中的文档键
	PPTXKey string `json:"pptx_key"`
	// PreviewKeys 第 i 项为第 i 页预览图的键，渲染失败时为空
	PreviewKeys []string `json:"preview_keys"`
	// Revision 生成为 1，每次修改加 1
	Revision  int       `json:"revision"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ArtifactPrefix 该演示文稿所有产物的公共前缀
func ArtifactPrefix(id string) string {
	return id + "/"
}

// RevisionPrefix 某一修订版产物的前缀。修订版之间互不覆盖，新版本登记成功后才清理旧版本。
func RevisionPrefix(id string, revision int) string {
	return ArtifactPrefix(id) + "r" + strconv.Itoa(revision) + "/"
}

// PPTXKeyFor 文档键
func PPTXKeyFor(id string, revision int) string {
	return RevisionPrefix(id, revision) + "presentation.pptx"
}

// PreviewKeyFor 预览图键，index 从 0 开始，文件名从 1 开始
func PreviewKeyFor(id string, revision, index int) string {
	return RevisionPrefix(id, revision) + "previews/slide-" + strconv.Itoa(index+1) + ".png"
}
