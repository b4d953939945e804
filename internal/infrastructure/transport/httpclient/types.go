package httpclient

import "encoding/json"

type generateRequest struct {
	Prompt         string `json:"prompt"`
	NumSlides      *int   `json:"num_slides,omitempty"`
	GenerationMode string `json:"generation_mode"`
}

type refineRequest struct {
	Instruction string `json:"instruction"`
}

// presentation 先以原始 JSON 接收，再交给 IR 归一化器
type generateResponse struct {
	PresentationID string          `json:"presentation_id"`
	Presentation   json.RawMessage `json:"presentation"`
	DownloadURL    string          `json:"download_url"`
	PreviewURLs    []string        `json:"preview_urls"`
	GenerationMode string          `json:"generation_mode"`
	DesignTokens   json.RawMessage `json:"design_tokens"`
}

type refineResponse struct {
	PresentationID string          `json:"presentation_id"`
	Presentation   json.RawMessage `json:"presentation"`
	DownloadURL    string          `json:"download_url"`
	PreviewURLs    []string        `json:"preview_urls"`
}
