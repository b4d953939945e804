package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"slidedeck-ai/internal/application/deck"
	"slidedeck-ai/internal/domain/ir"
	"slidedeck-ai/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeDeckService struct {
	lastCmd deck.GenerateCommand
	err     error
}

func (f *fakeDeckService) Generate(_ context.Context, cmd deck.GenerateCommand) (*deck.Result, error) {
	f.lastCmd = cmd
	if f.err != nil {
		return nil, f.err
	}
	return &deck.Result{ID: "p1", Presentation: &ir.Presentation{Title: "T"}, DownloadURL: "/api/download/p1", Mode: ir.ModeFromScratch}, nil
}

func (f *fakeDeckService) Refine(context.Context, string, string) (*deck.Result, error) {
	return nil, errors.New(errors.CodePresentationNotFound, "presentation not found")
}

func (f *fakeDeckService) Download(context.Context, string) (*deck.Artifact, error) {
	return &deck.Artifact{Data: []byte("PK"), ContentType: "application/zip", Filename: "presentation-p1.pptx"}, nil
}

func (f *fakeDeckService) Preview(context.Context, string, int) (*deck.Artifact, error) {
	return nil, errors.New(errors.CodePreviewNotFound, "preview not found")
}

func newEngine(svc DeckService, maxUpload int64) *gin.Engine {
	h := NewPresentationHandler(svc, maxUpload)
	e := gin.New()
	e.POST("/api/generate", h.Generate)
	e.POST("/api/refine/:presentation_id", h.Refine)
	e.GET("/api/download/:presentation_id", h.Download)
	e.GET("/api/preview/:presentation_id/:slide_index", h.Preview)
	return e
}

func serve(e *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func multipartRequest(t *testing.T, fields map[string]string, fileName string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	if fileName != "" {
		fw, err := w.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write(file)
	}
	_ = w.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/generate", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestGenerateJSON(t *testing.T) {
	svc := &fakeDeckService{}
	e := newEngine(svc, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{"prompt":"a deck","num_slides":4,"generation_mode":"from_scratch"}`))
	req.Header.Set("Content-Type", "application/json")
	rec, body := serve(e, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	if body["presentation_id"] != "p1" || body["generation_mode"] != "from_scratch" {
		t.Errorf("body = %v", body)
	}
	if previews, ok := body["preview_urls"].([]any); !ok || len(previews) != 0 {
		t.Errorf("preview_urls = %v, want empty array", body["preview_urls"])
	}
	if svc.lastCmd.NumSlides != 4 || svc.lastCmd.Prompt != "a deck" {
		t.Errorf("command = %+v", svc.lastCmd)
	}
}

func TestGenerateRejectsBadInput(t *testing.T) {
	e := newEngine(&fakeDeckService{}, 1<<20)
	tests := []struct {
		name string
		body string
	}{
		{"zero slides", `{"prompt":"a deck","num_slides":0}`},
		{"negative slides", `{"prompt":"a deck","num_slides":-2}`},
		{"malformed", `{"prompt":`},
		{"wrong type", `{"prompt":"a deck","num_slides":"four"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec, body := serve(e, req)
			if rec.Code != http.StatusBadRequest || body["code"] == nil {
				t.Errorf("status = %d body = %v", rec.Code, body)
			}
		})
	}
}

func TestGenerateMultipart(t *testing.T) {
	svc := &fakeDeckService{}
	e := newEngine(svc, 1<<20)

	req := multipartRequest(t, map[string]string{"prompt": "same look", "generation_mode": "template", "num_slides": "3"}, "brand.pptx", []byte("PK-template"))
	rec, _ := serve(e, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	cmd := svc.lastCmd
	if cmd.Mode != ir.ModeTemplate || cmd.NumSlides != 3 || cmd.File == nil || cmd.File.Name != "brand.pptx" || string(cmd.File.Data) != "PK-template" {
		t.Errorf("command = %+v", cmd)
	}
}

func TestGenerateMultipartTooLarge(t *testing.T) {
	e := newEngine(&fakeDeckService{}, 1024)
	big := bytes.Repeat([]byte("x"), 3<<20)
	rec, body := serve(e, multipartRequest(t, map[string]string{"prompt": "same look"}, "brand.pptx", big))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d body = %v", rec.Code, body)
	}
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	e := newEngine(&fakeDeckService{err: errors.New(errors.CodeInvalidIR, "model returned an invalid presentation")}, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{"prompt":"a deck"}`))
	req.Header.Set("Content-Type", "application/json")
	if rec, body := serve(e, req); rec.Code != http.StatusBadGateway || body["message"] == nil {
		t.Errorf("invalid IR status = %d body = %v", rec.Code, body)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/refine/p9", strings.NewReader(`{"instruction":"bluer"}`))
	req.Header.Set("Content-Type", "application/json")
	if rec, _ := serve(e, req); rec.Code != http.StatusNotFound {
		t.Errorf("refine status = %d", rec.Code)
	}

	if rec, _ := serve(e, httptest.NewRequest(http.MethodGet, "/api/preview/p1/x", nil)); rec.Code != http.StatusBadRequest {
		t.Errorf("bad index status = %d", rec.Code)
	}
	if rec, _ := serve(e, httptest.NewRequest(http.MethodGet, "/api/preview/p1/0", nil)); rec.Code != http.StatusNotFound {
		t.Errorf("missing preview status = %d", rec.Code)
	}
}

func TestDownloadSetsAttachment(t *testing.T) {
	e := newEngine(&fakeDeckService{}, 1<<20)
	rec, _ := serve(e, httptest.NewRequest(http.MethodGet, "/api/download/p1", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "PK" {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="presentation-p1.pptx"` {
		t.Errorf("Content-Disposition = %q", got)
	}
}
