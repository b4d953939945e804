package chain

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"slidedeck-ai/internal/domain/ir"
	wfmodel "slidedeck-ai/internal/workflow/model"
)

type fakeChatModel struct {
	mu      sync.Mutex
	calls   int
	inputs  [][]*schema.Message
	replies []func() (*schema.Message, error)
}

func (m *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, input)
	i := m.calls
	m.calls++
	if i >= len(m.replies) {
		i = len(m.replies) - 1
	}
	return m.replies[i]()
}

func (m *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

type fakeFactory struct {
	model *fakeChatModel
	names []string
}

func (f *fakeFactory) Get(_ context.Context, name string) (model.BaseChatModel, error) {
	f.names = append(f.names, name)
	return f.model, nil
}

func (f *fakeFactory) DefaultProvider() string { return "openai" }

func reply(content string) func() (*schema.Message, error) {
	return func() (*schema.Message, error) {
		return &schema.Message{
			Role:    schema.Assistant,
			Content: content,
			ResponseMeta: &schema.ResponseMeta{
				Usage: &schema.TokenUsage{PromptTokens: 120, CompletionTokens: 480},
			},
		}, nil
	}
}

func fail(err error) func() (*schema.Message, error) {
	return func() (*schema.Message, error) { return nil, err }
}

const deckReply = "Here you go:\n```json\n" + `{"title":"Solar","slides":[{"layout":"title","elements":[{"type":"text","content":"Solar {power}","is_title":true}]},{"elements":[]}]}` + "\n```"

func TestGenerateParsesFencedReply(t *testing.T) {
	m := &fakeChatModel{replies: []func() (*schema.Message, error){reply(deckReply)}}
	f := &fakeFactory{model: m}
	c := NewDeckChain(f, nil)

	out, err := c.Generate(context.Background(), &wfmodel.DeckGenerateInput{
		Prompt:    "solar energy basics",
		NumSlides: 2,
		Tokens:    &ir.DesignTokens{PrimaryColor: "#112233", ExtractedColors: []string{"#112233", "#445566"}},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out.Presentation.Title != "Solar" || out.Presentation.SlideCount() != 2 {
		t.Errorf("presentation = %+v", out.Presentation)
	}
	if out.Usage.Provider != "openai" || out.Usage.PromptTokens != 120 || out.Usage.CompletionTokens != 480 {
		t.Errorf("usage = %+v", out.Usage)
	}
	if len(f.names) != 1 || f.names[0] != "openai" {
		t.Errorf("factory names = %v", f.names)
	}

	msgs := m.inputs[0]
	if len(msgs) != 2 || msgs[0].Role != schema.System || msgs[1].Role != schema.User {
		t.Fatalf("messages = %+v", msgs)
	}
	user := msgs[1].Content
	for _, want := range []string{"solar energy basics", "Generate exactly 2 slides.", "Primary color: #112233", "#445566"} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt missing %q:\n%s", want, user)
		}
	}
	if !strings.Contains(msgs[0].Content, `"slides"`) {
		t.Errorf("system prompt should describe the deck shape")
	}
}

func TestGenerateWithoutSlideCount(t *testing.T) {
	m := &fakeChatModel{replies: []func() (*schema.Message, error){reply(deckReply)}}
	c := NewDeckChain(&fakeFactory{model: m}, nil)

	if _, err := c.Generate(context.Background(), &wfmodel.DeckGenerateInput{Prompt: "topic"}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	user := m.inputs[0][1].Content
	if strings.Contains(user, "Generate exactly") || strings.Contains(user, "Design Constraints") {
		t.Errorf("unexpected optional blocks:\n%s", user)
	}
}

func TestGenerateFallsBackWhenResponseFormatRejected(t *testing.T) {
	m := &fakeChatModel{replies: []func() (*schema.Message, error){
		fail(errors.New("400: Unknown parameter: 'response_format'")),
		reply(deckReply),
	}}
	c := NewDeckChain(&fakeFactory{model: m}, nil)

	if _, err := c.Generate(context.Background(), &wfmodel.DeckGenerateInput{Prompt: "topic"}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if m.calls != 2 {
		t.Errorf("calls = %d, want 2", m.calls)
	}
}

func TestGenerateProviderErrorIsNotRetried(t *testing.T) {
	m := &fakeChatModel{replies: []func() (*schema.Message, error){fail(errors.New("503 upstream overloaded"))}}
	c := NewDeckChain(&fakeFactory{model: m}, nil)

	_, err := c.Generate(context.Background(), &wfmodel.DeckGenerateInput{Prompt: "topic"})
	if err == nil || !strings.Contains(err.Error(), "overloaded") {
		t.Fatalf("error = %v", err)
	}
	if m.calls != 1 {
		t.Errorf("calls = %d, want 1", m.calls)
	}
}

func TestGenerateRejectsInvalidIR(t *testing.T) {
	tests := []string{
		`{"title":"x","slides":[]}`,
		`{"title":"x","slides":[{"elements":[{"type":"video"}]}]}`,
		`I cannot help with that.`,
	}
	for _, content := range tests {
		m := &fakeChatModel{replies: []func() (*schema.Message, error){reply(content)}}
		c := NewDeckChain(&fakeFactory{model: m}, nil)
		_, err := c.Generate(context.Background(), &wfmodel.DeckGenerateInput{Prompt: "topic"})
		if !errors.Is(err, ir.ErrInvalidIR) {
			t.Errorf("reply %q: error = %v, want ErrInvalidIR", content, err)
		}
	}
}

func TestRefineSendsCurrentDeck(t *testing.T) {
	current, err := ir.Parse([]byte(`{"title":"Before","slides":[{"elements":[{"type":"text","content":"old"}]}]}`))
	if err != nil {
		t.Fatal(err)
	}
	m := &fakeChatModel{replies: []func() (*schema.Message, error){reply(`{"title":"After","slides":[{"elements":[]}]}`)}}
	c := NewDeckChain(&fakeFactory{model: m}, nil)

	out, err := c.Refine(context.Background(), &wfmodel.DeckRefineInput{Current: current, Instruction: "rename the deck"})
	if err != nil {
		t.Fatalf("Refine() error = %v", err)
	}
	if out.Presentation.Title != "After" {
		t.Errorf("Title = %q", out.Presentation.Title)
	}
	user := m.inputs[0][1].Content
	if !strings.Contains(user, `"title": "Before"`) || !strings.Contains(user, "rename the deck") {
		t.Errorf("refine prompt:\n%s", user)
	}
}

func TestStrictNormalizerRejectsDuplicateTitles(t *testing.T) {
	content := `{"title":"x","slides":[{"elements":[{"type":"text","content":"a","is_title":true},{"type":"text","content":"b","is_title":true}]}]}`
	m := &fakeChatModel{replies: []func() (*schema.Message, error){reply(content)}}

	lenient, err := NewDeckChain(&fakeFactory{model: m}, nil).Generate(context.Background(), &wfmodel.DeckGenerateInput{Prompt: "p"})
	if err != nil {
		t.Fatalf("lenient Generate() error = %v", err)
	}
	if len(lenient.Warnings) != 1 || lenient.Warnings[0].Kind != ir.WarnMultipleTitles {
		t.Errorf("warnings = %+v", lenient.Warnings)
	}

	strict := NewDeckChain(&fakeFactory{model: m}, ir.NewNormalizer(ir.WithStrictTitles()))
	if _, err := strict.Generate(context.Background(), &wfmodel.DeckGenerateInput{Prompt: "p"}); !errors.Is(err, ir.ErrInvalidIR) {
		t.Errorf("strict error = %v, want ErrInvalidIR", err)
	}
}
