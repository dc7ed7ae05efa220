package agent

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/stayscout/stayscout/engine/domain"
)

// scriptedChat plays back one canned response per call.
type scriptedChat struct {
	responses []openai.ChatCompletionResponse
	errs      []error
	requests  []openai.ChatCompletionRequest
}

func (s *scriptedChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	i := len(s.requests)
	s.requests = append(s.requests, req)
	if i < len(s.errs) && s.errs[i] != nil {
		return openai.ChatCompletionResponse{}, s.errs[i]
	}
	if i >= len(s.responses) {
		return openai.ChatCompletionResponse{}, errors.New("unexpected extra call")
	}
	return s.responses[i], nil
}

type stubRetriever struct {
	results   []domain.ListingResult
	lastQuery string
	calls     int
}

func (r *stubRetriever) Declaration() openai.Tool {
	return openai.Tool{
		Type:     openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{Name: "query_similar_rooms"},
	}
}

func (r *stubRetriever) Retrieve(_ context.Context, query string) []domain.ListingResult {
	r.calls++
	r.lastQuery = query
	return r.results
}

func textResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}
}

func toolResponse(calls ...openai.ToolCall) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, ToolCalls: calls}},
		},
	}
}

func toolCall(id, name, args string) openai.ToolCall {
	return openai.ToolCall{
		ID:       id,
		Type:     openai.ToolTypeFunction,
		Function: openai.FunctionCall{Name: name, Arguments: args},
	}
}

func TestProcessEmptyQuery(t *testing.T) {
	chat := &scriptedChat{}
	o := New(chat, &stubRetriever{}, Options{}, nil)

	_, err := o.Process(context.Background(), "   ")
	if !errors.Is(err, domain.ErrEmptyQuery) {
		t.Fatalf("err = %v", err)
	}
	if len(chat.requests) != 0 {
		t.Error("empty query must be rejected before any remote call")
	}
}

func TestProcessDirectAnswer(t *testing.T) {
	chat := &scriptedChat{responses: []openai.ChatCompletionResponse{textResponse(RefusalMessage)}}
	r := &stubRetriever{}
	o := New(chat, r, Options{}, nil)

	ans, err := o.Process(context.Background(), "what's the weather tomorrow")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if ans.Text != RefusalMessage || ans.ToolUsed {
		t.Errorf("answer = %+v", ans)
	}
	if r.calls != 0 {
		t.Error("retriever should not run without a tool request")
	}
	if tc := chat.requests[0].ToolChoice; tc != "auto" {
		t.Errorf("tool choice = %v", tc)
	}
	if len(chat.requests[0].Tools) != 1 {
		t.Errorf("tools declared = %d", len(chat.requests[0].Tools))
	}
}

func TestProcessToolCall(t *testing.T) {
	results := []domain.ListingResult{{Title: "Forest lodge", Type: "lodge"}}
	chat := &scriptedChat{responses: []openai.ChatCompletionResponse{
		toolResponse(toolCall("call_1", "query_similar_rooms", `{"query":"کلبه جنگلی"}`)),
	}}
	r := &stubRetriever{results: results}
	o := New(chat, r, Options{}, nil)

	ans, err := o.Process(context.Background(), "a lodge in the forest")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !ans.ToolUsed || len(ans.Listings) != 1 {
		t.Errorf("answer = %+v", ans)
	}
	if r.lastQuery != "کلبه جنگلی" {
		t.Errorf("tool query = %q", r.lastQuery)
	}
	if len(chat.requests) != 1 {
		t.Errorf("expected a single model call, got %d", len(chat.requests))
	}
}

func TestProcessToolCallEmptyResults(t *testing.T) {
	chat := &scriptedChat{responses: []openai.ChatCompletionResponse{
		toolResponse(toolCall("call_1", "query_similar_rooms", `{"query":"lodges near nowhere"}`)),
	}}
	o := New(chat, &stubRetriever{results: []domain.ListingResult{}}, Options{}, nil)

	ans, err := o.Process(context.Background(), "lodges near nowhere")
	if err != nil {
		t.Fatalf("zero matches is not an error: %v", err)
	}
	if !ans.ToolUsed || len(ans.Listings) != 0 {
		t.Errorf("answer = %+v", ans)
	}
}

func TestProcessHonorsOnlyFirstToolCall(t *testing.T) {
	chat := &scriptedChat{responses: []openai.ChatCompletionResponse{
		toolResponse(
			toolCall("call_1", "query_similar_rooms", `{"query":"first"}`),
			toolCall("call_2", "query_similar_rooms", `{"query":"second"}`),
		),
	}}
	r := &stubRetriever{}
	o := New(chat, r, Options{}, nil)

	if _, err := o.Process(context.Background(), "two villas please"); err != nil {
		t.Fatalf("process: %v", err)
	}
	if r.calls != 1 || r.lastQuery != "first" {
		t.Errorf("calls = %d, query = %q", r.calls, r.lastQuery)
	}
}

func TestProcessToolFailures(t *testing.T) {
	tests := []struct {
		name string
		args string
		want error
	}{
		{"malformed json", `{"query": `, ErrMalformedToolArguments},
		{"missing query", `{"q":"x"}`, ErrMissingQueryArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &scriptedChat{responses: []openai.ChatCompletionResponse{
				toolResponse(toolCall("call_1", "query_similar_rooms", tt.args)),
			}}
			r := &stubRetriever{}
			o := New(chat, r, Options{}, nil)

			_, err := o.Process(context.Background(), "a villa")
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			var oe *OrchestrationError
			if !errors.As(err, &oe) {
				t.Errorf("err should be an OrchestrationError: %v", err)
			}
			if r.calls != 0 {
				t.Error("no partial tool execution on bad arguments")
			}
		})
	}
}

func TestProcessUnknownTool(t *testing.T) {
	chat := &scriptedChat{responses: []openai.ChatCompletionResponse{
		toolResponse(toolCall("call_1", "book_flight", `{"query":"x"}`)),
	}}
	o := New(chat, &stubRetriever{}, Options{}, nil)
	_, err := o.Process(context.Background(), "a villa")
	if !errors.Is(err, ErrUnknownTool) {
		t.Errorf("err = %v", err)
	}
}

func TestProcessDecisionError(t *testing.T) {
	chat := &scriptedChat{errs: []error{errors.New("rate limited")}}
	o := New(chat, &stubRetriever{}, Options{}, nil)
	_, err := o.Process(context.Background(), "a villa")
	var oe *OrchestrationError
	if !errors.As(err, &oe) || oe.Stage != "decision" {
		t.Errorf("err = %v", err)
	}
}

func TestProcessSynthesize(t *testing.T) {
	chat := &scriptedChat{responses: []openai.ChatCompletionResponse{
		toolResponse(toolCall("call_1", "query_similar_rooms", `{"query":"ویلا"}`)),
		textResponse("دو ویلا در رامسر پیدا کردم"),
	}}
	r := &stubRetriever{results: []domain.ListingResult{{Title: "Villa"}}}
	o := New(chat, r, Options{Synthesize: true}, nil)

	ans, err := o.Process(context.Background(), "a villa in Ramsar")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if ans.Text == "" || !ans.ToolUsed {
		t.Errorf("answer = %+v", ans)
	}

	// The second call carries the tool-call message and the correlated result.
	second := chat.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if last.Role != openai.ChatMessageRoleTool || last.ToolCallID != "call_1" {
		t.Errorf("tool message = %+v", last)
	}
	if len(second.Tools) != 0 {
		t.Error("synthesis call should not redeclare tools")
	}
}

func TestAnswerPayload(t *testing.T) {
	direct := &Answer{Text: "hello"}
	if direct.Payload() != "hello" {
		t.Errorf("payload = %v", direct.Payload())
	}

	tool := &Answer{Listings: []domain.ListingResult{{Title: "Villa"}}, ToolUsed: true}
	m, ok := tool.Payload().(map[string]any)
	if !ok {
		t.Fatalf("payload = %T", tool.Payload())
	}
	if _, ok := m["tool_response"]; !ok {
		t.Error("payload missing tool_response")
	}
	if _, ok := m["model_response"]; ok {
		t.Error("model_response should be absent without synthesis")
	}
}
