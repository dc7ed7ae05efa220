// Package agent runs the tool-calling loop against the chat model: it
// submits the user query with the retrieval tool declared, honors at most
// one requested tool call, and returns either the model's text verbatim or
// the structured retrieval payload.
package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/stayscout/stayscout/engine/domain"
)

// RefusalMessage is the fixed reply the persona gives to queries outside
// travel and accommodation.
const RefusalMessage = "من راهنمای سفر هستم و فقط در این زمینه میتونم به شما کمک کنم"

const defaultSystemPrompt = `You are a helpful assistant that helps users find lodges and villas and plan for their trip in Iran.
TOOLS:
  - Use the query_similar_rooms function to search for accommodations.
INSTRUCTIONS:
  - If the user is asking about anything other than trips and accommodation, just tell them "` + RefusalMessage + `"`

// ChatCompleter is the slice of the OpenAI client the orchestrator needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Retriever is the tool surface: a call signature for the model and the
// function behind it.
type Retriever interface {
	Declaration() openai.Tool
	Retrieve(ctx context.Context, query string) []domain.ListingResult
}

// Options configures the orchestrator.
type Options struct {
	Model        string
	SystemPrompt string
	// Synthesize enables the second model call over the augmented
	// conversation, turning the tool payload into a grounded natural-language
	// answer. Off by default: the structured payload is returned as-is.
	Synthesize bool
}

// DefaultOptions returns the reference configuration.
func DefaultOptions() Options {
	return Options{
		Model:        openai.GPT4oMini,
		SystemPrompt: defaultSystemPrompt,
	}
}

// Orchestrator drives one query through the tool-calling protocol.
type Orchestrator struct {
	chat      ChatCompleter
	retriever Retriever
	opts      Options
	logger    *slog.Logger
}

// New creates an Orchestrator.
func New(chat ChatCompleter, retriever Retriever, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.Model == "" {
		opts.Model = DefaultOptions().Model
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultOptions().SystemPrompt
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{chat: chat, retriever: retriever, opts: opts, logger: logger}
}

// Answer is the terminal outcome of one query: the model's text, the
// structured retrieval results, or (with synthesis on) both.
type Answer struct {
	Text     string                 `json:"text,omitempty"`
	Listings []domain.ListingResult `json:"listings,omitempty"`
	ToolUsed bool                   `json:"tool_used"`
}

// Payload renders the answer in the wire shape the front end consumes:
// plain text for direct answers, a tool_response object otherwise.
func (a *Answer) Payload() any {
	if !a.ToolUsed {
		return a.Text
	}
	payload := map[string]any{"tool_response": a.Listings}
	if a.Text != "" {
		payload["model_response"] = a.Text
	}
	return payload
}

// toolArgs is the structured payload of a retrieval tool call.
type toolArgs struct {
	Query string `json:"query"`
}

// Process runs one user query to a terminal answer. Every failure comes back
// as an *OrchestrationError scoped to this query; no external state is
// touched on the error path.
func (o *Orchestrator) Process(ctx context.Context, query string) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, failure("input", domain.ErrEmptyQuery)
	}

	decl := o.retriever.Declaration()
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: o.opts.SystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: query},
	}

	resp, err := o.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:      o.opts.Model,
		Messages:   messages,
		Tools:      []openai.Tool{decl},
		ToolChoice: "auto",
	})
	if err != nil {
		return nil, failure("decision", err)
	}
	if len(resp.Choices) == 0 {
		return nil, failure("decision", ErrNoChoices)
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) == 0 {
		// Direct answer, including the out-of-scope refusal.
		return &Answer{Text: msg.Content}, nil
	}

	// Only the first requested call is honored.
	call := msg.ToolCalls[0]
	if len(msg.ToolCalls) > 1 {
		o.logger.Warn("agent: ignoring extra tool calls", "requested", len(msg.ToolCalls))
	}
	if call.Function.Name != decl.Function.Name {
		return nil, failure("tool", ErrUnknownTool)
	}

	var args toolArgs
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		return nil, failure("tool", ErrMalformedToolArguments)
	}
	if strings.TrimSpace(args.Query) == "" {
		return nil, failure("tool", ErrMissingQueryArgument)
	}

	results := o.retriever.Retrieve(ctx, args.Query)
	o.logger.Info("agent: tool invoked", "query", args.Query, "results", len(results))

	// Append the tool-call message and its correlated result to the
	// conversation before terminating or synthesizing.
	content, err := json.Marshal(results)
	if err != nil {
		return nil, failure("tool", err)
	}
	messages = append(messages, msg, openai.ChatCompletionMessage{
		Role:       openai.ChatMessageRoleTool,
		Name:       decl.Function.Name,
		ToolCallID: call.ID,
		Content:    string(content),
	})

	answer := &Answer{Listings: results, ToolUsed: true}
	if !o.opts.Synthesize {
		return answer, nil
	}

	final, err := o.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.opts.Model,
		Messages: messages,
	})
	if err != nil {
		return nil, failure("synthesis", err)
	}
	if len(final.Choices) == 0 {
		return nil, failure("synthesis", ErrNoChoices)
	}
	answer.Text = final.Choices[0].Message.Content
	return answer, nil
}
