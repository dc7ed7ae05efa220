// Package summarize turns one raw listing record into a short natural-language
// synopsis suitable for embedding and display. The model sees the record's
// full field dump, so synopsis quality tracks upstream data completeness.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/stayscout/stayscout/engine/domain"
	"github.com/stayscout/stayscout/pkg/fn"
)

const systemPrompt = "You are a helpful assistant that summarizes text concisely."

// ChatCompleter is the slice of the OpenAI client the summarizer needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Options configures the summarizer.
type Options struct {
	Model     string
	Language  string
	MaxTokens int
}

// DefaultOptions returns the reference configuration: short Persian
// summaries from gpt-4o-mini.
func DefaultOptions() Options {
	return Options{
		Model:     openai.GPT4oMini,
		Language:  "persian",
		MaxTokens: 500,
	}
}

// Summarizer produces listing summaries through a chat model.
type Summarizer struct {
	chat   ChatCompleter
	opts   Options
	logger *slog.Logger
}

// New creates a Summarizer.
func New(chat ChatCompleter, opts Options, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Model == "" {
		opts.Model = DefaultOptions().Model
	}
	if opts.Language == "" {
		opts.Language = DefaultOptions().Language
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultOptions().MaxTokens
	}
	return &Summarizer{chat: chat, opts: opts, logger: logger}
}

// Summarize returns the synopsis for one record, or an error Result wrapping
// domain.ErrNoSummary when the provider fails or returns empty content. The
// caller decides whether to skip; Summarize never panics and never writes
// anything.
func (s *Summarizer) Summarize(ctx context.Context, listing domain.RawListing) fn.Result[string] {
	prompt := fmt.Sprintf("Please provide a brief summary of this text in %s language: %s",
		s.opts.Language, listing.FieldDump())

	resp, err := s.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     s.opts.Model,
		MaxTokens: s.opts.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		s.logger.Warn("summarize failed", "listing_id", listing.ID, "err", err)
		return fn.Err[string](fmt.Errorf("summarize listing %d: %w", listing.ID, domain.ErrNoSummary))
	}
	if len(resp.Choices) == 0 {
		return fn.Err[string](fmt.Errorf("summarize listing %d: no choices: %w", listing.ID, domain.ErrNoSummary))
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return fn.Err[string](fmt.Errorf("summarize listing %d: empty content: %w", listing.ID, domain.ErrNoSummary))
	}
	return fn.Ok(text)
}

// Stage adapts the summarizer into a pipeline stage.
func (s *Summarizer) Stage() fn.Stage[domain.RawListing, string] {
	return func(ctx context.Context, l domain.RawListing) fn.Result[string] {
		return s.Summarize(ctx, l)
	}
}
