package rewrite

import (
	"context"
	"strings"
	"time"

	"github.com/Aman-CERP/coderag/internal/llm"
)

const (
	minLLMQueryLen = 3
	maxLLMQueryLen = 200
	maxLLMOutput   = 500

	llmSystemPrompt = "You expand terse natural-language code-search queries into a " +
		"richer natural-language description of what the user is looking for. " +
		"Respond with at most 100 words of natural language. Preserve the " +
		"original intent and any identifier-like terms; do not invent new " +
		"functionality or answer the question, only restate it more fully."
)

// Rewriter runs the optional LLM pass (§4.2 second bullet) on top of the
// lexicon pass, when a chat-completion capability is configured.
type Rewriter struct {
	client  llm.Client
	model   string
	timeout time.Duration
}

// New constructs a Rewriter. A nil client means the LLM pass is disabled
// and Rewrite always falls back to the lexicon pass's primary.
func New(client llm.Client, model string, timeout time.Duration) *Rewriter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Rewriter{client: client, model: model, timeout: timeout}
}

// Rewrite runs the lexicon pass, then (if a client is configured and the
// query is within length bounds) attempts the LLM pass. contextLine, if
// non-empty, is prefixed to the user message as caller-supplied context.
// On timeout, error, or an empty response, Rewrite falls back to the
// lexicon pass's Primary (§4.2: "fall back to the lexicon-pass primary").
func (r *Rewriter) Rewrite(ctx context.Context, query, contextLine string) Result {
	lex := Lexicon(query)
	if r == nil || r.client == nil {
		return lex
	}

	n := len(strings.TrimSpace(query))
	if n < minLLMQueryLen || n > maxLLMQueryLen {
		return lex
	}

	user := query
	if contextLine != "" {
		user = contextLine + "\n" + query
	}

	text, err := r.client.Complete(ctx, llm.CompletionRequest{
		Model:       r.model,
		System:      llmSystemPrompt,
		User:        user,
		Temperature: 0.3,
		MaxTokens:   150,
		Timeout:     r.timeout,
	})
	if err != nil || strings.TrimSpace(text) == "" {
		return lex
	}

	text = strings.TrimSpace(text)
	if len(text) > maxLLMOutput {
		text = text[:maxLLMOutput]
	}

	lex.Primary = text
	return lex
}
