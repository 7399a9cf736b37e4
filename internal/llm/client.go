// Package llm wraps the chat-completion capability shared by the query
// rewriter (C2) and the memory compactor (C7). Both callers treat the
// underlying model as a capability, not a store concern, per §1's scope
// note that "embedding and reranking models" (and, by the same logic,
// chat models) are external collaborators.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	coreerrors "github.com/Aman-CERP/coderag/internal/errors"
)

// ErrEmptyResponse is returned when the model responds with no content.
var ErrEmptyResponse = errors.New("llm: empty response")

// CompletionRequest is one chat-completion call.
type CompletionRequest struct {
	Model       string
	System      string
	User        string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// Client is the narrow capability both C2 and C7 depend on.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// openAIClient is the sole production Client, backed by an OpenAI-compatible
// chat-completions endpoint (the shape used throughout the retrieval pack
// for LLM-backed summarisation and rewriting). A circuit breaker guards the
// endpoint itself: once it trips, callers immediately get an ErrTransient
// error whose message names the open circuit,
// instead of piling up on a dead model provider, and fall back to their
// deterministic paths the same way they would for any other Complete error.
type openAIClient struct {
	inner   *openai.Client
	breaker *coreerrors.CircuitBreaker
}

// New constructs a Client from an API key. A blank key means "no LLM
// capability configured" (§6.3: LLM_API_KEY absent ⇒ callers fall back to
// their deterministic paths); New returns a nil Client in that case so
// callers can branch on a nil Client rather than a sentinel error.
func New(apiKey, baseURL string) Client {
	if apiKey == "" {
		return nil
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &openAIClient{
		inner:   openai.NewClientWithConfig(cfg),
		breaker: coreerrors.NewCircuitBreaker("llm"),
	}
}

// Complete issues one chat-completion call, enforcing req.Timeout (default
// 10s per §4.2/§6.3) via a derived context. Network and API errors are
// wrapped in ErrTransient so callers treat them uniformly with store
// failures (§7). The call is routed through the circuit breaker so repeated
// provider failures fail fast rather than each eating a full timeout.
func (c *openAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	content, err := c.breaker.ExecuteWithResult(func() (string, error) {
		cctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		resp, err := c.inner.CreateChatCompletion(cctx, openai.ChatCompletionRequest{
			Model:       req.Model,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: req.System},
				{Role: openai.ChatMessageRoleUser, Content: req.User},
			},
		})
		if err != nil {
			return "", fmt.Errorf("%w: llm completion: %s", coreerrors.ErrTransient, err)
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			return "", ErrEmptyResponse
		}
		return resp.Choices[0].Message.Content, nil
	}, func() (string, error) {
		return "", fmt.Errorf("%w: %s", coreerrors.ErrTransient, coreerrors.ErrCircuitOpen)
	})
	if err != nil {
		return "", err
	}
	return content, nil
}
