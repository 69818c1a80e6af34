// Package planner implements the planner contract spec.md 6 describes: one
// call, chat(messages) -> {content, toolCalls?, inputTokens, outputTokens}.
// spec.md 1 places "the language-model provider" out of scope and forbids
// prescribing "wire formats of any LLM provider"; this package is
// deliberately a generic HTTP+JSON transport against a configured endpoint,
// not a vendor SDK (no Anthropic/OpenAI client library is imported), so it
// is the narrow boundary the core calls through rather than a concrete
// provider integration. Grounded on internal/claude/invoker.go's
// Invoker/Request/Response shape and its rate-limit-detect-wait-retry-once
// pattern, reusing internal/budget's RateLimitWaiter/ParseRateLimitFromError
// as-is.
package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/swarmforge/swarmcore/internal/budget"
	"github.com/swarmforge/swarmcore/internal/decomposer"
	"github.com/swarmforge/swarmcore/internal/jsonrelax"
)

// Role tags a Message the way spec.md 6 names them: system, user,
// assistant, tool.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is the structured shape an assistant Message may carry, and the
// shape a tool Message replies against via ToolCallID (spec.md 6).
type ToolCall struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

// Message is one role-tagged turn in a chat() call.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
	ToolCallID string     `json:"toolCallId,omitempty"`
}

// ChatResponse is chat()'s return value (spec.md 6): content, optional
// structured tool calls, and token counts for the economics manager to
// record via RecordLLMUsage.
type ChatResponse struct {
	Content      string     `json:"content"`
	ToolCalls    []ToolCall `json:"toolCalls,omitempty"`
	InputTokens  int64      `json:"inputTokens"`
	OutputTokens int64      `json:"outputTokens"`
}

// wireRequest/wireResponse are this package's own HTTP wire shapes: the
// caller configures BaseURL to point at whatever chat-completions-flavored
// endpoint is actually deployed.
type wireRequest struct {
	Model    string    `json:"model,omitempty"`
	Messages []Message `json:"messages"`
}

type wireResponse struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"toolCalls"`
	Usage     struct {
		InputTokens  int64 `json:"inputTokens"`
		OutputTokens int64 `json:"outputTokens"`
	} `json:"usage"`
}

// Config is everything NewClient needs.
type Config struct {
	// BaseURL is the chat-completions endpoint, e.g.
	// "https://planner.internal/v1/chat".
	BaseURL string
	APIKey  string
	Model   string

	// Timeout bounds one chat() call, retry included.
	Timeout time.Duration

	// Logger receives rate-limit countdown notifications; nil is silent.
	Logger budget.WaiterLogger

	HTTPClient *http.Client
}

// Client is a reusable planner client: create once, call Chat many times.
// Thread-safe for concurrent use (http.Client already is).
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient builds a Client from cfg, defaulting HTTPClient if unset.
func NewClient(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{cfg: cfg, httpClient: hc}
}

// Chat implements spec.md 6's chat(messages) contract with rate-limit
// retry, following the same shape as claude.Invoker.Invoke: call once, and
// on a rate-limit-flavored error, wait out the reset and retry exactly
// once.
func (c *Client) Chat(ctx context.Context, messages []Message) (ChatResponse, error) {
	ctxToUse := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctxToUse, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	resp, err := c.chat(ctxToUse, messages)
	if err != nil {
		if info := budget.ParseRateLimitFromError(err.Error()); info != nil {
			waiter := budget.NewRateLimitWaiter(24*time.Hour, 15*time.Second, 30*time.Second, c.cfg.Logger)
			if waiter.ShouldWait(info) {
				if waitErr := waiter.WaitForReset(ctxToUse, info); waitErr != nil {
					return ChatResponse{}, waitErr
				}
				return c.chat(ctxToUse, messages)
			}
		}
		return ChatResponse{}, err
	}
	return resp, nil
}

func (c *Client) chat(ctx context.Context, messages []Message) (ChatResponse, error) {
	body, err := json.Marshal(wireRequest{Model: c.cfg.Model, Messages: messages})
	if err != nil {
		return ChatResponse{}, fmt.Errorf("planner: encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("planner: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("planner: chat request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("planner: reading chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return ChatResponse{}, fmt.Errorf("planner: chat request failed: status %d (body: %s)", resp.StatusCode, string(raw))
	}

	var wire wireResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return ChatResponse{}, fmt.Errorf("planner: decoding chat response: %w", err)
	}

	return ChatResponse{
		Content:      wire.Content,
		ToolCalls:    wire.ToolCalls,
		InputTokens:  wire.Usage.InputTokens,
		OutputTokens: wire.Usage.OutputTokens,
	}, nil
}

// decompositionSystemPrompt mirrors claude.DefaultSystemPrompt's
// JSON-only constraint, scoped to the decomposition schema
// decomposer.RawDecomposition expects.
const decompositionSystemPrompt = `You are a task decomposition planner. Your ONLY output must be valid JSON of the shape {"strategy": string, "subtasks": [{"id": string, "description": string, "type": string, "complexity": integer 1-10, "dependencies": [string], "relevantFiles": [string], "parallelizable": boolean, "suggestedRole": string, "estimatedTokens": integer}]}. No markdown, no code fences, no prose, no explanations. Output raw JSON only.`

// RequestDecomposition implements decomposer.Planner by issuing one Chat
// call and lenient-decoding the response content as a RawDecomposition
// (spec.md 9's three-level JSON recovery, via internal/jsonrelax).
func (c *Client) RequestDecomposition(ctx context.Context, task, taskContext string) (decomposer.RawDecomposition, error) {
	userContent := task
	if taskContext != "" {
		userContent = fmt.Sprintf("%s\n\nContext:\n%s", task, taskContext)
	}

	resp, err := c.Chat(ctx, []Message{
		{Role: RoleSystem, Content: decompositionSystemPrompt},
		{Role: RoleUser, Content: userContent},
	})
	if err != nil {
		return decomposer.RawDecomposition{}, err
	}

	var raw decomposer.RawDecomposition
	if _, err := jsonrelax.Parse(resp.Content, &raw); err != nil {
		return decomposer.RawDecomposition{}, fmt.Errorf("planner: decoding decomposition response: %w", err)
	}
	return raw, nil
}

var _ decomposer.Planner = (*Client)(nil)
