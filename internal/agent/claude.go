package agent

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/sgarila/dirigent/pkg/models"
)

// ClaudeExecutor executes tasks by sending the task description to a Claude
// model. It is the reference implementation of the external execute-task
// boundary; heavier collaborators (analysis engines, memory stores) plug in
// behind the same Executor interface.
type ClaudeExecutor struct {
	client    anthropic.Client
	model     anthropic.Model
	system    string
	maxTokens int64
}

// ClaudeOption configures a ClaudeExecutor.
type ClaudeOption func(*ClaudeExecutor)

// WithModel overrides the default model.
func WithModel(model anthropic.Model) ClaudeOption {
	return func(c *ClaudeExecutor) { c.model = model }
}

// WithSystemPrompt sets the system prompt sent with every task.
func WithSystemPrompt(prompt string) ClaudeOption {
	return func(c *ClaudeExecutor) { c.system = prompt }
}

// WithMaxTokens overrides the response token cap.
func WithMaxTokens(n int64) ClaudeOption {
	return func(c *ClaudeExecutor) { c.maxTokens = n }
}

// NewClaudeExecutor creates a Claude-backed executor. The API key is read
// from the environment by the SDK when apiKey is empty.
func NewClaudeExecutor(apiKey string, opts ...ClaudeOption) *ClaudeExecutor {
	var clientOpts []option.RequestOption
	if apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(apiKey))
	}
	c := &ClaudeExecutor{
		client:    anthropic.NewClient(clientOpts...),
		model:     anthropic.ModelClaudeSonnet4_20250514,
		maxTokens: 4096,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute sends the task description to the model and returns the text
// response. Cancellation and deadlines on ctx are honored by the SDK.
func (c *ClaudeExecutor) Execute(ctx context.Context, task *models.Task) (any, error) {
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(task.Description)),
		},
	}
	if c.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: c.system}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("claude request: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += tb.Text
		}
	}
	if text == "" {
		return nil, fmt.Errorf("claude returned no text content (stop reason %s)", resp.StopReason)
	}
	return text, nil
}

// Verify ClaudeExecutor implements Executor at compile time.
var _ Executor = (*ClaudeExecutor)(nil)
