package gemini

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/oukeidos/tdocs/internal/apperrors"
	"github.com/oukeidos/tdocs/internal/httpclient"
	"github.com/oukeidos/tdocs/internal/invoker"
	"github.com/oukeidos/tdocs/internal/segment"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-1.5-pro"

type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Client translates through the Gemini API.
type Client struct {
	client    *genai.Client
	model     contentGenerator
	modelName string

	mu    sync.Mutex
	usage invoker.Usage
}

var _ invoker.Translator = (*Client)(nil)
var _ invoker.UsageReporter = (*Client)(nil)

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, apiKey string, modelName string) (*Client, error) {
	if modelName == "" {
		modelName = DefaultModel
	}
	// option.WithHTTPClient would drop the API key header injected by genai,
	// so timeouts are enforced through the context in Translate.
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.2)
	model.ResponseMIMEType = "text/plain"

	return &Client{
		client:    client,
		model:     model,
		modelName: modelName,
	}, nil
}

// Close closes the underlying genai client.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.modelName
}

// Usage returns the token usage accumulated so far.
func (c *Client) Usage() invoker.Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// Translate sends one request and returns the raw response text.
func (c *Client) Translate(ctx context.Context, req invoker.Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, httpclient.DefaultTimeout)
	defer cancel()

	resp, err := c.model.GenerateContent(ctx, genai.Text(invoker.BuildPrompt(req)))
	if err != nil {
		return "", classifyGeminiError(err)
	}

	u := invoker.Usage{Calls: 1}
	if resp != nil && resp.UsageMetadata != nil {
		u.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		u.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		u.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	c.mu.Lock()
	c.usage.Add(u)
	c.mu.Unlock()

	text, err := extractResponseText(resp)
	if err != nil {
		return "", apperrors.Invoker(fmt.Sprintf("Gemini returned no usable text for %s", req.SourcePath), err)
	}
	return strings.TrimRight(segment.Normalize(text), " \t\r\n"), nil
}

func extractResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("no response received from Gemini")
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
			continue
		}
		var combined strings.Builder
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				combined.WriteString(string(text))
			}
		}
		if strings.TrimSpace(combined.String()) != "" {
			return combined.String(), nil
		}
	}
	return "", fmt.Errorf("no text parts found in Gemini response")
}
