package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/oukeidos/tdocs/internal/apperrors"
	"github.com/oukeidos/tdocs/internal/httpclient"
	"github.com/oukeidos/tdocs/internal/invoker"
	"github.com/oukeidos/tdocs/internal/segment"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4.1"

// RequestData is the Responses API request body.
type RequestData struct {
	Model           string      `json:"model"`
	Instructions    string      `json:"instructions,omitempty"`
	Input           []InputItem `json:"input"`
	MaxOutputTokens int         `json:"max_output_tokens,omitempty"`
}

type InputItem struct {
	Type    string `json:"type"`
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// ResponseData is the subset of the Responses API reply used here.
type ResponseData struct {
	ID                string             `json:"id"`
	Status            string             `json:"status"`
	IncompleteDetails *IncompleteDetails `json:"incomplete_details,omitempty"`
	Output            []OutputItem       `json:"output"`
	Usage             Usage              `json:"usage"`
}

type IncompleteDetails struct {
	Reason string `json:"reason"`
}

type OutputItem struct {
	Type    string            `json:"type"`
	Role    string            `json:"role,omitempty"`
	Content []ResponseContent `json:"content,omitempty"`
}

type ResponseContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

type errorEnvelope struct {
	Error errorDetails `json:"error"`
}

type errorDetails struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

func (e errorDetails) codeString() string {
	if e.Code == nil {
		return ""
	}
	return fmt.Sprint(e.Code)
}

// Client translates through the OpenAI Responses API.
type Client struct {
	apiKey  string
	model   string
	baseURL string

	mu    sync.Mutex
	usage invoker.Usage
}

var _ invoker.Translator = (*Client)(nil)
var _ invoker.UsageReporter = (*Client)(nil)

func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.openai.com/v1",
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Usage returns the token usage accumulated so far.
func (c *Client) Usage() invoker.Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// Translate sends the guidelines as instructions and the labelled source
// block as user input, returning the output text.
func (c *Client) Translate(ctx context.Context, req invoker.Request) (string, error) {
	resp, err := c.Generate(ctx, RequestData{
		Instructions: invoker.Instructions(req.SourceLang, req.TargetLang),
		Input: []InputItem{
			{Type: "message", Role: "user", Content: invoker.SourceBlock(req)},
		},
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimRight(segment.Normalize(resp.OutputText()), " \t\r\n")
	if strings.TrimSpace(text) == "" {
		reason := resp.Status
		if resp.IncompleteDetails != nil && resp.IncompleteDetails.Reason != "" {
			reason = resp.IncompleteDetails.Reason
		}
		return "", apperrors.Invoker(fmt.Sprintf("OpenAI returned no text for %s (status %s)", req.SourcePath, reason), nil)
	}
	return text, nil
}

// OutputText concatenates the output_text parts of assistant messages.
func (r *ResponseData) OutputText() string {
	var b strings.Builder
	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == "output_text" {
				b.WriteString(part.Text)
			}
		}
	}
	return b.String()
}

func (c *Client) Generate(ctx context.Context, req RequestData) (*ResponseData, error) {
	req.Model = c.model

	body, resp, err := httpclient.PostJSON(ctx, httpclient.GetDefaultClient(), c.baseURL+"/responses",
		map[string]string{"Authorization": "Bearer " + c.apiKey}, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperrors.New(
			apperrors.KindTransient,
			"OpenAI request failed due to a temporary network/runtime error.",
			fmt.Errorf("request failed: %w", err),
		)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyOpenAIError(resp.StatusCode, resp.Status, parseErrorDetails(body))
	}

	var result ResponseData
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, apperrors.New(
			apperrors.KindInvoker,
			"OpenAI response format was invalid.",
			fmt.Errorf("failed to decode response: %w", err),
		)
	}

	slog.Debug("OpenAI API response", "status", resp.Status, "usage_total", result.Usage.TotalTokens, "response_id", result.ID)

	c.mu.Lock()
	c.usage.Add(invoker.Usage{
		Calls:        1,
		InputTokens:  result.Usage.InputTokens,
		OutputTokens: result.Usage.OutputTokens,
		TotalTokens:  result.Usage.TotalTokens,
	})
	c.mu.Unlock()

	return &result, nil
}

func parseErrorDetails(body []byte) errorDetails {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return errorDetails{}
	}
	return envelope.Error
}

func classifyOpenAIError(statusCode int, status string, details errorDetails) error {
	cause := fmt.Errorf("openai status=%s type=%s code=%s message=%s", status, details.Type, details.codeString(), details.Message)

	switch {
	case statusCode == http.StatusTooManyRequests:
		return apperrors.New(apperrors.KindRateLimit, "OpenAI API rate limit exceeded (429): please try again later.", cause)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return apperrors.New(apperrors.KindAuth,
			fmt.Sprintf("OpenAI API authentication/authorization failed (%d): please verify your API key and permissions.", statusCode), cause)
	case statusCode == http.StatusNotFound && isOpenAIModelNotFound(details):
		return apperrors.New(apperrors.KindBadRequest, "The model does not exist or you do not have access to it.", cause)
	case statusCode == http.StatusNotFound:
		return apperrors.New(apperrors.KindBadRequest, "OpenAI resource not found (404).", cause)
	case statusCode >= 500:
		return apperrors.New(apperrors.KindTransient, fmt.Sprintf("OpenAI server error (%d): please try again later.", statusCode), cause)
	default:
		return apperrors.New(apperrors.KindBadRequest, fmt.Sprintf("OpenAI API error (%d): %s", statusCode, status), cause)
	}
}

func isOpenAIModelNotFound(details errorDetails) bool {
	needle := strings.ToLower(details.codeString() + " " + details.Type + " " + details.Message)
	return strings.Contains(needle, "model_not_found") ||
		strings.Contains(needle, "does not exist or you do not have access to it")
}
