// Package metadata lists the hosted models tdocs knows prices for.
package metadata

import (
	"github.com/oukeidos/tdocs/internal/invoker"
)

type Model struct {
	ID               string
	Label            string
	InputPerMillion  float64
	OutputPerMillion float64
	// ReasoningBilledAsOutput charges tokens outside prompt and candidates
	// at the output rate.
	ReasoningBilledAsOutput bool
}

var GeminiModels = []Model{
	{ID: "gemini-1.5-pro", Label: "Gemini 1.5 Pro", InputPerMillion: 1.25, OutputPerMillion: 5.00},
	{ID: "gemini-2.5-flash", Label: "Gemini 2.5 Flash", InputPerMillion: 0.30, OutputPerMillion: 2.50, ReasoningBilledAsOutput: true},
	{ID: "gemini-2.5-pro", Label: "Gemini 2.5 Pro", InputPerMillion: 1.25, OutputPerMillion: 10.00, ReasoningBilledAsOutput: true},
}

var OpenAIModels = []Model{
	{ID: "gpt-4.1", Label: "GPT-4.1", InputPerMillion: 2.00, OutputPerMillion: 8.00},
	{ID: "gpt-4.1-mini", Label: "GPT-4.1 mini", InputPerMillion: 0.40, OutputPerMillion: 1.60},
}

const (
	DefaultGeminiInputPerMillion  = 1.25
	DefaultGeminiOutputPerMillion = 10.00
	DefaultOpenAIInputPerMillion  = 2.00
	DefaultOpenAIOutputPerMillion = 8.00
)

func ModelIDs(backend string) []string {
	models := catalog(backend)
	ids := make([]string, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.ID)
	}
	return ids
}

func catalog(backend string) []Model {
	switch backend {
	case "gemini":
		return GeminiModels
	case "openai":
		return OpenAIModels
	}
	return nil
}

// Pricing returns the known price of a model, or the backend default with
// ok=false.
func Pricing(backend, modelID string) (Model, bool) {
	for _, m := range catalog(backend) {
		if m.ID == modelID {
			return m, true
		}
	}
	if backend == "openai" {
		return Model{ID: "default", Label: "Default OpenAI", InputPerMillion: DefaultOpenAIInputPerMillion, OutputPerMillion: DefaultOpenAIOutputPerMillion}, false
	}
	return Model{
		ID:                      "default",
		Label:                   "Default Gemini",
		InputPerMillion:         DefaultGeminiInputPerMillion,
		OutputPerMillion:        DefaultGeminiOutputPerMillion,
		ReasoningBilledAsOutput: true,
	}, false
}

// EstimateCost prices accumulated usage in US dollars.
func EstimateCost(backend, modelID string, u invoker.Usage) float64 {
	m, _ := Pricing(backend, modelID)
	output := u.OutputTokens
	if m.ReasoningBilledAsOutput {
		if reasoning := u.TotalTokens - (u.InputTokens + u.OutputTokens); reasoning > 0 {
			output += reasoning
		}
	}
	return float64(u.InputTokens)/1_000_000*m.InputPerMillion + float64(output)/1_000_000*m.OutputPerMillion
}
