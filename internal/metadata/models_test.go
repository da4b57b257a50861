package metadata

import (
	"math"
	"testing"

	"github.com/oukeidos/tdocs/internal/invoker"
)

func TestPricing_Default(t *testing.T) {
	m, ok := Pricing("gemini", "unknown-model")
	if ok {
		t.Fatalf("expected default pricing for unknown model")
	}
	if m.InputPerMillion != DefaultGeminiInputPerMillion || m.OutputPerMillion != DefaultGeminiOutputPerMillion {
		t.Fatalf("unexpected default gemini pricing: %+v", m)
	}

	m, ok = Pricing("openai", "unknown-model")
	if ok {
		t.Fatalf("expected default pricing for unknown model")
	}
	if m.InputPerMillion != DefaultOpenAIInputPerMillion || m.OutputPerMillion != DefaultOpenAIOutputPerMillion {
		t.Fatalf("unexpected default openai pricing: %+v", m)
	}
}

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		model   string
		usage   invoker.Usage
		want    float64
	}{
		{
			name:    "openai",
			backend: "openai",
			model:   "gpt-4.1",
			usage:   invoker.Usage{InputTokens: 1_000_000, OutputTokens: 500_000, TotalTokens: 1_500_000},
			want:    2.00 + 4.00,
		},
		{
			name:    "gemini reasoning billed as output",
			backend: "gemini",
			model:   "gemini-2.5-flash",
			usage:   invoker.Usage{InputTokens: 1_000_000, OutputTokens: 1_000_000, TotalTokens: 3_000_000},
			want:    0.30 + 2*2.50,
		},
		{
			name:    "gemini without reasoning",
			backend: "gemini",
			model:   "gemini-1.5-pro",
			usage:   invoker.Usage{InputTokens: 1_000_000, OutputTokens: 1_000_000, TotalTokens: 3_000_000},
			want:    1.25 + 5.00,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateCost(tt.backend, tt.model, tt.usage)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("EstimateCost() = %f, want %f", got, tt.want)
			}
		})
	}
	if ids := ModelIDs("openai"); len(ids) != 2 || ids[0] != "gpt-4.1" {
		t.Fatalf("ModelIDs(openai) = %v", ids)
	}
}
