package economics

// ModelPricing is cost per 1,000 tokens, matching spec.md 4.C's "Cost
// rule" (input-per-1k, output-per-1k), which differs in scale from the
// teacher's own per-1M UsageTracker pricing table
// (internal/budget/tracker.go DefaultCostModel) — the names and the
// input/output split are kept, the unit is spec's.
type ModelPricing struct {
	InputPer1K  float64
	OutputPer1K float64
}

// DefaultPricing mirrors the model roster of the teacher's
// internal/budget/tracker.go DefaultCostModel, rescaled from per-1M to
// per-1K tokens.
func DefaultPricing() map[string]ModelPricing {
	return map[string]ModelPricing{
		"claude-opus-4-5-20251101":   {InputPer1K: 0.015, OutputPer1K: 0.075},
		"claude-sonnet-4-5-20250929": {InputPer1K: 0.003, OutputPer1K: 0.015},
		"claude-sonnet-3-7-20250219": {InputPer1K: 0.003, OutputPer1K: 0.015},
		"claude-3-5-sonnet-20241022": {InputPer1K: 0.003, OutputPer1K: 0.015},
		"claude-3-5-sonnet-20240620": {InputPer1K: 0.003, OutputPer1K: 0.015},
		"claude-3-5-haiku-20241022":  {InputPer1K: 0.001, OutputPer1K: 0.005},
		"claude-3-opus-20240229":     {InputPer1K: 0.015, OutputPer1K: 0.075},
		"claude-3-sonnet-20240229":   {InputPer1K: 0.003, OutputPer1K: 0.015},
		"claude-3-haiku-20240307":    {InputPer1K: 0.00025, OutputPer1K: 0.00125},
	}
}

// cost computes cost for a call, returning 0 for an unknown model rather
// than an error (spec.md 4.C: "Unknown model -> cost contribution of zero
// for that call").
func cost(pricing map[string]ModelPricing, model string, inputTokens, outputTokens int64) float64 {
	rate, ok := pricing[model]
	if !ok {
		return 0
	}
	return float64(inputTokens)/1000*rate.InputPer1K + float64(outputTokens)/1000*rate.OutputPer1K
}
