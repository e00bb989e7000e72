// Package llm wraps the language model used to structure resume text: model
// tiers, the Gemini client, and helpers for pulling JSON out of model replies.
package llm

// ModelTier selects a model by capability rather than by name
type ModelTier string

const (
	// TierLite is the cheapest model; good enough for short, clean resumes
	TierLite ModelTier = "lite"
	// TierStandard is the default for resume structuring
	TierStandard ModelTier = "standard"
	// TierAdvanced is for long or badly formatted documents
	TierAdvanced ModelTier = "advanced"
)

// Provider names a model vendor
type Provider string

// ProviderGemini is the only provider wired today
const ProviderGemini Provider = "gemini"

// Config maps tiers to provider model names
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
}

// DefaultConfig returns the Gemini tier mapping
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the Gemini tier mapping
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
	}
}

// GetModel returns the model for tier. A tier with no mapping falls back to
// standard, then lite; "" means nothing is configured at all.
func (c *Config) GetModel(tier ModelTier) string {
	for _, t := range []ModelTier{tier, TierStandard, TierLite} {
		if model, ok := c.Models[t]; ok && model != "" {
			return model
		}
	}
	return ""
}

// WithModel returns a copy of c with tier mapped to model. An empty model
// leaves the mapping unchanged.
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	next := &Config{
		Provider: c.Provider,
		Models:   make(map[ModelTier]string, len(c.Models)+1),
	}
	for k, v := range c.Models {
		next.Models[k] = v
	}
	if model != "" {
		next.Models[tier] = model
	}
	return next
}

// ParseTier converts a configuration string to a ModelTier, defaulting to TierStandard
func ParseTier(s string) ModelTier {
	switch ModelTier(s) {
	case TierLite, TierStandard, TierAdvanced:
		return ModelTier(s)
	default:
		return TierStandard
	}
}
