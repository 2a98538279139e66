package redis

import "fmt"

// KeyIngestRateLimit is the per-caller rate limit counter key format
const KeyIngestRateLimit = "telemetry:ratelimit:%s" // telemetry:ratelimit:<caller ip>

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" || environment == "test" {
		prefix = "staging"
	}

	return &KeyBuilder{
		prefix: prefix,
	}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// KeyIngestRateLimit builds the rate-limit counter key for one caller
func (kb *KeyBuilder) KeyIngestRateLimit(caller string) string {
	return kb.BuildKey(fmt.Sprintf(KeyIngestRateLimit, caller))
}
