package process

import (
	"fmt"
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"render-crawler/pkg/utils"
)

// TokenCounter counts tokens of extracted page content with a tiktoken codec.
// Common encodings: "cl100k_base" (GPT-4), "o200k_base" (GPT-4o), "p50k_base" (GPT-3).
// Safe for concurrent use by crawl tasks.
type TokenCounter struct {
	mu    sync.RWMutex
	codec tokenizer.Codec
}

// NewTokenCounter loads the codec for encoding; empty defaults to "cl100k_base"
func NewTokenCounter(encoding string) (*TokenCounter, error) {
	enc, err := parseEncoding(encoding)
	if err != nil {
		return nil, err
	}
	codec, err := tokenizer.Get(enc)
	if err != nil {
		return nil, fmt.Errorf("loading tokenizer '%s': %w", encoding, err)
	}
	return &TokenCounter{codec: codec}, nil
}

func parseEncoding(encoding string) (tokenizer.Encoding, error) {
	switch encoding {
	case "", "cl100k_base":
		return tokenizer.Cl100kBase, nil
	case "p50k_base":
		return tokenizer.P50kBase, nil
	case "p50k_edit":
		return tokenizer.P50kEdit, nil
	case "r50k_base":
		return tokenizer.R50kBase, nil
	case "o200k_base":
		return tokenizer.O200kBase, nil
	}
	return "", fmt.Errorf("%w: unknown tokenizer encoding '%s'", utils.ErrConfigValidation, encoding)
}

// Count returns the token count for text.
// A nil counter or an encoding failure falls back to a len/4 estimate.
func (c *TokenCounter) Count(text string) int {
	if c == nil {
		return estimateTokens(text)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return estimateTokens(text)
	}
	return len(ids)
}

// estimateTokens approximates a token count at four characters per token
func estimateTokens(text string) int {
	return len(text) / 4
}
