package chunker

import "strings"

// CountTokens gives an approximate token count. The same function backs
// both the budget prediction and the final chunk token_count, so the two
// can never disagree. Exact tokenization is not required for chunking.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	// Roughly 1.33 tokens per word for English text.
	words := len(strings.Fields(text))
	tokens := int(float64(words) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
