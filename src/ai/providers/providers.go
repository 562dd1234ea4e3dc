// Package providers registers every supported summarisation backend.
package providers

import (
	_ "github.com/stake-plus/simd-tracker/src/ai/anthropic"
	_ "github.com/stake-plus/simd-tracker/src/ai/gemini"
	_ "github.com/stake-plus/simd-tracker/src/ai/openai"
)
