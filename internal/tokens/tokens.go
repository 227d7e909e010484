// Package tokens estimates how many tokens a rendered prompt will consume.
// The estimate is recorded with each analysis so oversized prompts are easy
// to spot in the history; nothing gates on it.
package tokens

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// charsPerToken is the fallback ratio when no codec is available.
const charsPerToken = 4.0

// Estimator counts prompt tokens with a tiktoken codec, falling back to a
// character-ratio estimate when the codec cannot be loaded.
type Estimator struct {
	once  sync.Once
	codec tokenizer.Codec
}

func NewEstimator() *Estimator {
	return &Estimator{}
}

// Estimate returns the token count for text. Gemini's own tokenizer is not
// public; the o200k encoding tracks it closely enough for recording purposes.
func (e *Estimator) Estimate(text string) int {
	e.once.Do(func() {
		if codec, err := tokenizer.Get(tokenizer.O200kBase); err == nil {
			e.codec = codec
		}
	})

	if e.codec != nil {
		if ids, _, err := e.codec.Encode(text); err == nil {
			return len(ids)
		}
	}

	return int(float64(len(text)) / charsPerToken)
}
