// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package embedding

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/tomtom215/civitas/internal/models"
)

var errEmptyText = errors.New("embedding: empty text")

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "have": {}, "he": {}, "her": {}, "his": {},
	"i": {}, "if": {}, "in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "our": {}, "she": {}, "so": {}, "that": {}, "the": {}, "their": {}, "them": {},
	"they": {}, "this": {}, "to": {}, "was": {}, "we": {}, "were": {}, "will": {}, "with": {},
	"you": {}, "your": {},
}

// Keyword is the in-process last-resort tier: a signed hashed bag of words.
// Its vectors share no space with model embeddings and are marked degraded.
type Keyword struct {
	dims int
}

// NewKeyword builds the keyword tier.
func NewKeyword(dims int) *Keyword {
	return &Keyword{dims: dims}
}

func (k *Keyword) Name() string               { return "keyword:fnv1a" }
func (k *Keyword) Tier() models.EmbeddingTier { return models.TierKeyword }

// Embed never fails on non-empty text.
func (k *Keyword) Embed(_ context.Context, text string) ([]float32, error) {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil, errEmptyText
	}

	vec := make([]float32, k.dims)
	h := fnv.New32a()
	for _, tok := range tokens {
		h.Reset()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum32()
		bucket := int(sum % uint32(k.dims))
		if sum&(1<<31) != 0 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}
	return Normalize(vec), nil
}

// Tokenize lowercases text, splits on anything that is not a letter or digit
// and drops stop-words. Text consisting only of stop-words keeps them.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, stop := stopWords[f]; !stop {
			tokens = append(tokens, f)
		}
	}
	if len(tokens) == 0 {
		return fields
	}
	return tokens
}
