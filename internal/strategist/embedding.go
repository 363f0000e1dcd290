package strategist

import (
	"hash/fnv"
	"math"
	"strings"
)

// embeddingDim is the size of the bag-of-words vectors. Small on purpose:
// the corpus is a handful of curated notes, not a web-scale index.
const embeddingDim = 128

// embedText maps text to a deterministic bag-of-words vector. Tokens are
// hashed into a fixed number of buckets and the result is L2-normalized, so
// identical text always produces the identical vector and cosine similarity
// degrades gracefully with vocabulary overlap.
func embedText(text string) []float32 {
	vec := make([]float32, embeddingDim)

	for _, token := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%embeddingDim]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})

	out := fields[:0]
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		out = append(out, f)
	}
	return out
}
