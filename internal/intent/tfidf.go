package intent

import (
	"math"
	"regexp"

	"golang.org/x/text/cases"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// sparse is a term index to weight mapping with unit L2 norm.
type sparse map[int]float64

// vectorizer weights terms by raw frequency times smoothed inverse
// document frequency: idf = ln((1+n)/(1+df)) + 1.
type vectorizer struct {
	vocab map[string]int
	idf   []float64
}

// tokenize case folds doc and keeps runs of two or more word characters.
// A Caser carries state, so each call gets its own.
func tokenize(doc string) []string {
	return tokenPattern.FindAllString(cases.Fold().String(doc), -1)
}

func fit(docs []string) *vectorizer {
	v := &vectorizer{vocab: make(map[string]int)}

	df := []int{}
	for _, doc := range docs {
		seen := make(map[int]bool)
		for _, token := range tokenize(doc) {
			idx, ok := v.vocab[token]
			if !ok {
				idx = len(df)
				v.vocab[token] = idx
				df = append(df, 0)
			}
			if !seen[idx] {
				seen[idx] = true
				df[idx]++
			}
		}
	}

	n := float64(len(docs))
	v.idf = make([]float64, len(df))
	for idx, count := range df {
		v.idf[idx] = math.Log((1+n)/(1+float64(count))) + 1
	}

	return v
}

// transform ignores terms outside the fitted vocabulary.
func (v *vectorizer) transform(doc string) sparse {
	vec := make(sparse)
	for _, token := range tokenize(doc) {
		if idx, ok := v.vocab[token]; ok {
			vec[idx]++
		}
	}

	var norm float64
	for idx, tf := range vec {
		w := tf * v.idf[idx]
		vec[idx] = w
		norm += w * w
	}

	if norm == 0 {
		return vec
	}

	norm = math.Sqrt(norm)
	for idx := range vec {
		vec[idx] /= norm
	}
	return vec
}

func cosine(a, b sparse) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for idx, w := range a {
		dot += w * b[idx]
	}
	return dot
}
