package intent

import (
	"math"
	"slices"
	"strings"
)

// feature is one non-zero entry of a sparse vector.
type feature struct {
	index int
	value float64
}

// vector is a sparse row sorted by feature index.
type vector []feature

// vectorizer is a TF-IDF transform over character n-grams taken inside word
// boundaries: every word is padded with one space on each side before
// n-grams are extracted, so n-grams never span two words.
type vectorizer struct {
	minN, maxN int
	maxDF      float64

	vocab map[string]int
	idf   []float64
}

func newVectorizer() *vectorizer {
	return &vectorizer{minN: 1, maxN: 2, maxDF: 0.9}
}

// ngrams returns the padded in-word character n-grams of text.
func (v *vectorizer) ngrams(text string) []string {
	var out []string
	for _, word := range strings.Fields(text) {
		padded := []rune(" " + word + " ")
		for n := v.minN; n <= v.maxN; n++ {
			if n > len(padded) {
				break
			}
			for i := 0; i+n <= len(padded); i++ {
				out = append(out, string(padded[i:i+n]))
			}
		}
	}
	return out
}

// fit learns the vocabulary and smoothed idf weights, then returns the
// transformed training rows. Terms present in more than maxDF of the
// documents are dropped.
func (v *vectorizer) fit(docs []string) []vector {
	grams := make([][]string, len(docs))
	df := make(map[string]int)
	for i, doc := range docs {
		grams[i] = v.ngrams(doc)
		seen := make(map[string]struct{})
		for _, g := range grams[i] {
			if _, ok := seen[g]; !ok {
				seen[g] = struct{}{}
				df[g]++
			}
		}
	}

	limit := v.maxDF * float64(len(docs))
	terms := make([]string, 0, len(df))
	for term, n := range df {
		if float64(n) <= limit {
			terms = append(terms, term)
		}
	}
	slices.Sort(terms)

	n := float64(len(docs))
	v.vocab = make(map[string]int, len(terms))
	v.idf = make([]float64, len(terms))
	for i, term := range terms {
		v.vocab[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	rows := make([]vector, len(docs))
	for i := range docs {
		rows[i] = v.weigh(grams[i])
	}
	return rows
}

// transform maps text onto the learned vocabulary. Unknown n-grams are ignored.
func (v *vectorizer) transform(text string) vector {
	return v.weigh(v.ngrams(text))
}

// dim returns the vocabulary size.
func (v *vectorizer) dim() int { return len(v.idf) }

func (v *vectorizer) weigh(grams []string) vector {
	counts := make(map[int]float64)
	for _, g := range grams {
		if idx, ok := v.vocab[g]; ok {
			counts[idx]++
		}
	}

	row := make(vector, 0, len(counts))
	var norm float64
	for idx, tf := range counts {
		w := tf * v.idf[idx]
		row = append(row, feature{index: idx, value: w})
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range row {
			row[i].value /= norm
		}
	}
	slices.SortFunc(row, func(a, b feature) int { return a.index - b.index })
	return row
}
