package intent

import (
	"math"
	"slices"
	"testing"
)

func TestVectorizer_NGrams(t *testing.T) {
	t.Parallel()
	v := newVectorizer()
	got := v.ngrams("ab")
	want := []string{" ", "a", "b", " ", " a", "ab", "b "}
	if !slices.Equal(got, want) {
		t.Errorf("ngrams(ab) = %q, want %q", got, want)
	}
}

func TestVectorizer_FitNormalisesRows(t *testing.T) {
	t.Parallel()
	v := newVectorizer()
	rows := v.fit([]string{"bonjour", "merci beaucoup", "au revoir"})

	for i, row := range rows {
		var sum float64
		for _, f := range row {
			sum += f.value * f.value
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("row %d squared norm = %v, want 1", i, sum)
		}
		if !slices.IsSortedFunc(row, func(a, b feature) int { return a.index - b.index }) {
			t.Errorf("row %d not sorted by index", i)
		}
	}
}

func TestVectorizer_MaxDF(t *testing.T) {
	t.Parallel()
	v := newVectorizer()
	v.fit([]string{"aa", "ab", "ac"})

	// The padding space occurs in every document.
	if _, ok := v.vocab[" "]; ok {
		t.Error("term present in all documents should be dropped")
	}
	if _, ok := v.vocab["ab"]; !ok {
		t.Error("rare term should be kept")
	}
}

func TestVectorizer_TransformUnknown(t *testing.T) {
	t.Parallel()
	v := newVectorizer()
	v.fit([]string{"abc", "abd"})
	if row := v.transform("xyz"); len(row) != 0 {
		t.Errorf("unseen text should map to an empty row, got %v", row)
	}
}
