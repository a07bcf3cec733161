package intent

import "math"

// logisticRegression is a multinomial (softmax) classifier with L2
// regularisation, trained by full-batch gradient descent. Training is
// deterministic: weights start at zero and samples are visited in order.
type logisticRegression struct {
	// C is the inverse regularisation strength.
	C            float64
	learningRate float64
	maxIter      int
	tolerance    float64

	classes []string
	weights [][]float64 // [class][feature]
	bias    []float64
}

func newLogisticRegression() *logisticRegression {
	return &logisticRegression{
		C:            1.0,
		learningRate: 1.0,
		maxIter:      500,
		tolerance:    1e-5,
	}
}

// fit trains on rows with labels y (indices into classes). dim is the
// feature dimension.
func (m *logisticRegression) fit(rows []vector, y []int, classes []string, dim int) {
	k := len(classes)
	m.classes = classes
	m.weights = make([][]float64, k)
	for c := range m.weights {
		m.weights[c] = make([]float64, dim)
	}
	m.bias = make([]float64, k)

	n := float64(len(rows))
	if n == 0 {
		return
	}
	// Penalty scaled so the objective matches C*sum(loss) + 0.5*|W|^2.
	lambda := 1 / (m.C * n)

	gradW := make([][]float64, k)
	for c := range gradW {
		gradW[c] = make([]float64, dim)
	}
	gradB := make([]float64, k)
	probs := make([]float64, k)

	for iter := 0; iter < m.maxIter; iter++ {
		for c := range k {
			clear(gradW[c])
		}
		clear(gradB)

		for i, row := range rows {
			m.probabilities(row, probs)
			for c := range k {
				diff := probs[c]
				if c == y[i] {
					diff--
				}
				diff /= n
				gradB[c] += diff
				for _, f := range row {
					gradW[c][f.index] += diff * f.value
				}
			}
		}

		var maxStep float64
		for c := range k {
			for j := range dim {
				g := gradW[c][j] + lambda*m.weights[c][j]
				step := m.learningRate * g
				m.weights[c][j] -= step
				maxStep = math.Max(maxStep, math.Abs(step))
			}
			step := m.learningRate * gradB[c]
			m.bias[c] -= step
			maxStep = math.Max(maxStep, math.Abs(step))
		}
		if maxStep < m.tolerance {
			return
		}
	}
}

// probabilities writes the class distribution for row into out.
func (m *logisticRegression) probabilities(row vector, out []float64) {
	maxLogit := math.Inf(-1)
	for c := range m.classes {
		z := m.bias[c]
		w := m.weights[c]
		for _, f := range row {
			z += w[f.index] * f.value
		}
		out[c] = z
		maxLogit = math.Max(maxLogit, z)
	}

	var sum float64
	for c := range m.classes {
		out[c] = math.Exp(out[c] - maxLogit)
		sum += out[c]
	}
	for c := range m.classes {
		out[c] /= sum
	}
}

// predict returns the most probable class and its probability. Ties go to
// the class listed first.
func (m *logisticRegression) predict(row vector) (string, float64) {
	if len(m.classes) == 0 {
		return "", 0
	}
	probs := make([]float64, len(m.classes))
	m.probabilities(row, probs)

	best := 0
	for c := 1; c < len(probs); c++ {
		if probs[c] > probs[best] {
			best = c
		}
	}
	return m.classes[best], probs[best]
}
