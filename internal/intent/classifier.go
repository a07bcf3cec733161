// Package intent classifies short user messages into intent tags. A small
// TF-IDF plus logistic-regression model is trained at start-up on a table of
// example phrases; keyword rules take precedence over the model, and low
// confidence predictions fall back to the conversation's previous intent.
package intent

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"slices"
)

// DefaultThreshold is the minimum model confidence accepted as-is.
const DefaultThreshold = 0.3

// ErrNoExamples is returned by New when the dataset has no usable patterns.
var ErrNoExamples = errors.New("intent: dataset has no training examples")

// Source tells which stage produced a Result.
type Source int

const (
	// SourceRule means a keyword rule matched.
	SourceRule Source = iota
	// SourceModel means the model was confident enough.
	SourceModel
	// SourceContext means the model was unsure and the previous intent was reused.
	SourceContext
	// SourceFallback means the model was unsure and there was no previous intent.
	SourceFallback
)

// String implements fmt.Stringer.
func (s Source) String() string {
	switch s {
	case SourceRule:
		return "rule"
	case SourceModel:
		return "model"
	case SourceContext:
		return "context"
	case SourceFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Result is the outcome of Classify.
type Result struct {
	Tag        string
	Confidence float64
	Source     Source
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithThreshold sets the confidence threshold. Values outside [0,1] are ignored.
func WithThreshold(t float64) Option {
	return func(c *Classifier) {
		if t >= 0 && t <= 1 {
			c.threshold = t
		}
	}
}

// WithRules replaces the keyword rules. A nil slice disables them.
func WithRules(r Rules) Option {
	return func(c *Classifier) { c.rules = r }
}

// WithLogger sets the logger used for dataset warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPicker replaces the random choice among responses. pick(n) must
// return a value in [0,n). Intended for tests.
func WithPicker(pick func(n int) int) Option {
	return func(c *Classifier) {
		if pick != nil {
			c.pick = pick
		}
	}
}

// Classifier is immutable after New and safe for concurrent use.
type Classifier struct {
	vec       *vectorizer
	model     *logisticRegression
	responses map[string][]string
	tags      []string
	examples  int

	rules     Rules
	threshold float64
	pick      func(n int) int
	logger    *slog.Logger
}

// New trains a classifier on ds.
func New(ds Dataset, opts ...Option) (*Classifier, error) {
	c := &Classifier{
		rules:     DefaultRules(),
		threshold: DefaultThreshold,
		pick:      rand.IntN,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	data := ds.compile(c.logger)
	if len(data.texts) == 0 {
		return nil, ErrNoExamples
	}

	docs := make([]string, len(data.texts))
	for i, text := range data.texts {
		docs[i] = Normalize(text)
	}

	classes := slices.Clone(data.labels)
	slices.Sort(classes)
	classes = slices.Compact(classes)

	y := make([]int, len(data.labels))
	for i, label := range data.labels {
		y[i], _ = slices.BinarySearch(classes, label)
	}

	c.vec = newVectorizer()
	rows := c.vec.fit(docs)
	c.model = newLogisticRegression()
	c.model.fit(rows, y, classes, c.vec.dim())

	c.responses = data.responses
	c.tags = data.tags
	c.examples = len(docs)

	c.logger.Info("intent: classifier trained",
		"examples", c.examples,
		"intents", len(classes),
		"features", c.vec.dim(),
	)
	return c, nil
}

// Predict returns the model's best tag for text and its probability. Rules
// are not consulted.
func (c *Classifier) Predict(text string) (string, float64) {
	return c.model.predict(c.vec.transform(Normalize(text)))
}

// Classify runs rules, then the model. Below the threshold lastIntent is
// reused when set; otherwise the result is TagUnknown with SourceFallback.
func (c *Classifier) Classify(text, lastIntent string) Result {
	if tag, ok := c.rules.Match(text); ok {
		return Result{Tag: tag, Confidence: 1, Source: SourceRule}
	}

	tag, conf := c.Predict(text)
	switch {
	case conf >= c.threshold:
		return Result{Tag: tag, Confidence: conf, Source: SourceModel}
	case lastIntent != "":
		return Result{Tag: lastIntent, Confidence: conf, Source: SourceContext}
	default:
		return Result{Tag: TagUnknown, Confidence: conf, Source: SourceFallback}
	}
}

// Respond picks one of the responses registered for tag, falling back to
// the unknown responses for unregistered tags.
func (c *Classifier) Respond(tag string) string {
	choices, ok := c.responses[tag]
	if !ok || len(choices) == 0 {
		choices = c.responses[TagUnknown]
	}
	return choices[c.pick(len(choices))]
}

// Threshold returns the configured confidence threshold.
func (c *Classifier) Threshold() float64 { return c.threshold }

// Tags returns the loaded intent tags in dataset order.
func (c *Classifier) Tags() []string { return slices.Clone(c.tags) }

// Examples returns the number of training phrases.
func (c *Classifier) Examples() int { return c.examples }
