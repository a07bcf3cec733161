package intent

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"slices"
)

// Tags with special meaning to the responder.
const (
	TagUnknown    = "unknown"
	TagEtat       = "etat"
	TagSalutation = "salutation"
)

// recommendedTags are logged when missing from a dataset.
var recommendedTags = []string{TagSalutation, "au_revoir", "remerciement", TagUnknown}

//go:embed intents.json
var embeddedIntents []byte

// Intent is one labelled group of example phrases and canned responses.
type Intent struct {
	Tag       string   `json:"tag"`
	Patterns  []string `json:"patterns"`
	Responses []string `json:"responses"`
}

// Dataset is the intent table the classifier is trained on.
type Dataset struct {
	Intents []Intent `json:"intents"`
}

// DefaultDataset returns the intent table compiled into the binary.
func DefaultDataset() (Dataset, error) {
	return ParseDataset(embeddedIntents)
}

// LoadDataset reads an intent table from a JSON file.
func LoadDataset(path string) (Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("intent: reading %s: %w", path, err)
	}
	ds, err := ParseDataset(raw)
	if err != nil {
		return Dataset{}, fmt.Errorf("intent: %s: %w", path, err)
	}
	return ds, nil
}

// ParseDataset decodes an intent table.
func ParseDataset(raw []byte) (Dataset, error) {
	var ds Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return Dataset{}, fmt.Errorf("decoding intents: %w", err)
	}
	return ds, nil
}

// compiled is a Dataset reduced to training examples and a response table.
type compiled struct {
	texts     []string
	labels    []string
	responses map[string][]string
	tags      []string
}

// compile validates ds, substituting defaults where an intent is incomplete.
// Intents without a tag are skipped; tags without responses get a generic
// one; unknown and etat always have responses.
func (ds Dataset) compile(logger *slog.Logger) compiled {
	c := compiled{responses: make(map[string][]string)}

	for i, in := range ds.Intents {
		if in.Tag == "" {
			logger.Warn("intent: skipping entry without tag", "index", i)
			continue
		}
		if !slices.Contains(c.tags, in.Tag) {
			c.tags = append(c.tags, in.Tag)
		}

		if len(in.Patterns) == 0 {
			logger.Warn("intent: no patterns", "tag", in.Tag)
		}
		for _, p := range in.Patterns {
			c.texts = append(c.texts, p)
			c.labels = append(c.labels, in.Tag)
		}

		if len(in.Responses) > 0 {
			c.responses[in.Tag] = append(c.responses[in.Tag], in.Responses...)
		} else if _, ok := c.responses[in.Tag]; !ok {
			logger.Warn("intent: no responses, using a generic one", "tag", in.Tag)
			c.responses[in.Tag] = []string{fmt.Sprintf("Je peux vous aider avec %s.", in.Tag)}
		}
	}

	if _, ok := c.responses[TagUnknown]; !ok {
		c.responses[TagUnknown] = []string{
			"Je n'ai pas bien compris votre demande 🤔. Pouvez-vous reformuler ou préciser votre question ?",
			"I'm not sure I understand. Could you rephrase that?",
			"I didn't quite get that. Can you try asking differently?",
		}
	}
	if _, ok := c.responses[TagEtat]; !ok {
		c.responses[TagEtat] = []string{
			"Je vais très bien 😊 Merci de demander ! Et vous ?",
			"I'm doing well, thank you! How can I help you?",
		}
	}

	var missing []string
	for _, tag := range recommendedTags {
		if !slices.Contains(c.tags, tag) {
			missing = append(missing, tag)
		}
	}
	if len(missing) > 0 {
		logger.Warn("intent: missing recommended intents", "tags", missing)
	}
	return c
}
