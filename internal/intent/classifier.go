// Package intent recognises application questions that have been seen
// before, in some wording, and maps them to an abstract answer key.
package intent

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Threshold is the similarity a match must exceed to be accepted.
const Threshold = 0.5

//go:embed seeds.yaml
var builtinSeeds []byte

// Seed is one training example.
type Seed struct {
	Question string
	Key      Key
}

type seedGroup struct {
	Key       string   `yaml:"key"`
	Questions []string `yaml:"questions"`
}

// BuiltinSeeds returns the shipped training examples in file order.
func BuiltinSeeds() ([]Seed, error) {
	return ParseSeeds(builtinSeeds)
}

// ParseSeeds decodes a YAML list of {key, questions} groups.
func ParseSeeds(data []byte) ([]Seed, error) {
	var groups []seedGroup
	if err := yaml.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("parse intent seeds: %w", err)
	}

	var seeds []Seed
	for _, g := range groups {
		key := ParseKey(g.Key)
		if key.Category == CategoryUnknown {
			return nil, fmt.Errorf("parse intent seeds: unknown key %q", g.Key)
		}
		for _, q := range g.Questions {
			seeds = append(seeds, Seed{Question: q, Key: key})
		}
	}
	return seeds, nil
}

// LearnedSeeds turns cached question/answer pairs into raw seeds, ordered by
// question so training is deterministic.
func LearnedSeeds(answers map[string]string) []Seed {
	questions := make([]string, 0, len(answers))
	for q := range answers {
		questions = append(questions, q)
	}
	sort.Strings(questions)

	seeds := make([]Seed, 0, len(questions))
	for _, q := range questions {
		seeds = append(seeds, Seed{Question: q, Key: RawKey(answers[q])})
	}
	return seeds
}

// Match is an accepted nearest neighbour.
type Match struct {
	Key        Key
	Confidence float64
	Question   string
}

// Classifier is a nearest neighbour matcher over TF-IDF vectors of the
// training questions. It is safe for concurrent use.
type Classifier struct {
	mu sync.RWMutex

	seeds   []Seed
	learned map[string]int

	vec    *vectorizer
	matrix []sparse
}

// New trains a classifier on builtin followed by learned seeds.
func New(builtin, learned []Seed) *Classifier {
	c := &Classifier{learned: make(map[string]int)}

	c.seeds = append(c.seeds, builtin...)
	for _, s := range learned {
		c.addLearned(s)
	}
	c.refit()

	return c
}

// Match returns the nearest training question when its cosine similarity
// exceeds Threshold. The earliest seed wins ties.
func (c *Classifier) Match(question string) (Match, bool) {
	best, ok := c.Nearest(question)
	if !ok || best.Confidence <= Threshold {
		return best, false
	}
	return best, true
}

// Nearest returns the most similar training question regardless of the
// threshold. It reports false only when the corpus is empty.
func (c *Classifier) Nearest(question string) (Match, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.seeds) == 0 {
		return Match{}, false
	}

	query := c.vec.transform(question)

	bestIdx := 0
	bestScore := cosine(query, c.matrix[0])
	for i := 1; i < len(c.matrix); i++ {
		if score := cosine(query, c.matrix[i]); score > bestScore {
			bestIdx, bestScore = i, score
		}
	}

	seed := c.seeds[bestIdx]
	return Match{Key: seed.Key, Confidence: bestScore, Question: seed.Question}, true
}

// Learn adds (or replaces) a literal answer for question and retrains.
func (c *Classifier) Learn(question, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.addLearned(Seed{Question: question, Key: RawKey(answer)})
	c.refit()
}

// Len returns the size of the training corpus.
func (c *Classifier) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.seeds)
}

func (c *Classifier) addLearned(s Seed) {
	if idx, ok := c.learned[s.Question]; ok {
		c.seeds[idx] = s
		return
	}
	c.learned[s.Question] = len(c.seeds)
	c.seeds = append(c.seeds, s)
}

func (c *Classifier) refit() {
	docs := make([]string, len(c.seeds))
	for i, s := range c.seeds {
		docs[i] = s.Question
	}

	c.vec = fit(docs)
	c.matrix = make([]sparse, len(docs))
	for i, doc := range docs {
		c.matrix[i] = c.vec.transform(doc)
	}
}
