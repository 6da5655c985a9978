package server

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"
)

var qualifiers = []string{
	"open", "linked", "named", "blank", "typed", "plain", "inverse", "transitive",
	"optional", "distinct", "reduced", "ordered", "federated", "inferred", "asserted",
	"nested", "bound", "free", "lexical", "local", "remote", "default", "tacit", "wild",
}

var terms = []string{
	"triple", "graph", "node", "literal", "prefix", "subject", "object", "predicate",
	"binding", "variable", "pattern", "filter", "union", "ontology", "vocab", "class",
	"property", "dataset", "quad", "iri", "path", "solution", "service", "sparql",
}

// NameGenerator hands out anonymous session names such as "linked-triple-07".
// It is safe for concurrent use.
type NameGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewNameGenerator creates a new name generator.
func NewNameGenerator() *NameGenerator {
	return &NameGenerator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Generate returns a random name.
func (g *NameGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return nameFrom(g.rng)
}

// NameForKey returns the same name every time a given key fingerprint
// connects.
func NameForKey(fingerprint string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(fingerprint))
	return nameFrom(rand.New(rand.NewSource(int64(h.Sum64()))))
}

func nameFrom(rng *rand.Rand) string {
	return fmt.Sprintf("%s-%s-%02d",
		qualifiers[rng.Intn(len(qualifiers))],
		terms[rng.Intn(len(terms))],
		rng.Intn(100))
}
