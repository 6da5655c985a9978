// Package catalog provides the example-query list: built-in entries plus
// entries read from YAML files matched by glob patterns.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/johan-st/sparql-tui/internal/service"
	"gopkg.in/yaml.v3"
)

// exampleFile is the on-disk format of an examples file.
type exampleFile struct {
	Examples []service.Example `yaml:"examples"`
}

// Catalog holds the current example list.
type Catalog struct {
	patterns []string
	logger   *log.Logger

	mu       sync.RWMutex
	examples []service.Example
	files    []string
}

// New creates a catalog over the given glob patterns. Call Load to read them.
func New(patterns []string, logger *log.Logger) *Catalog {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Catalog{
		patterns: append([]string(nil), patterns...),
		logger:   logger,
		examples: Builtin(),
	}
}

// Patterns returns the glob patterns the catalog reads.
func (c *Catalog) Patterns() []string {
	return append([]string(nil), c.patterns...)
}

// Load rebuilds the list from the built-ins and every matching file. A file
// entry replaces a built-in with the same name. Files that fail to parse are
// skipped and reported in the returned error; the rest still load.
func (c *Catalog) Load() error {
	examples := Builtin()
	index := make(map[string]int, len(examples))
	for i, ex := range examples {
		index[strings.ToLower(ex.Name)] = i
	}

	files, globErr := c.matchFiles()
	var errs []error
	if globErr != nil {
		errs = append(errs, globErr)
	}

	for _, path := range files {
		entries, err := readFile(path)
		if err != nil {
			errs = append(errs, err)
			c.logger.Warn("skipping examples file", "path", path, "err", err)
			continue
		}
		for _, ex := range entries {
			key := strings.ToLower(ex.Name)
			if i, ok := index[key]; ok {
				examples[i] = ex
				continue
			}
			index[key] = len(examples)
			examples = append(examples, ex)
		}
	}

	c.mu.Lock()
	c.examples = examples
	c.files = files
	c.mu.Unlock()

	c.logger.Debug("examples loaded", "count", len(examples), "files", len(files))
	return errors.Join(errs...)
}

func (c *Catalog) matchFiles() ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	var errs []error
	for _, pattern := range c.patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid examples pattern %q: %w", pattern, err))
			continue
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err != nil || info.IsDir() {
				continue
			}
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, errors.Join(errs...)
}

func readFile(path string) ([]service.Example, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var f exampleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	out := make([]service.Example, 0, len(f.Examples))
	for i, ex := range f.Examples {
		ex.Name = strings.TrimSpace(ex.Name)
		ex.Query = strings.TrimSpace(ex.Query)
		if ex.Name == "" || ex.Query == "" {
			return nil, fmt.Errorf("%s: example %d needs a name and a query", filepath.Base(path), i+1)
		}
		out = append(out, ex)
	}
	return out, nil
}

// Examples returns a copy of the current list.
func (c *Catalog) Examples() []service.Example {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]service.Example(nil), c.examples...)
}

// Files returns the files read by the last Load.
func (c *Catalog) Files() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.files...)
}

// Find looks an example up by 1-based position or by case-insensitive name.
func Find(examples []service.Example, ref string) (service.Example, bool) {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(ref); err == nil {
		if n >= 1 && n <= len(examples) {
			return examples[n-1], true
		}
		return service.Example{}, false
	}
	for _, ex := range examples {
		if strings.EqualFold(ex.Name, ref) {
			return ex, true
		}
	}
	return service.Example{}, false
}

// Snippet returns the first n runes of query followed by "...".
func Snippet(query string, n int) string {
	if n <= 0 {
		return "..."
	}
	runes := []rune(query)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes) + "..."
}
