// Package sparql speaks the SPARQL 1.1 protocol to a query endpoint and
// converts its JSON results into tabular form.
package sparql

import (
	"sort"
	"strconv"
	"strings"

	"github.com/johan-st/sparql-tui/internal/service"
)

// Term is one RDF term of a solution binding.
type Term struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Lang     string `json:"xml:lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

// Results is an application/sparql-results+json document.
type Results struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results *struct {
		Bindings []map[string]Term `json:"bindings"`
	} `json:"results,omitempty"`
	Boolean *bool `json:"boolean,omitempty"`
}

// Bindings returns the solutions, or nil for ASK results.
func (r *Results) Bindings() []map[string]Term {
	if r == nil || r.Results == nil {
		return nil
	}
	return r.Results.Bindings
}

// Tabulate converts results into a TabularResult. Column order follows
// head.vars, or the sorted keys of the first binding when head.vars is
// empty. With shorten set, IRIs are reduced to their local name. An ASK
// result becomes a single "boolean" column.
func Tabulate(r *Results, shorten bool) *service.TabularResult {
	if r == nil {
		return &service.TabularResult{}
	}
	if r.Boolean != nil {
		return &service.TabularResult{
			Variables: []string{"boolean"},
			Rows:      []service.Row{{"boolean": strconv.FormatBool(*r.Boolean)}},
		}
	}

	bindings := r.Bindings()
	vars := r.Head.Vars
	if len(vars) == 0 && len(bindings) > 0 {
		for name := range bindings[0] {
			vars = append(vars, name)
		}
		sort.Strings(vars)
	}

	out := &service.TabularResult{
		Variables: append([]string(nil), vars...),
		Rows:      make([]service.Row, 0, len(bindings)),
	}
	for _, b := range bindings {
		row := make(service.Row, len(vars))
		for _, v := range vars {
			term, ok := b[v]
			if !ok {
				continue
			}
			value := term.Value
			if shorten && term.Type == "uri" {
				value = LocalName(value)
			}
			row[v] = value
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// LocalName returns the part of an IRI after the last '#', or after the
// last '/' when there is no '#'.
func LocalName(iri string) string {
	if i := strings.LastIndexByte(iri, '#'); i >= 0 {
		return iri[i+1:]
	}
	if i := strings.LastIndexByte(iri, '/'); i >= 0 {
		return iri[i+1:]
	}
	return iri
}
