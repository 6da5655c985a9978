// Package service is the client side of the query service contract: the
// request and response shapes and an HTTP client that speaks them.
package service

import (
	"bytes"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ExecutionRequest is the sole payload sent to the query endpoint.
type ExecutionRequest struct {
	Query string `json:"query"`
}

// Row maps a variable name to its textual value. Variables that are not
// bound in a solution are absent.
type Row map[string]string

// UnmarshalJSON accepts string values, drops nulls, and keeps any other
// scalar as its JSON text.
func (r *Row) UnmarshalJSON(data []byte) error {
	var raw map[string]jsoniter.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	row := make(Row, len(raw))
	for k, v := range raw {
		v = bytes.TrimSpace(v)
		switch {
		case len(v) == 0 || bytes.Equal(v, []byte("null")):
			continue
		case v[0] == '"':
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("row value %q: %w", k, err)
			}
			row[k] = s
		default:
			row[k] = string(v)
		}
	}
	*r = row
	return nil
}

// TabularResult is an ordered column list plus sparse rows.
type TabularResult struct {
	Variables []string `json:"variables"`
	Rows      []Row    `json:"rows"`
}

type tabularResult TabularResult

// UnmarshalJSON treats a JSON array (the "no bindings" shape some gateways
// emit) as a result with zero rows.
func (t *TabularResult) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		*t = TabularResult{}
		return nil
	}
	var aux tabularResult
	if err := json.Unmarshal(trimmed, &aux); err != nil {
		return err
	}
	*t = TabularResult(aux)
	return nil
}

// Len returns the number of rows.
func (t *TabularResult) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ExecutionResponse is the query endpoint's reply. Success is authoritative:
// Results is only meaningful when Success is true, Error only when it is false.
type ExecutionResponse struct {
	Success bool           `json:"success"`
	Results *TabularResult `json:"results,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Example is one entry of the example-query list.
type Example struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Query       string `json:"query" yaml:"query"`
}

// TransportError is returned when a request could not be completed or its
// response could not be interpreted.
type TransportError struct {
	Op     string
	Detail string
	Err    error
}

func (e *TransportError) Error() string {
	switch {
	case e.Detail != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Detail, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op + ": transport failure"
}

func (e *TransportError) Unwrap() error { return e.Err }
