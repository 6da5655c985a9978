package console

import (
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/johan-st/sparql-tui/internal/service"
)

func TestRender_ColumnFidelity(t *testing.T) {
	result := &service.TabularResult{
		Variables: []string{"a", "b"},
		Rows:      []service.Row{{"a": "x"}},
	}

	d := Render(result)
	if d.Kind != ViewTable {
		t.Fatalf("kind = %v, want table", d.Kind)
	}
	if !reflect.DeepEqual(d.Columns, []string{"a", "b"}) {
		t.Errorf("columns = %v", d.Columns)
	}
	if !reflect.DeepEqual(d.Rows, [][]string{{"x", ""}}) {
		t.Errorf("rows = %v", d.Rows)
	}
}

func TestRender_ColumnOrderIgnoresRowKeys(t *testing.T) {
	result := &service.TabularResult{
		Variables: []string{"z", "a", "m"},
		Rows: []service.Row{
			{"m": "3", "a": "2", "z": "1"},
			{"extra": "ignored", "a": "5"},
		},
	}

	d := Render(result)
	want := [][]string{{"1", "2", "3"}, {"", "5", ""}}
	if !reflect.DeepEqual(d.Rows, want) {
		t.Errorf("rows = %v, want %v", d.Rows, want)
	}
}

func TestRender_CountLabel(t *testing.T) {
	tests := []struct {
		rows int
		kind ViewKind
		want string
	}{
		{0, ViewEmpty, "0 results"},
		{1, ViewTable, "1 result"},
		{5, ViewTable, "5 results"},
	}

	for _, tt := range tests {
		result := &service.TabularResult{Variables: []string{"v"}}
		for i := 0; i < tt.rows; i++ {
			result.Rows = append(result.Rows, service.Row{"v": "x"})
		}
		d := Render(result)
		if d.Kind != tt.kind {
			t.Errorf("%d rows: kind = %v, want %v", tt.rows, d.Kind, tt.kind)
		}
		if d.Count != tt.want {
			t.Errorf("%d rows: count = %q, want %q", tt.rows, d.Count, tt.want)
		}
	}
}

func TestRender_EmptyState(t *testing.T) {
	for _, result := range []*service.TabularResult{nil, {}, {Variables: []string{"a"}}} {
		d := Render(result)
		if d.Kind != ViewEmpty {
			t.Errorf("Render(%+v) kind = %v", result, d.Kind)
		}
		if d.Title != "No Results" || d.Message == "" || d.Icon == "" {
			t.Errorf("empty state incomplete: %+v", d)
		}
		if len(d.Rows) != 0 || len(d.Columns) != 0 {
			t.Error("empty state must not carry a table")
		}
	}
}

func TestRender_IsPure(t *testing.T) {
	result := &service.TabularResult{
		Variables: []string{"a"},
		Rows:      []service.Row{{"a": "1"}, {"a": "2"}},
	}
	if !reflect.DeepEqual(Render(result), Render(result)) {
		t.Error("Render is not deterministic")
	}
}

func TestRender_EscapesCellsAndHeaders(t *testing.T) {
	result := &service.TabularResult{
		Variables: []string{"na\x1b[31mme"},
		Rows:      []service.Row{{"na\x1b[31mme": "\x1b]0;pwned\x07<script>"}},
	}

	d := Render(result)
	for _, s := range append(d.Columns, d.Rows[0]...) {
		if strings.ContainsRune(s, 0x1b) || strings.ContainsRune(s, 0x07) {
			t.Errorf("raw control character in %q", s)
		}
	}
	if !strings.Contains(d.Rows[0][0], "<script>") {
		t.Errorf("printable text altered: %q", d.Rows[0][0])
	}
}

func TestRenderError(t *testing.T) {
	d := RenderError("bad \x1b[2J query")
	if d.Kind != ViewError || d.Title != "Error" || d.Count != "Error" {
		t.Errorf("error display = %+v", d)
	}
	if strings.ContainsRune(d.Message, 0x1b) {
		t.Errorf("message not escaped: %q", d.Message)
	}
}

func TestEscapeForDisplay(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"<script>alert('x')</script>", "<script>alert('x')</script>"},
		{"tab\there", "tab\u2409here"},
		{"line\nbreak", "line\u240abreak"},
		{"\x1b[31mred", "\u241b[31mred"},
		{"del\x7f", "del\u2421"},
		{"c1\u009bx", `c1\u009bx`},
		{"rtl\u202eevil", `rtl\u202eevil`},
		{"bad\xffbyte", "bad\ufffdbyte"},
		{"caf\u00e9 \U0001F4CA", "caf\u00e9 \U0001F4CA"},
	}

	for _, tt := range tests {
		if got := EscapeForDisplay(tt.in); got != tt.want {
			t.Errorf("EscapeForDisplay(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEscapeForDisplay_NoTerminalSequencesSurvive(t *testing.T) {
	inputs := []string{
		"\x1b[2J\x1b[H",
		"\x1b]8;;http://evil\x1b\\link\x1b]8;;\x1b\\",
		"\u009b31m",
		"a\rb",
	}
	for _, in := range inputs {
		out := EscapeForDisplay(in)
		if ansi.Strip(out) != out {
			t.Errorf("EscapeForDisplay(%q) = %q still contains escape sequences", in, out)
		}
		if strings.ContainsAny(out, "\x1b\r\n\x07") {
			t.Errorf("EscapeForDisplay(%q) = %q still contains control characters", in, out)
		}
	}
}

func TestTriggerRoundTrip(t *testing.T) {
	queries := []string{
		"SELECT * WHERE { ?s ?p ?o }",
		"PREFIX uni: <http://example.org/university#>\nSELECT ?n WHERE { ?s uni:name \"O'Brien\" }",
		`back\slash and "quotes"`,
		"tabs\tand\r\nnewlines",
	}

	for _, q := range queries {
		body := EscapeForTrigger(q)
		if strings.ContainsAny(body, "\n\r") {
			t.Errorf("trigger body for %q contains a raw newline", q)
		}
		if strings.Contains(strings.ReplaceAll(body, `\"`, ""), `"`) {
			t.Errorf("trigger body for %q contains an unescaped quote", q)
		}

		got, ok := ParseLoadTrigger(LoadTrigger(q))
		if !ok || got != q {
			t.Errorf("ParseLoadTrigger(LoadTrigger(%q)) = %q, %v", q, got, ok)
		}
	}
}

func TestParseLoadTrigger_Rejects(t *testing.T) {
	for _, cmd := range []string{"", "load", "load x", `load "unterminated`, `run "x"`, `load "bad \q"`} {
		if _, ok := ParseLoadTrigger(cmd); ok {
			t.Errorf("ParseLoadTrigger(%q) accepted", cmd)
		}
	}
}
