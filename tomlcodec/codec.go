// Package tomlcodec is the thin TOML adapter shared by the registry and
// manifest packages. Reading goes through pelletier/go-toml's Tree/Query
// API, in the same accumulating-mapper style as golang-dep's own toml.go
// (stop mapping as soon as one field fails, surface one error). Writing
// does not use go-toml's own marshaller: the spec requires a fixed
// key-priority ordering (§4.3/§8) no generic marshaller preserves, so this
// package exposes small ordered-emission primitives that callers drive
// directly, the same way golang-dep's own Gopkg.toml writer is a bespoke
// serializer rather than a trust-the-marshaller one.
package tomlcodec

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// Tree wraps a parsed TOML document and accumulates the first read error
// encountered, so callers can chain several Get calls and check Err once.
type Tree struct {
	t   *toml.Tree
	Err error
}

// Parse parses raw TOML bytes.
func Parse(data []byte) (*Tree, error) {
	t, err := toml.LoadBytes(data)
	if err != nil {
		return nil, errors.Wrap(err, "parsing TOML")
	}
	return &Tree{t: t}, nil
}

// Has reports whether key is present.
func (m *Tree) Has(key string) bool {
	if m.t == nil {
		return false
	}
	return m.t.Has(key)
}

// GetString reads a string key, defaulting to def when absent.
func (m *Tree) GetString(key, def string) string {
	if m.Err != nil || m.t == nil {
		return def
	}
	raw := m.t.GetDefault(key, def)
	s, ok := raw.(string)
	if !ok {
		m.Err = fmt.Errorf("field %q: expected string, got %T", key, raw)
		return def
	}
	return s
}

// GetBool reads a bool key, defaulting to def when absent.
func (m *Tree) GetBool(key string, def bool) bool {
	if m.Err != nil || m.t == nil {
		return def
	}
	raw := m.t.GetDefault(key, def)
	b, ok := raw.(bool)
	if !ok {
		m.Err = fmt.Errorf("field %q: expected bool, got %T", key, raw)
		return def
	}
	return b
}

// GetStringMap reads a table of string->string at key.
func (m *Tree) GetStringMap(key string) map[string]string {
	if m.Err != nil || m.t == nil {
		return nil
	}
	sub, ok := m.t.Get(key).(*toml.Tree)
	if !ok {
		return nil
	}
	out := make(map[string]string)
	for _, k := range sub.Keys() {
		v, ok := sub.Get(k).(string)
		if !ok {
			m.Err = fmt.Errorf("field %q.%q: expected string, got %T", key, k, sub.Get(k))
			return nil
		}
		out[k] = v
	}
	return out
}

// GetStringListMap reads a table of string->[]string at key (used for
// Project.targets).
func (m *Tree) GetStringListMap(key string) map[string][]string {
	if m.Err != nil || m.t == nil {
		return nil
	}
	sub, ok := m.t.Get(key).(*toml.Tree)
	if !ok {
		return nil
	}
	out := make(map[string][]string)
	for _, k := range sub.Keys() {
		raw, ok := sub.Get(k).([]interface{})
		if !ok {
			m.Err = fmt.Errorf("field %q.%q: expected list, got %T", key, k, sub.Get(k))
			return nil
		}
		list := make([]string, len(raw))
		for i, v := range raw {
			s, ok := v.(string)
			if !ok {
				m.Err = fmt.Errorf("field %q.%q[%d]: expected string, got %T", key, k, i, v)
				return nil
			}
			list[i] = s
		}
		out[k] = list
	}
	return out
}

// Subtree returns the nested table at key, or nil.
func (m *Tree) Subtree(key string) *Tree {
	if m.Err != nil || m.t == nil {
		return nil
	}
	sub, ok := m.t.Get(key).(*toml.Tree)
	if !ok {
		return nil
	}
	return &Tree{t: sub}
}

// ArrayOfTables returns the array of tables at key.
func (m *Tree) ArrayOfTables(key string) []*Tree {
	if m.Err != nil || m.t == nil {
		return nil
	}
	raw, ok := m.t.Get(key).([]*toml.Tree)
	if !ok {
		return nil
	}
	out := make([]*Tree, len(raw))
	for i, sub := range raw {
		out[i] = &Tree{t: sub}
	}
	return out
}

// Keys returns the top-level keys of the tree.
func (m *Tree) Keys() []string {
	if m.t == nil {
		return nil
	}
	return m.t.Keys()
}

// RawTree exposes the underlying *toml.Tree for callers that need to inspect
// a value's raw shape (a deps list-or-table, workspace projects, legacy
// manifest layout detection).
func (m *Tree) RawTree() *toml.Tree { return m.t }

// --- Ordered writer primitives -------------------------------------------

// Writer emits TOML text with the caller in full control of key order,
// which is the only way to satisfy the spec's fixed key-priority vector.
type Writer struct {
	bw  *bufio.Writer
	err error
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

// Comment writes a "# ..." header line.
func (w *Writer) Comment(text string) {
	w.writeLine("# " + text)
}

// Blank writes an empty line.
func (w *Writer) Blank() {
	w.writeLine("")
}

// KV writes "key = value" for a string value.
func (w *Writer) KV(key, value string) {
	w.writeLine(fmt.Sprintf("%s = %s", quoteKeyIfNeeded(key), QuoteString(value)))
}

// KVBool writes "key = true/false".
func (w *Writer) KVBool(key string, value bool) {
	w.writeLine(fmt.Sprintf("%s = %t", quoteKeyIfNeeded(key), value))
}

// KVStringList writes "key = [\"a\", \"b\"]", sorted for determinism unless
// preserveOrder is true.
func (w *Writer) KVStringList(key string, values []string, preserveOrder bool) {
	if !preserveOrder {
		values = append([]string(nil), values...)
		sort.Strings(values)
	}
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = QuoteString(v)
	}
	w.writeLine(fmt.Sprintf("%s = [%s]", quoteKeyIfNeeded(key), strings.Join(quoted, ", ")))
}

// TableHeader writes "[name]".
func (w *Writer) TableHeader(name string) {
	w.writeLine(fmt.Sprintf("[%s]", name))
}

// ArrayTableHeader writes "[[name]]".
func (w *Writer) ArrayTableHeader(name string) {
	w.writeLine(fmt.Sprintf("[[%s]]", name))
}

// Raw writes a pre-rendered line verbatim.
func (w *Writer) Raw(line string) {
	w.writeLine(line)
}

func (w *Writer) writeLine(s string) {
	if w.err != nil {
		return
	}
	_, w.err = w.bw.WriteString(s + "\n")
}

// Flush flushes buffered output and returns the first write error seen.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	return w.bw.Flush()
}

// QuoteString renders s as a TOML basic string.
func QuoteString(s string) string {
	return strconv.Quote(s)
}

// UnknownScalars returns the flat, top-level scalar/list fields of tree that
// are not in known, preserving each value's native type so a later write can
// round-trip it. Nested unknown tables are not collected (see DESIGN.md):
// real manifests overwhelmingly carry unknown keys as flat metadata, not
// whole extra tables, and supporting the general case isn't worth the
// complexity here.
func (m *Tree) UnknownScalars(known map[string]bool) map[string]interface{} {
	if m.t == nil {
		return nil
	}
	out := make(map[string]interface{})
	for _, k := range m.t.Keys() {
		if known[k] {
			continue
		}
		switch v := m.t.Get(k).(type) {
		case *toml.Tree, []*toml.Tree:
			continue
		default:
			out[k] = v
		}
	}
	return out
}

// WriteValue renders an arbitrary scalar or flat list value (as returned by
// UnknownScalars) as "key = value". Unsupported shapes are silently skipped
// rather than corrupting the file, since they only arise for the unknown
// top-level keys this adapter deliberately doesn't deep-model.
func (w *Writer) WriteValue(key string, value interface{}) {
	rendered, ok := renderScalar(value)
	if !ok {
		return
	}
	w.writeLine(fmt.Sprintf("%s = %s", quoteKeyIfNeeded(key), rendered))
}

func renderScalar(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return QuoteString(v), true
	case bool:
		return strconv.FormatBool(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), true
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, e := range v {
			r, ok := renderScalar(e)
			if !ok {
				return "", false
			}
			parts = append(parts, r)
		}
		return "[" + strings.Join(parts, ", ") + "]", true
	default:
		return "", false
	}
}

func quoteKeyIfNeeded(key string) string {
	bare := true
	for _, r := range key {
		if !(r == '_' || r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			bare = false
			break
		}
	}
	if bare && key != "" {
		return key
	}
	return strconv.Quote(key)
}
