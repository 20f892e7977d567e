package migration

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	summaryTitle = "Actions summary:"

	// codeSentinel marks re-quoted code expressions while a script is decoded.
	codeSentinel = "\x00code:"
)

var placeholderRe = regexp.MustCompile(`"@@@@@(\d+)@@@@@"`)

// RenderScript writes the persisted form of an artifact: a comment header
// with the action summary followed by the info, up and down document. Code
// expressions are written unquoted and column attribute objects on a single
// line.
func RenderScript(a *Artifact) ([]byte, error) {
	r := &renderer{}
	doc := Object{
		{Key: "info", Value: infoObject(a.Info)},
		{Key: "up", Value: r.commands(a.Up)},
		{Key: "down", Value: r.commands(a.Down)},
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode script: %w", err)
	}
	text, err := r.reinsert(body.String())
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.WriteString("// " + summaryTitle + "\n//\n")
	for _, line := range a.Summary {
		out.WriteString("// " + line + "\n")
	}
	out.WriteString("//\n\n")
	out.WriteString(text)
	return out.Bytes(), nil
}

func infoObject(info Info) Object {
	return Object{
		{Key: "created", Value: info.Created.UTC().Format(time.RFC3339Nano)},
		{Key: "revision", Value: info.Revision},
		{Key: "name", Value: info.Name},
		{Key: "comment", Value: info.Comment},
	}
}

// renderer swaps code expressions and inline objects for placeholders and
// remembers their text.
type renderer struct {
	held []string
}

func (r *renderer) hold(text string) string {
	r.held = append(r.held, text)
	return fmt.Sprintf("@@@@@%d@@@@@", len(r.held)-1)
}

func (r *renderer) commands(cmds []Command) []any {
	out := make([]any, len(cmds))
	for i, c := range cmds {
		params := make([]any, len(c.Params))
		for j, p := range c.Params {
			params[j] = r.param(c.ActionName, j, p)
		}
		out[i] = Object{{Key: "fn", Value: c.ActionName}, {Key: "params", Value: params}}
	}
	return out
}

func (r *renderer) param(action string, pos int, v any) any {
	switch {
	case action == "createTable" && pos == 1:
		cols, ok := v.(Object)
		if !ok {
			break
		}
		out := make(Object, len(cols))
		for i, p := range cols {
			out[i] = Property{Key: p.Key, Value: r.hold(r.singleLine(p.Value))}
		}
		return out
	case (action == "addColumn" || action == "changeColumn") && pos == 2:
		return r.hold(r.singleLine(v))
	}
	return r.value(v)
}

func (r *renderer) value(v any) any {
	switch v := v.(type) {
	case Expr:
		return r.hold(string(v))
	case Object:
		out := make(Object, len(v))
		for i, p := range v {
			out[i] = Property{Key: p.Key, Value: r.value(p.Value)}
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = r.value(e)
		}
		return out
	default:
		return v
	}
}

// singleLine renders v on one line. Nested code expressions become quoted
// placeholders that reinsert resolves later.
func (r *renderer) singleLine(v any) string {
	switch v := v.(type) {
	case Expr:
		return strconv.Quote(r.hold(string(v)))
	case Object:
		if len(v) == 0 {
			return "{}"
		}
		parts := make([]string, len(v))
		for i, p := range v {
			parts[i] = scalarText(p.Key) + ": " + r.singleLine(p.Value)
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case []any:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = r.singleLine(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case []string:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = scalarText(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return scalarText(v)
	}
}

func scalarText(v any) string {
	b, err := marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// reinsert substitutes placeholders until none is left. Held text may itself
// contain placeholders.
func (r *renderer) reinsert(text string) (string, error) {
	for range len(r.held) + 1 {
		if !placeholderRe.MatchString(text) {
			return text, nil
		}
		text = placeholderRe.ReplaceAllStringFunc(text, func(m string) string {
			n, err := strconv.Atoi(placeholderRe.FindStringSubmatch(m)[1])
			if err != nil || n >= len(r.held) {
				return m
			}
			return r.held[n]
		})
	}
	if placeholderRe.MatchString(text) {
		return "", errors.New("unresolved placeholders in script")
	}
	return text, nil
}

// ParseScript reads a script written by RenderScript.
func ParseScript(src []byte) (*Artifact, error) {
	summary, body, err := splitHeader(src)
	if err != nil {
		return nil, err
	}
	quoted, err := quoteCode(body)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(strings.NewReader(quoted))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	doc, ok := v.(Object)
	if !ok {
		return nil, errors.New("decode script: document is not an object")
	}

	a := &Artifact{Summary: summary}
	if a.Info, err = parseInfo(doc); err != nil {
		return nil, err
	}
	if a.Up, err = parseCommands(doc, "up"); err != nil {
		return nil, err
	}
	if a.Down, err = parseCommands(doc, "down"); err != nil {
		return nil, err
	}
	return a, nil
}

func splitHeader(src []byte) ([]string, string, error) {
	var (
		summary []string
		rest    strings.Builder
		header  = true
	)
	sc := bufio.NewScanner(bytes.NewReader(src))
	sc.Buffer(make([]byte, 0, 64*1024), len(src)+1)
	for sc.Scan() {
		line := sc.Text()
		if header {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			if strings.HasPrefix(trimmed, "//") {
				text := strings.TrimSpace(strings.TrimPrefix(trimmed, "//"))
				if text != "" && text != summaryTitle {
					summary = append(summary, text)
				}
				continue
			}
			header = false
		}
		rest.WriteString(line)
		rest.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, "", fmt.Errorf("read script: %w", err)
	}
	return summary, rest.String(), nil
}

// quoteCode turns every bare code expression of the document into a string
// carrying codeSentinel so the result is plain JSON.
func quoteCode(src string) (string, error) {
	var b strings.Builder
	b.Grow(len(src))
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '"':
			j, err := skipQuoted(src, i, '"')
			if err != nil {
				return "", err
			}
			b.WriteString(src[i:j])
			i = j
		case isCodeStart(c):
			j, err := scanCode(src, i)
			if err != nil {
				return "", err
			}
			expr := strings.TrimRight(src[i:j], " \t\r")
			switch expr {
			case "true", "false", "null":
				b.WriteString(expr)
			default:
				b.WriteString(jsonString(codeSentinel + expr))
			}
			b.WriteString(src[i+len(expr) : j])
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}

// jsonString quotes s as a JSON string literal. Control characters are
// written as \u escapes, which strconv.Quote does not guarantee.
func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func isCodeStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// scanCode returns the end of the expression starting at i: the first comma,
// closing bracket or newline outside nested brackets and quotes.
func scanCode(src string, i int) (int, error) {
	depth := 0
	for i < len(src) {
		switch c := src[i]; c {
		case '\'', '"':
			j, err := skipQuoted(src, i, c)
			if err != nil {
				return 0, err
			}
			i = j
			continue
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth == 0 {
				return i, nil
			}
			depth--
		case ',', '\n':
			if depth == 0 {
				return i, nil
			}
		}
		i++
	}
	return i, nil
}

// skipQuoted returns the index just past the quoted string starting at i.
func skipQuoted(src string, i int, quote byte) (int, error) {
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case quote:
			return j + 1, nil
		}
	}
	return 0, fmt.Errorf("unterminated string at offset %d", i)
}

// decodeValue reads one JSON value keeping object key order.
func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := Object{}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", kt)
				}
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				obj = append(obj, Property{Key: key, Value: v})
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := []any{}
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", t)
		}
	case string:
		if code, ok := strings.CutPrefix(t, codeSentinel); ok {
			return Expr(code), nil
		}
		return t, nil
	default:
		return t, nil
	}
}

func parseInfo(doc Object) (Info, error) {
	v, _ := doc.Get("info")
	obj, ok := v.(Object)
	if !ok {
		return Info{}, errors.New("script has no info object")
	}

	info := Info{Name: obj.GetString("name"), Comment: obj.GetString("comment")}
	if rev, ok := obj.Get("revision"); ok {
		n, ok := rev.(json.Number)
		if !ok {
			return Info{}, fmt.Errorf("%w: %v", ErrInvalidRevision, rev)
		}
		r, err := strconv.Atoi(n.String())
		if err != nil || r < 0 {
			return Info{}, fmt.Errorf("%w: %s", ErrInvalidRevision, n)
		}
		info.Revision = r
	}
	if created := obj.GetString("created"); created != "" {
		t, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return Info{}, fmt.Errorf("parse created: %w", err)
		}
		info.Created = t
	}
	return info, nil
}

func parseCommands(doc Object, key string) ([]Command, error) {
	v, _ := doc.Get(key)
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("script has no %s list", key)
	}

	var cmds []Command
	for i, item := range list {
		obj, ok := item.(Object)
		if !ok {
			return nil, fmt.Errorf("%s[%d]: not an object", key, i)
		}
		name := obj.GetString("fn")
		if name == "" {
			return nil, fmt.Errorf("%s[%d]: missing fn", key, i)
		}
		pv, _ := obj.Get("params")
		params, ok := pv.([]any)
		if !ok {
			return nil, fmt.Errorf("%s[%d]: params is not a list", key, i)
		}
		cmds = append(cmds, Command{ActionName: name, Params: typedParams(name, params)})
	}
	return cmds, nil
}

// typedParams restores []string for the index field lists.
func typedParams(action string, params []any) []any {
	if (action == "addIndex" || action == "removeIndex") && len(params) > 1 {
		if fields, ok := stringList(params[1]); ok {
			params[1] = fields
		}
	}
	return params
}

func stringList(v any) ([]string, bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, len(arr))
	for i, e := range arr {
		s, ok := e.(string)
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}

// WriteScript renders a to w.
func WriteScript(w io.Writer, a *Artifact) error {
	data, err := RenderScript(a)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
