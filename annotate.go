package vschema

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mattn/go-isatty"
)

const (
	ansiRed   = "\x1b[31m"
	ansiReset = "\x1b[0m"
)

type annotated struct {
	value   any
	keys    []string
	fields  map[string]*annotated
	items   []*annotated
	marks   []int
	missing bool
}

func annotateTree(v any) *annotated {
	n := &annotated{value: v}
	if m, ok := v.(map[string]any); ok {
		n.keys = sortedKeys(m)
		n.fields = make(map[string]*annotated, len(m))
		for k, e := range m {
			n.fields[k] = annotateTree(e)
		}
		return n
	}
	if arr, ok := asSlice(v); ok {
		n.items = make([]*annotated, len(arr))
		for i, e := range arr {
			n.items[i] = annotateTree(e)
		}
	}
	return n
}

// mark attaches error number mark to the node at path, creating a missing
// leaf for absent object keys.
func (n *annotated) mark(path []any, mark int) {
	cur := n
	for i, seg := range path {
		last := i == len(path)-1
		switch {
		case cur.fields != nil:
			key := fmt.Sprint(seg)
			next, ok := cur.fields[key]
			if !ok {
				if !last {
					cur.marks = append(cur.marks, mark)
					return
				}
				next = &annotated{value: Undefined, missing: true}
				cur.fields[key] = next
				cur.keys = append(cur.keys, key)
			}
			cur = next
		case cur.items != nil:
			idx, ok := seg.(int)
			if !ok || idx < 0 || idx >= len(cur.items) {
				cur.marks = append(cur.marks, mark)
				return
			}
			cur = cur.items[idx]
		default:
			cur.marks = append(cur.marks, mark)
			return
		}
	}
	cur.marks = append(cur.marks, mark)
}

type annotator struct {
	b     strings.Builder
	color bool
}

func (a *annotator) marks(ms []int) {
	if len(ms) == 0 {
		return
	}
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = strconv.Itoa(m)
	}
	s := "[" + strings.Join(parts, ", ") + "]"
	if a.color {
		s = ansiRed + s + ansiReset
	}
	a.b.WriteString(" " + s)
}

func (a *annotator) scalar(v any) {
	switch x := v.(type) {
	case UndefinedValue:
		a.b.WriteString("undefined")
		return
	case time.Time:
		a.b.WriteString(strconv.Quote(isoString(x)))
		return
	case *Sym:
		a.b.WriteString(x.String())
		return
	case *Reference:
		a.b.WriteString(x.String())
		return
	}
	if isFunc(v) {
		a.b.WriteString(functionPlaceholder)
		return
	}
	out, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(&a.b, "%v", v)
		return
	}
	a.b.Write(out)
}

func (a *annotator) write(n *annotated, indent string) {
	switch {
	case n.missing:
		if a.color {
			a.b.WriteString(ansiRed + "-- missing --" + ansiReset)
		} else {
			a.b.WriteString("-- missing --")
		}
	case n.fields != nil:
		if len(n.keys) == 0 {
			a.b.WriteString("{}")
			return
		}
		a.b.WriteString("{\n")
		inner := indent + "  "
		for i, k := range n.keys {
			child := n.fields[k]
			a.b.WriteString(inner + strconv.Quote(k))
			a.marks(child.marks)
			a.b.WriteString(": ")
			a.write(child, inner)
			if i < len(n.keys)-1 {
				a.b.WriteByte(',')
			}
			a.b.WriteByte('\n')
		}
		a.b.WriteString(indent + "}")
	case n.items != nil:
		if len(n.items) == 0 {
			a.b.WriteString("[]")
			return
		}
		a.b.WriteString("[\n")
		inner := indent + "  "
		for i, child := range n.items {
			a.b.WriteString(inner)
			a.write(child, inner)
			a.marks(child.marks)
			if i < len(n.items)-1 {
				a.b.WriteByte(',')
			}
			a.b.WriteByte('\n')
		}
		a.b.WriteString(indent + "]")
	default:
		a.scalar(n.value)
	}
}

func (e *ValidationError) annotate(color bool) string {
	if e == nil {
		return ""
	}
	root := annotateTree(e.Object)
	for i, d := range e.Details {
		root.mark(d.Path, i+1)
	}
	a := &annotator{color: color}
	a.write(root, "")
	a.marks(root.marks)
	a.b.WriteString("\n")
	for i, d := range e.Details {
		line := fmt.Sprintf("[%d] %s", i+1, d.Message)
		if color {
			line = ansiRed + line + ansiReset
		}
		a.b.WriteString("\n" + line)
	}
	return a.b.String()
}

// Annotate renders the validated input with numbered error markers followed
// by the numbered messages.
func (e *ValidationError) Annotate() string { return e.annotate(false) }

// AnnotateColor is Annotate with ANSI colored markers.
func (e *ValidationError) AnnotateColor() string { return e.annotate(true) }

// Fprint writes the annotation to w, colored when w is a terminal.
func (e *ValidationError) Fprint(w io.Writer) error {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	_, err := io.WriteString(w, e.annotate(color)+"\n")
	return err
}
