package vschema

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/reoring/vschema/i18n"
)

var templateVar = regexp.MustCompile(`\{\{(!?)([^}]+)\}\}`)

// message renders the template for typ. Lookup order: the per-call
// Language tree, extension languages, the locale catalog, then typ itself.
func (e *Engine) message(typ string, ctx Context, o *Options) string {
	tmpl, ok := lookupLanguage(o.Language, typ)
	if !ok && e != nil {
		tmpl, ok = e.language[typ]
	}
	tr := i18n.For(o.Locale)
	if !ok {
		tmpl, ok = tr.Message(typ)
	}
	if !ok {
		return typ
	}
	wrap := wrapArrays(o)
	if strings.HasPrefix(tmpl, "!!") {
		return render(tmpl[2:], ctx, wrap)
	}
	prefix, ok := lookupLanguage(o.Language, "key")
	if !ok {
		prefix, _ = tr.Message("key")
	}
	return render(prefix+tmpl, ctx, wrap)
}

func rootLabel(o *Options) string {
	if s, ok := lookupLanguage(o.Language, "root"); ok {
		return s
	}
	if s, ok := i18n.For(o.Locale).Message("root"); ok {
		return s
	}
	return "value"
}

func wrapArrays(o *Options) bool {
	if o.Language == nil {
		return true
	}
	if m, ok := o.Language["messages"].(map[string]any); ok {
		if b, ok := m["wrapArrays"].(bool); ok {
			return b
		}
	}
	return true
}

// lookupLanguage walks a nested tree along the dotted path.
func lookupLanguage(tree map[string]any, path string) (string, bool) {
	if tree == nil {
		return "", false
	}
	var cur any = tree
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur, ok = m[seg]
		if !ok {
			return "", false
		}
	}
	switch v := cur.(type) {
	case string:
		return v, true
	case map[string]any:
		// "string.regex" may be a branch whose default is "base".
		if s, ok := v["base"].(string); ok {
			return s, true
		}
	}
	return "", false
}

func render(tmpl string, ctx Context, wrap bool) string {
	return templateVar.ReplaceAllStringFunc(tmpl, func(m string) string {
		sub := templateVar.FindStringSubmatch(m)
		v, ok := reachValue(map[string]any(ctx), strings.Split(sub[2], "."))
		if !ok {
			return ""
		}
		return stringify(v, wrap)
	})
}

// stringify renders a context value for messages and annotations.
func stringify(v any, wrap bool) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case *Reference:
		return x.String()
	case *Sym:
		return x.String()
	case UndefinedValue:
		return "undefined"
	case time.Time:
		return isoString(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	case error:
		return x.Error()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = stringify(rv.Index(i).Interface(), false)
		}
		s := strings.Join(parts, ", ")
		if wrap {
			return "[" + s + "]"
		}
		return s
	case reflect.Func:
		return "[function]"
	}
	return fmt.Sprint(v)
}
