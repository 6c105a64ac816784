package i18n

import (
	"sort"
	"sync"

	"golang.org/x/text/language"
)

// Translator retrieves message templates for error types such as
// "number.min". Templates use {{var}} placeholders.
type Translator interface {
	Message(code string) (string, bool)
}

// Catalog is a flat dictionary Translator keyed by error type.
type Catalog map[string]string

func (c Catalog) Message(code string) (string, bool) {
	m, ok := c[code]
	return m, ok
}

// layered consults the matched catalog, then English.
type layered struct{ primary, fallback Catalog }

func (l layered) Message(code string) (string, bool) {
	if m, ok := l.primary[code]; ok {
		return m, true
	}
	m, ok := l.fallback[code]
	return m, ok
}

type registry struct {
	mu       sync.RWMutex
	catalogs map[language.Tag]Catalog
	tags     []language.Tag
	matcher  language.Matcher
	current  language.Tag
}

var reg = newRegistry()

func newRegistry() *registry {
	r := &registry{catalogs: map[language.Tag]Catalog{}, current: language.English}
	r.add(language.English, english)
	r.add(language.Japanese, japanese)
	return r
}

// add must be called with mu held (or before publication).
func (r *registry) add(tag language.Tag, c Catalog) {
	cur, ok := r.catalogs[tag]
	if !ok {
		cur = Catalog{}
		r.tags = append(r.tags, tag)
		// English stays first so the matcher falls back to it.
		sort.SliceStable(r.tags, func(i, j int) bool { return r.tags[i] == language.English && r.tags[j] != language.English })
	} else {
		cp := make(Catalog, len(cur)+len(c))
		for k, v := range cur {
			cp[k] = v
		}
		cur = cp
	}
	for k, v := range c {
		cur[k] = v
	}
	r.catalogs[tag] = cur
	r.matcher = language.NewMatcher(r.tags)
}

func (r *registry) match(tag string) language.Tag {
	if tag == "" {
		return r.current
	}
	_, idx, conf := r.matcher.Match(language.Make(tag))
	if conf == language.No {
		return language.English
	}
	return r.tags[idx]
}

// Register merges c into the catalog for tag, creating it if needed.
func Register(tag string, c Catalog) error {
	t, err := language.Parse(tag)
	if err != nil {
		return err
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.add(t, c)
	return nil
}

// For returns the Translator best matching tag, falling back to English for
// missing entries. An empty tag selects the current language.
func For(tag string) Translator {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	t := reg.match(tag)
	return layered{primary: reg.catalogs[t], fallback: reg.catalogs[language.English]}
}

// Match returns the registered language that best matches tag.
func Match(tag string) string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.match(tag).String()
}

// SetLanguage switches the default language used when no locale is given.
// Unknown tags select the closest registered language, or English.
func SetLanguage(tag string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if tag == "" {
		reg.current = language.English
		return
	}
	reg.current = reg.match(tag)
}

// Language returns the current default language tag.
func Language() string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.current.String()
}

// T fetches the template for code in the current language, or code itself.
func T(code string) string {
	if m, ok := For("").Message(code); ok {
		return m
	}
	return code
}
