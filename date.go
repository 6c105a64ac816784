package vschema

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/itchyny/timefmt-go"
)

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z0700",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

var looseLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
	time.UnixDate,
	"Jan 2, 2006",
	"January 2, 2006",
	"01/02/2006",
}

func parseISODate(str string) (time.Time, bool) {
	if !isoDateRe.MatchString(str) {
		return time.Time{}, false
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, str); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func isoString(t time.Time) string {
	ms := t.Nanosecond() / 1e6
	return timefmt.Format(t.UTC(), "%Y-%m-%dT%H:%M:%S.") + strconv.Itoa(ms+1000)[1:] + "Z"
}

// fromTimestamp interprets n as milliseconds, or seconds for "unix".
func fromTimestamp(n float64, kind string) time.Time {
	if kind == "unix" {
		sec, frac := math.Modf(n)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC()
	}
	return time.UnixMilli(int64(n)).UTC()
}

// toDate converts strings and numbers according to the node's date flags.
func (s *Schema) toDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		str := strings.TrimSpace(x)
		if len(s.flags.formats) > 0 {
			for _, f := range s.flags.formats {
				if t, err := timefmt.Parse(str, f); err == nil {
					return t, true
				}
			}
			return time.Time{}, false
		}
		if s.flags.iso {
			return parseISODate(str)
		}
		if f, err := strconv.ParseFloat(str, 64); err == nil {
			return fromTimestamp(f, s.flags.timestamp), true
		}
		if s.flags.timestamp != "" {
			return time.Time{}, false
		}
		if t, ok := parseISODate(str); ok {
			return t, true
		}
		for _, layout := range looseLayouts {
			if t, err := time.Parse(layout, str); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}
	if f, ok := toFloat(v); ok && !s.flags.iso && len(s.flags.formats) == 0 {
		return fromTimestamp(f, s.flags.timestamp), true
	}
	return time.Time{}, false
}

func (s *Schema) coerceDate(v any) any {
	if t, ok := s.toDate(v); ok {
		return t
	}
	return v
}

func (s *Schema) baseDate(c *ruleCtx, v any) (any, *ErrorItem) {
	if _, ok := v.(time.Time); ok {
		return v, nil
	}
	switch {
	case s.flags.iso:
		return v, c.err("date.isoDate", Context{"value": v})
	case s.flags.timestamp != "":
		return v, c.err("date.timestamp."+s.flags.timestamp, Context{"value": v})
	case len(s.flags.formats) > 0:
		return v, c.err("date.format", Context{"value": v, "format": s.flags.formats})
	}
	return v, c.err("date.base", Context{"value": v})
}

// dateLimit normalizes a date limit: time.Time, "now", a Reference, or a
// value accepted by the date parser.
func dateLimit(op string, limit any) any {
	switch l := limit.(type) {
	case *Reference:
		return l
	case time.Time:
		return l
	case string:
		if l == "now" {
			return l
		}
	}
	t, ok := (&Schema{typ: TypeDate}).toDate(limit)
	if !ok {
		schemaPanic(op, ErrInvalidSchema, "invalid date limit %v", limit)
	}
	return t
}

func (s *Schema) dateCompare(name string, limit any, cmp func(a, b int64) bool) *Schema {
	s.mustBe(name, TypeDate)
	limit = dateLimit(name, limit)
	return s.addTest(name, limit, func(c *ruleCtx, v any) (any, *ErrorItem) {
		var lt time.Time
		switch l := limit.(type) {
		case string:
			lt = time.Now()
		case time.Time:
			lt = l
		case *Reference:
			rv, e := c.param(l)
			if e != nil {
				return v, e
			}
			t, ok := c.s.toDate(rv)
			if !ok {
				return v, c.err("date.ref", Context{"ref": l})
			}
			lt = t
		}
		if cmp(v.(time.Time).UnixMilli(), lt.UnixMilli()) {
			return v, nil
		}
		return v, c.err("date."+name, Context{"limit": lt, "value": v})
	})
}

// ISO restricts string input to ISO 8601.
func (s *Schema) ISO() *Schema {
	s.mustBe("iso", TypeDate)
	out := s.clone()
	out.flags.iso = true
	return out
}

// Timestamp accepts numeric input as milliseconds ("javascript", default) or
// seconds ("unix").
func (s *Schema) Timestamp(kind ...string) *Schema {
	s.mustBe("timestamp", TypeDate)
	k := "javascript"
	if len(kind) > 0 {
		k = kind[0]
	}
	if k != "javascript" && k != "unix" {
		schemaPanic("timestamp", ErrInvalidSchema, `timestamp type must be "javascript" or "unix"`)
	}
	out := s.clone()
	out.flags.timestamp = k
	return out
}

// Format restricts string input to the given strftime layouts.
func (s *Schema) Format(layouts ...string) *Schema {
	s.mustBe("format", TypeDate)
	if len(layouts) == 0 {
		schemaPanic("format", ErrInvalidSchema, "at least one layout required")
	}
	out := s.clone()
	out.flags.formats = slices.Clone(layouts)
	return out
}
