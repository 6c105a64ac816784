package vschema

import (
	"encoding/base64"
	"encoding/hex"
	"net/mail"
	"net/netip"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

type replacement struct {
	pattern *regexp.Regexp
	with    string
}

func (s *Schema) coerceString(v any) any {
	str, ok := v.(string)
	if !ok {
		return v
	}
	if s.flags.normalize != "" {
		str = normForm(s.flags.normalize).String(str)
	}
	switch s.flags.caseMode {
	case "lower":
		str = cases.Lower(language.Und).String(str)
	case "upper":
		str = cases.Upper(language.Und).String(str)
	}
	if s.flags.trim {
		str = strings.TrimSpace(str)
	}
	for _, r := range s.flags.replacements {
		str = r.pattern.ReplaceAllString(str, r.with)
	}
	if s.flags.truncate {
		for _, t := range s.tests {
			if t.name != "max" {
				continue
			}
			if n, ok := t.arg.(int); ok && utf8.RuneCountInString(str) > n {
				str = string([]rune(str)[:n])
			}
		}
	}
	if s.flags.iso {
		if t, ok := parseISODate(str); ok {
			str = isoString(t)
		}
	}
	return str
}

func (s *Schema) baseString(c *ruleCtx, v any) (any, *ErrorItem) {
	if _, ok := v.(string); !ok {
		return v, c.err("string.base", Context{"value": v})
	}
	return v, nil
}

// Insensitive makes valids/invalids matching case-insensitive.
func (s *Schema) Insensitive() *Schema {
	s.mustBe("insensitive", TypeString, TypeBoolean)
	out := s.clone()
	out.flags.insensitive = true
	return out
}

// stringLength measures str in characters, or in bytes under encoding.
func stringLength(str, encoding string) int {
	switch strings.ToLower(encoding) {
	case "":
		return utf8.RuneCountInString(str)
	case "utf8", "utf-8":
		return len(str)
	case "hex":
		return len(str) / 2
	case "base64":
		if b, err := base64.StdEncoding.DecodeString(str); err == nil {
			return len(b)
		}
		return base64.StdEncoding.DecodedLen(len(str))
	case "ucs2", "ucs-2", "utf16le", "utf-16le":
		return 2 * len(utf16.Encode([]rune(str)))
	case "ascii", "latin1", "binary":
		return utf8.RuneCountInString(str)
	}
	schemaPanic("length", ErrInvalidSchema, "unknown encoding %q", encoding)
	return 0
}

func validEncoding(enc string) bool {
	switch strings.ToLower(enc) {
	case "utf8", "utf-8", "hex", "base64", "ucs2", "ucs-2", "utf16le", "utf-16le", "ascii", "latin1", "binary":
		return true
	}
	return false
}

func (s *Schema) stringLengthRule(name string, limit any, encoding []string, cmp func(n, limit int) bool) *Schema {
	s.mustBe(name, TypeString)
	limit = checkLimit(name, limit)
	enc := ""
	if len(encoding) > 0 {
		enc = encoding[0]
		if !validEncoding(enc) {
			schemaPanic(name, ErrInvalidSchema, "unknown encoding %q", enc)
		}
	}
	arg := limit
	if enc != "" {
		arg = map[string]any{"limit": limit, "encoding": enc}
	}
	return s.addTest(name, arg, func(c *ruleCtx, v any) (any, *ErrorItem) {
		lv, e := c.param(limit)
		if e != nil {
			return v, e
		}
		n, ok := intLimit(lv)
		if !ok {
			return v, c.err("string.ref", Context{"ref": limit})
		}
		if cmp(stringLength(v.(string), enc), n) {
			return v, nil
		}
		return v, c.err("string."+name, Context{"limit": n, "value": v, "encoding": enc})
	})
}

// Min requires at least limit characters (or bytes under encoding).
func (s *Schema) Min(limit any, encoding ...string) *Schema {
	switch s.typ {
	case TypeString:
		return s.stringLengthRule("min", limit, encoding, func(n, l int) bool { return n >= l })
	case TypeNumber:
		return s.numberCompare("min", limit, func(a, b float64) bool { return a >= b })
	case TypeDate:
		return s.dateCompare("min", limit, func(a, b int64) bool { return a >= b })
	case TypeBinary:
		return s.binaryLength("min", limit, func(n, l int) bool { return n >= l })
	case TypeArray:
		return s.arrayLength("min", limit, func(n, l int) bool { return n >= l })
	case TypeObject:
		return s.objectLength("min", limit, func(n, l int) bool { return n >= l })
	}
	schemaPanic("min", ErrInvalidSchema, "not supported by %s schema", s.Type())
	return nil
}

// Max is the upper counterpart of Min.
func (s *Schema) Max(limit any, encoding ...string) *Schema {
	switch s.typ {
	case TypeString:
		return s.stringLengthRule("max", limit, encoding, func(n, l int) bool { return n <= l })
	case TypeNumber:
		return s.numberCompare("max", limit, func(a, b float64) bool { return a <= b })
	case TypeDate:
		return s.dateCompare("max", limit, func(a, b int64) bool { return a <= b })
	case TypeBinary:
		return s.binaryLength("max", limit, func(n, l int) bool { return n <= l })
	case TypeArray:
		return s.arrayLength("max", limit, func(n, l int) bool { return n <= l })
	case TypeObject:
		return s.objectLength("max", limit, func(n, l int) bool { return n <= l })
	}
	schemaPanic("max", ErrInvalidSchema, "not supported by %s schema", s.Type())
	return nil
}

// Length requires an exact length.
func (s *Schema) Length(limit any, encoding ...string) *Schema {
	switch s.typ {
	case TypeString:
		return s.stringLengthRule("length", limit, encoding, func(n, l int) bool { return n == l })
	case TypeBinary:
		return s.binaryLength("length", limit, func(n, l int) bool { return n == l })
	case TypeArray:
		return s.arrayLength("length", limit, func(n, l int) bool { return n == l })
	case TypeObject:
		return s.objectLength("length", limit, func(n, l int) bool { return n == l })
	}
	schemaPanic("length", ErrInvalidSchema, "not supported by %s schema", s.Type())
	return nil
}

// RegexOptions names or inverts a Regex rule.
type RegexOptions struct {
	Name   string
	Invert bool
}

// Regex requires the string to match pattern (a string or *regexp.Regexp).
func (s *Schema) Regex(pattern any, opts ...RegexOptions) *Schema {
	s.mustBe("regex", TypeString)
	var re *regexp.Regexp
	switch p := pattern.(type) {
	case *regexp.Regexp:
		re = p
	case string:
		var err error
		if re, err = regexp.Compile(p); err != nil {
			schemaPanic("regex", ErrInvalidSchema, "%v", err)
		}
	default:
		schemaPanic("regex", ErrInvalidSchema, "pattern must be a string or *regexp.Regexp, got %T", pattern)
	}
	var opt RegexOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	arg := map[string]any{"pattern": re.String()}
	if opt.Name != "" {
		arg["name"] = opt.Name
	}
	if opt.Invert {
		arg["invert"] = true
	}
	typ := "string.regex"
	if opt.Invert {
		typ += ".invert"
	}
	if opt.Name != "" {
		typ += ".name"
	} else {
		typ += ".base"
	}
	return s.addTest("regex", arg, func(c *ruleCtx, v any) (any, *ErrorItem) {
		if re.MatchString(v.(string)) != opt.Invert {
			return v, nil
		}
		return v, c.err(typ, Context{"name": opt.Name, "pattern": re.String(), "value": v})
	})
}

// Pattern is an alias of Regex on strings; on objects it declares a pattern
// key (see object.go).
func (s *Schema) Pattern(pattern any, schemaLike any, opts ...RegexOptions) *Schema {
	if s.typ == TypeObject {
		return s.objectPattern(pattern, schemaLike)
	}
	if schemaLike != nil {
		if o, ok := schemaLike.(RegexOptions); ok {
			opts = append([]RegexOptions{o}, opts...)
		} else {
			schemaPanic("pattern", ErrInvalidSchema, "unexpected argument %T", schemaLike)
		}
	}
	return s.Regex(pattern, opts...)
}

func (s *Schema) stringCheck(name string, arg any, ok func(string) bool, ctx func(string) Context) *Schema {
	s.mustBe(name, TypeString)
	return s.addTest(name, arg, func(c *ruleCtx, v any) (any, *ErrorItem) {
		str := v.(string)
		if ok(str) {
			return v, nil
		}
		cx := Context{"value": v}
		if ctx != nil {
			for k, x := range ctx(str) {
				cx[k] = x
			}
		}
		return v, c.err("string."+name, cx)
	})
}

var (
	alphanumRe = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	tokenRe    = regexp.MustCompile(`^\w+$`)
	hexRe      = regexp.MustCompile(`^[a-fA-F0-9]+$`)
	hostLabel  = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)
	dataURIRe  = regexp.MustCompile(`^data:[\w+.-]+/[\w+.-]+;((charset=[\w-]+|base64),)?(.*)$`)
	isoDateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}([T ]\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}(:?\d{2})?)?)?$`)
)

func (s *Schema) Alphanum() *Schema {
	return s.stringCheck("alphanum", nil, alphanumRe.MatchString, nil)
}

// Token allows letters, digits, and underscore.
func (s *Schema) Token() *Schema {
	return s.stringCheck("token", nil, tokenRe.MatchString, nil)
}

func (s *Schema) Email() *Schema {
	return s.stringCheck("email", nil, isEmail, nil)
}

func isEmail(str string) bool {
	addr, err := mail.ParseAddress(str)
	if err != nil || addr.Address != str || addr.Name != "" {
		return false
	}
	at := strings.LastIndexByte(str, '@')
	domain := str[at+1:]
	return strings.Contains(domain, ".") && isHostname(domain)
}

// IPOptions restricts IP versions ("ipv4", "ipv6") and CIDR
// ("optional", "required", "forbidden").
type IPOptions struct {
	Version []string
	CIDR    string
}

func (s *Schema) IP(opts ...IPOptions) *Schema {
	var opt IPOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	if opt.CIDR == "" {
		opt.CIDR = "optional"
	}
	switch opt.CIDR {
	case "optional", "required", "forbidden":
	default:
		schemaPanic("ip", ErrInvalidSchema, "cidr must be optional, required or forbidden")
	}
	for _, v := range opt.Version {
		if v != "ipv4" && v != "ipv6" {
			schemaPanic("ip", ErrInvalidSchema, "unknown ip version %q", v)
		}
	}
	arg := map[string]any{"cidr": opt.CIDR}
	typ := "ip"
	if len(opt.Version) > 0 {
		arg["version"] = slices.Clone(opt.Version)
		typ = "ipVersion"
	}
	s.mustBe("ip", TypeString)
	return s.addTest("ip", arg, func(c *ruleCtx, v any) (any, *ErrorItem) {
		if isIP(v.(string), opt) {
			return v, nil
		}
		return v, c.err("string."+typ, Context{"value": v, "cidr": opt.CIDR, "version": opt.Version})
	})
}

func isIP(str string, opt IPOptions) bool {
	var addr netip.Addr
	if strings.Contains(str, "/") {
		if opt.CIDR == "forbidden" {
			return false
		}
		p, err := netip.ParsePrefix(str)
		if err != nil {
			return false
		}
		addr = p.Addr()
	} else {
		if opt.CIDR == "required" {
			return false
		}
		a, err := netip.ParseAddr(str)
		if err != nil {
			return false
		}
		addr = a
	}
	if len(opt.Version) == 0 {
		return true
	}
	return (addr.Is4() && slices.Contains(opt.Version, "ipv4")) ||
		(addr.Is6() && slices.Contains(opt.Version, "ipv6"))
}

// URIOptions restricts schemes and relative references.
type URIOptions struct {
	Scheme        []string
	AllowRelative bool
	RelativeOnly  bool
}

func (s *Schema) URI(opts ...URIOptions) *Schema {
	var opt URIOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	arg := map[string]any{}
	if len(opt.Scheme) > 0 {
		arg["scheme"] = slices.Clone(opt.Scheme)
	}
	if opt.AllowRelative {
		arg["allowRelative"] = true
	}
	if opt.RelativeOnly {
		arg["relativeOnly"] = true
	}
	if len(arg) == 0 {
		arg = nil
	}
	s.mustBe("uri", TypeString)
	return s.addTest("uri", arg, func(c *ruleCtx, v any) (any, *ErrorItem) {
		if isURI(v.(string), opt) {
			return v, nil
		}
		switch {
		case opt.RelativeOnly:
			return v, c.err("string.uriRelativeOnly", Context{"value": v})
		case len(opt.Scheme) > 0:
			return v, c.err("string.uriCustomScheme", Context{"value": v, "scheme": strings.Join(opt.Scheme, "|")})
		}
		return v, c.err("string.uri", Context{"value": v})
	})
}

func isURI(str string, opt URIOptions) bool {
	if strings.ContainsAny(str, " \t\n") {
		return false
	}
	u, err := url.Parse(str)
	if err != nil {
		return false
	}
	if u.Scheme == "" {
		return opt.AllowRelative || opt.RelativeOnly
	}
	if opt.RelativeOnly {
		return false
	}
	if len(opt.Scheme) > 0 && !slices.ContainsFunc(opt.Scheme, func(sc string) bool { return strings.EqualFold(sc, u.Scheme) }) {
		return false
	}
	return u.Opaque != "" || u.Host != "" || u.Path != ""
}

func (s *Schema) DataURI() *Schema {
	return s.stringCheck("dataUri", nil, func(str string) bool {
		m := dataURIRe.FindStringSubmatch(str)
		if m == nil {
			return false
		}
		if m[2] == "base64" {
			_, err := base64.StdEncoding.DecodeString(m[3])
			return err == nil
		}
		return true
	}, nil)
}

// GUID validates a UUID, optionally restricted to versions such as "uuidv4".
func (s *Schema) GUID(versions ...string) *Schema {
	want := make([]int, 0, len(versions))
	for _, v := range versions {
		n := strings.TrimPrefix(strings.ToLower(v), "uuidv")
		if len(n) != 1 || n[0] < '1' || n[0] > '5' {
			schemaPanic("guid", ErrInvalidSchema, "unknown guid version %q", v)
		}
		want = append(want, int(n[0]-'0'))
	}
	var arg any
	if len(versions) > 0 {
		arg = map[string]any{"version": slices.Clone(versions)}
	}
	return s.stringCheck("guid", arg, func(str string) bool {
		if strings.HasPrefix(strings.ToLower(str), "urn:") {
			return false
		}
		u, err := uuid.Parse(str)
		if err != nil {
			return false
		}
		return len(want) == 0 || slices.Contains(want, int(u.Version()))
	}, nil)
}

// UUID is an alias of GUID.
func (s *Schema) UUID(versions ...string) *Schema { return s.GUID(versions...) }

// HexOptions requires an even number of digits when ByteAligned.
type HexOptions struct{ ByteAligned bool }

func (s *Schema) Hex(opts ...HexOptions) *Schema {
	var opt HexOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	var arg any
	if opt.ByteAligned {
		arg = map[string]any{"byteAligned": true}
	}
	s.mustBe("hex", TypeString)
	return s.addTest("hex", arg, func(c *ruleCtx, v any) (any, *ErrorItem) {
		str := v.(string)
		if !hexRe.MatchString(str) {
			return v, c.err("string.hex", Context{"value": v})
		}
		if opt.ByteAligned && len(str)%2 != 0 {
			if _, err := hex.DecodeString("0" + str); err == nil && c.o.Convert && !c.s.flags.strict {
				return "0" + str, nil
			}
			return v, c.err("string.hexAlign", Context{"value": v})
		}
		return v, nil
	})
}

// Base64Options controls padding. Padding is required by default.
type Base64Options struct{ PaddingRequired *bool }

func (s *Schema) Base64(opts ...Base64Options) *Schema {
	padding := true
	if len(opts) > 0 && opts[0].PaddingRequired != nil {
		padding = *opts[0].PaddingRequired
	}
	return s.stringCheck("base64", map[string]any{"paddingRequired": padding}, func(str string) bool {
		if _, err := base64.StdEncoding.DecodeString(str); err == nil {
			return true
		}
		if padding {
			return false
		}
		_, err := base64.RawStdEncoding.DecodeString(str)
		return err == nil
	}, nil)
}

func (s *Schema) Hostname() *Schema {
	return s.stringCheck("hostname", nil, isHostname, nil)
}

func isHostname(str string) bool {
	if _, err := netip.ParseAddr(str); err == nil {
		return true
	}
	if str == "" || len(str) > 255 {
		return false
	}
	for _, label := range strings.Split(strings.TrimSuffix(str, "."), ".") {
		if !hostLabel.MatchString(label) {
			return false
		}
	}
	return true
}

func normForm(form string) norm.Form {
	switch form {
	case "NFD":
		return norm.NFD
	case "NFKC":
		return norm.NFKC
	case "NFKD":
		return norm.NFKD
	}
	return norm.NFC
}

// Normalize requires (or, with convert, applies) a Unicode normal form:
// NFC (default), NFD, NFKC, NFKD.
func (s *Schema) Normalize(form ...string) *Schema {
	f := "NFC"
	if len(form) > 0 {
		f = form[0]
	}
	switch f {
	case "NFC", "NFD", "NFKC", "NFKD":
	default:
		schemaPanic("normalize", ErrInvalidSchema, "normalization form must be one of NFC, NFD, NFKC, NFKD")
	}
	out := s.stringCheck("normalize", f, normForm(f).IsNormalString, func(string) Context { return Context{"form": f} })
	out.flags.normalize = f
	return out
}

func (s *Schema) Lowercase() *Schema {
	out := s.stringCheck("lowercase", nil, func(str string) bool {
		return cases.Lower(language.Und).String(str) == str
	}, nil)
	out.flags.caseMode = "lower"
	return out
}

func (s *Schema) Uppercase() *Schema {
	out := s.stringCheck("uppercase", nil, func(str string) bool {
		return cases.Upper(language.Und).String(str) == str
	}, nil)
	out.flags.caseMode = "upper"
	return out
}

// Trim requires (or, with convert, applies) whitespace trimming.
func (s *Schema) Trim(enabled ...bool) *Schema {
	on := len(enabled) == 0 || enabled[0]
	if !on {
		s.mustBe("trim", TypeString)
		out := s.clone()
		out.flags.trim = false
		out.tests = slices.DeleteFunc(slices.Clone(s.tests), func(t test) bool { return t.name == "trim" })
		return out
	}
	out := s.stringCheck("trim", nil, func(str string) bool { return strings.TrimSpace(str) == str }, nil)
	out.flags.trim = true
	return out
}

// Truncate cuts strings longer than Max when converting.
func (s *Schema) Truncate(enabled ...bool) *Schema {
	s.mustBe("truncate", TypeString)
	out := s.clone()
	out.flags.truncate = len(enabled) == 0 || enabled[0]
	return out
}

// Replace rewrites matches of pattern when converting.
func (s *Schema) Replace(pattern any, with string) *Schema {
	s.mustBe("replace", TypeString)
	var re *regexp.Regexp
	switch p := pattern.(type) {
	case *regexp.Regexp:
		re = p
	case string:
		re = regexp.MustCompile(regexp.QuoteMeta(p))
	default:
		schemaPanic("replace", ErrInvalidSchema, "pattern must be a string or *regexp.Regexp, got %T", pattern)
	}
	out := s.clone()
	out.flags.replacements = append(slices.Clip(s.flags.replacements), replacement{pattern: re, with: with})
	return out
}

// ISODate requires an ISO 8601 date string; with convert the value is
// rewritten in canonical UTC form.
func (s *Schema) ISODate() *Schema {
	out := s.stringCheck("isoDate", nil, func(str string) bool {
		_, ok := parseISODate(str)
		return ok
	}, nil)
	out.flags.iso = true
	return out
}

// CreditCard validates the Luhn checksum.
func (s *Schema) CreditCard() *Schema {
	return s.stringCheck("creditCard", nil, luhn, nil)
}

func luhn(str string) bool {
	if str == "" {
		return false
	}
	sum, double := 0, false
	for i := len(str) - 1; i >= 0; i-- {
		ch := str[i]
		if ch < '0' || ch > '9' {
			return false
		}
		d := int(ch - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
