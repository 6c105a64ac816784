package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/reoring/vschema"
	"github.com/reoring/vschema/internal/engine"
	"github.com/reoring/vschema/jsonschema"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return 2
	}
	switch args[0] {
	case "validate":
		return validateCmd(args[1:], stdin, stdout, stderr)
	case "jsonschema":
		return jsonSchemaCmd(args[1:], stdout, stderr)
	default:
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "vschema CLI\n\nUsage:\n  vschema validate -schema desc.(json|yaml) [-data input.(json|yaml)] [-all] [-locale tag] [-max-depth N] [-allow-duplicates] [-v]\n  vschema jsonschema -schema desc.(json|yaml) [-o out.json]\n\nNotes:\n  - Without -data the input is read from stdin as JSON.\n  - The validated value is written to stdout as JSON; errors are annotated on stderr.")
}

func validateCmd(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var schemaPath, dataPath, locale string
	var all, allowDup, verbose bool
	var maxDepth int
	fs.StringVar(&schemaPath, "schema", "", "schema description file (.json, .yaml)")
	fs.StringVar(&dataPath, "data", "", "input document (default stdin)")
	fs.BoolVar(&all, "all", false, "report all errors instead of the first")
	fs.StringVar(&locale, "locale", "", "message locale (BCP 47)")
	fs.IntVar(&maxDepth, "max-depth", 0, "maximum JSON nesting depth (0 = unlimited)")
	fs.BoolVar(&allowDup, "allow-duplicates", false, "accept duplicate object keys (last wins, warns)")
	fs.BoolVar(&verbose, "v", false, "enable verbose logs")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if schemaPath == "" {
		fs.Usage()
		return 2
	}
	logger := newLogger(stderr, verbose)

	s, err := loadSchema(schemaPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	logger.Debug("schema loaded", "path", schemaPath, "type", s.Type())

	input, err := loadInput(dataPath, stdin, maxDepth, allowDup, logger)
	if err != nil {
		fmt.Fprintf(stderr, "error: reading input: %v\n", err)
		return 1
	}

	opts := []vschema.Option{vschema.AbortEarly(!all)}
	if locale != "" {
		opts = append(opts, vschema.WithLocale(locale))
	}
	res := s.Validate(input, opts...)
	if res.Error != nil {
		logger.Debug("validation failed", "errors", len(res.Error.Details))
		_ = res.Error.Fprint(stderr)
		return 1
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res.Value); err != nil {
		fmt.Fprintf(stderr, "error: encoding result: %v\n", err)
		return 1
	}
	return 0
}

func jsonSchemaCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("jsonschema", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var schemaPath, out string
	fs.StringVar(&schemaPath, "schema", "", "schema description file (.json, .yaml)")
	fs.StringVar(&out, "o", "", "output filename (default stdout)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if schemaPath == "" {
		fs.Usage()
		return 2
	}
	s, err := loadSchema(schemaPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	doc, err := jsonschema.From(s)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	raw, err := doc.MarshalIndent()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	raw = append(raw, '\n')
	if out == "" {
		_, err = stdout.Write(raw)
	} else {
		if err = os.MkdirAll(filepath.Dir(out), 0o755); err == nil {
			err = os.WriteFile(out, raw, 0o644)
		}
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: writing output: %v\n", err)
		return 1
	}
	return 0
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func loadSchema(path string) (*vschema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d *vschema.Description
	if isYAML(path) {
		d, err = vschema.ParseDescriptionYAML(data)
	} else {
		d, err = vschema.ParseDescriptionJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	s, err := vschema.Build(d)
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", path, err)
	}
	return s, nil
}

func loadInput(path string, stdin io.Reader, maxDepth int, allowDup bool, logger *slog.Logger) (any, error) {
	var r io.Reader = stdin
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if isYAML(path) {
			var v any
			if err := yaml.Unmarshal(data, &v); err != nil {
				return nil, err
			}
			if v == nil {
				return nil, errors.New("empty document")
			}
			return v, nil
		}
		r = bytes.NewReader(data)
	}
	opt := engine.DecodeOptions{Numbers: engine.NumberFloat64, OnDuplicate: engine.DupError, MaxDepth: maxDepth}
	if allowDup {
		opt.OnDuplicate = engine.DupWarn
		opt.IssueSink = func(is engine.Issue) {
			logger.Warn("duplicate key, keeping the last value", "pointer", is.Path)
		}
	}
	return engine.Decode(r, opt)
}
