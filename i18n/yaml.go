package i18n

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// LoadYAML reads a nested message tree and flattens it into a Catalog:
//
//	number:
//	  min: "must be at least {{limit}}"
//
// becomes {"number.min": "must be at least {{limit}}"}.
func LoadYAML(r io.Reader) (Catalog, error) {
	var tree map[string]any
	if err := yaml.NewDecoder(r).Decode(&tree); err != nil {
		if err == io.EOF {
			return Catalog{}, nil
		}
		return nil, fmt.Errorf("i18n: decode yaml: %w", err)
	}
	out := Catalog{}
	if err := flatten(out, "", tree); err != nil {
		return nil, err
	}
	return out, nil
}

func flatten(out Catalog, prefix string, node map[string]any) error {
	keys := make([]string, 0, len(node))
	for k := range node {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		full := k
		if prefix != "" {
			full = prefix + "." + k
		}
		switch v := node[k].(type) {
		case string:
			out[full] = v
		case map[string]any:
			if err := flatten(out, full, v); err != nil {
				return err
			}
		case nil:
		default:
			return fmt.Errorf("i18n: %s: template must be a string, got %T", full, v)
		}
	}
	return nil
}
