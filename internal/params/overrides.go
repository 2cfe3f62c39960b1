// File: internal/params/overrides.go
// Brief: Loads non-interactive parameter answers.

package params

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"sigs.k8s.io/yaml"
)

// LoadOverrides merges values from a YAML/JSON parameter file with KEY=VALUE
// arguments; arguments win. Numbers keep their literal form.
func LoadOverrides(path string, args []string) (map[string]string, error) {
	out := make(map[string]string)
	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read parameter file: %w", err)
		}
		var raw map[string]any
		useNumber := func(d *json.Decoder) *json.Decoder {
			d.UseNumber()
			return d
		}
		if err := yaml.Unmarshal(data, &raw, useNumber); err != nil {
			return nil, fmt.Errorf("parse parameter file %s: %w", path, err)
		}
		for k, v := range raw {
			switch val := v.(type) {
			case nil:
				out[k] = ""
			case string:
				out[k] = val
			case []any:
				parts := make([]string, 0, len(val))
				for _, item := range val {
					parts = append(parts, fmt.Sprint(item))
				}
				out[k] = strings.Join(parts, ",")
			default:
				out[k] = fmt.Sprint(val)
			}
		}
	}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q (expected KEY=VALUE)", arg)
		}
		out[key] = value
	}
	return out, nil
}
