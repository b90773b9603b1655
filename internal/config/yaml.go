package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// toStrictJSON re-expresses the config file as JSON bytes so Parse can run
// both formats through the one strict decoder (DisallowUnknownFields).
// Files without a .yaml/.yml extension are taken to be JSON already.
func toStrictJSON(path string, data []byte) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
	default:
		return data, nil
	}

	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}
	out, err := json.Marshal(stringifyKeys(tree))
	if err != nil {
		return nil, fmt.Errorf("yaml to json: %w", err)
	}
	return out, nil
}

// stringifyKeys rewrites the map[any]any nodes a YAML decode can produce
// into map[string]any so the tree survives json.Marshal.
func stringifyKeys(node any) any {
	switch n := node.(type) {
	case []any:
		for i, v := range n {
			n[i] = stringifyKeys(v)
		}
		return n
	case map[string]any:
		for k, v := range n {
			n[k] = stringifyKeys(v)
		}
		return n
	case map[any]any:
		out := make(map[string]any, len(n))
		for k, v := range n {
			out[fmt.Sprint(k)] = stringifyKeys(v)
		}
		return out
	}
	return node
}
