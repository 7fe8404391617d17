package params

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"slurmdbdops/internal/dbdconf"
)

// LoadFile reads operator parameter overrides from a YAML file of
// key: value pairs. Keys must belong to the recognized configuration
// vocabulary; values are kept as strings and validated again when they
// are applied to the configuration file.
func LoadFile(path string) (map[dbdconf.Token]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read parameters file: %w", err)
	}

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse parameters file %s: %w", path, err)
	}

	out := make(map[dbdconf.Token]string, len(raw))
	for name, value := range raw {
		tok, err := dbdconf.Lookup(name)
		if err != nil {
			return nil, fmt.Errorf("parameters file %s: %w", path, err)
		}
		out[tok] = value
	}
	return out, nil
}
