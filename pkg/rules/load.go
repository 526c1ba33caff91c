package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FromFile loads and validates a rule database from a JSON or YAML file.
// Files without a .json, .yaml or .yml extension are sniffed.
func FromFile(path string) (*Database, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- rule database path is user supplied
	if err != nil {
		return nil, fmt.Errorf("failed to read rule database: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FromJSON(data)
	case ".yaml", ".yml":
		return FromYAML(data)
	default:
		return Parse(data)
	}
}

// FromJSON parses and validates a JSON rule database.
func FromJSON(data []byte) (*Database, error) {
	db := &Database{}
	if err := json.Unmarshal(data, db); err != nil {
		return nil, fmt.Errorf("failed to parse JSON rule database: %w", err)
	}
	if err := db.Validate(); err != nil {
		return nil, err
	}
	return db, nil
}

// FromYAML parses and validates a YAML rule database.
func FromYAML(data []byte) (*Database, error) {
	db := &Database{}
	if err := yaml.Unmarshal(data, db); err != nil {
		return nil, fmt.Errorf("failed to parse YAML rule database: %w", err)
	}
	if err := db.Validate(); err != nil {
		return nil, err
	}
	return db, nil
}

// Parse detects whether data is JSON or YAML and parses it accordingly.
func Parse(data []byte) (*Database, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return FromJSON(data)
	}
	return FromYAML(data)
}
