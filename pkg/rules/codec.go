package rules

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnmarshalJSON decodes a {"providers": {...}} document, keeping the
// provider order of the source.
func (d *Database) UnmarshalJSON(data []byte) error {
	var doc struct {
		Providers json.RawMessage `json:"providers"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if len(doc.Providers) == 0 || bytes.Equal(bytes.TrimSpace(doc.Providers), []byte("null")) {
		return ErrMissingProviders
	}

	dec := json.NewDecoder(bytes.NewReader(doc.Providers))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("providers must be an object, got %v", tok)
	}

	*d = Database{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected provider key %v", tok)
		}

		var p Provider
		if err := dec.Decode(&p); err != nil {
			return fmt.Errorf("provider %q: %w", name, err)
		}
		d.Add(name, p)
	}

	// closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalJSON encodes the database in source order.
func (d *Database) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"providers":{`)
	for i, e := range d.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Provider)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", e.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteString(`}}`)
	return buf.Bytes(), nil
}

// UnmarshalYAML decodes the YAML form of the database, keeping the
// provider order of the source.
func (d *Database) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: rule database must be a mapping", value.Line)
	}

	var providers *yaml.Node
	for i := 0; i+1 < len(value.Content); i += 2 {
		if value.Content[i].Value == "providers" {
			providers = value.Content[i+1]
			break
		}
	}
	if providers == nil || providers.ShortTag() == "!!null" {
		return ErrMissingProviders
	}
	if providers.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: providers must be a mapping", providers.Line)
	}

	*d = Database{}
	for i := 0; i+1 < len(providers.Content); i += 2 {
		name := providers.Content[i].Value
		var p Provider
		if err := providers.Content[i+1].Decode(&p); err != nil {
			return fmt.Errorf("provider %q: %w", name, err)
		}
		d.Add(name, p)
	}
	return nil
}

// MarshalYAML encodes the database in source order.
func (d *Database) MarshalYAML() (any, error) {
	providers := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range d.Entries() {
		var val yaml.Node
		if err := val.Encode(e.Provider); err != nil {
			return nil, fmt.Errorf("provider %q: %w", e.Name, err)
		}
		providers.Content = append(providers.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Name},
			&val,
		)
	}
	return &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: "providers"},
			providers,
		},
	}, nil
}
