package grammarfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// rawGrammar mirrors the serialized grammar document. Field names follow the
// tree-sitter grammar.json schema; YAML documents use the same keys.
type rawGrammar struct {
	Schema      string                `json:"$schema" yaml:"$schema"`
	Name        string                `json:"name" yaml:"name"`
	Inherits    string                `json:"inherits" yaml:"inherits"`
	Rules       *orderedRules         `json:"rules" yaml:"rules"`
	Extras      []*rawRule            `json:"extras" yaml:"extras"`
	Externals   []*rawRule            `json:"externals" yaml:"externals"`
	Inline      []string              `json:"inline" yaml:"inline"`
	Precedences [][]*rawRule          `json:"precedences" yaml:"precedences"`
	Conflicts   [][]string            `json:"conflicts" yaml:"conflicts"`
	Reserved    map[string][]*rawRule `json:"reserved" yaml:"reserved"`
	Word        string                `json:"word" yaml:"word"`
	Supertypes  []string              `json:"supertypes" yaml:"supertypes"`
}

type rawRule struct {
	Type        string     `json:"type" yaml:"type"`
	Value       *rawValue  `json:"value" yaml:"value"`
	Name        *string    `json:"name" yaml:"name"`
	Content     *rawRule   `json:"content" yaml:"content"`
	Members     []*rawRule `json:"members" yaml:"members"`
	Named       *bool      `json:"named" yaml:"named"`
	Flags       string     `json:"flags" yaml:"flags"`
	ContextName string     `json:"context_name" yaml:"context_name"`
}

// rawValue holds either a string or an integer payload.
type rawValue struct {
	text  string
	num   int
	isInt bool
}

func (v *rawValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &v.text)
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("value must be a string or an integer, got %s", data)
	}
	v.num, v.isInt = n, true
	return nil
}

func (v *rawValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: value must be a scalar", node.Line)
	}
	if node.ShortTag() == "!!int" {
		n, err := strconv.Atoi(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		v.num, v.isInt = n, true
		return nil
	}
	v.text = node.Value
	return nil
}

type namedRule struct {
	name string
	rule *rawRule
}

// orderedRules keeps the rules object in document order; the first entry is
// the grammar's entry point.
type orderedRules struct {
	entries []namedRule
}

func (o *orderedRules) add(name string, rule *rawRule) error {
	for _, e := range o.entries {
		if e.name == name {
			return fmt.Errorf("duplicate rule %q", name)
		}
	}
	o.entries = append(o.entries, namedRule{name: name, rule: rule})
	return nil
}

func (o *orderedRules) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("rules must be an object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("rule name must be a string")
		}
		rule := &rawRule{}
		if err := dec.Decode(rule); err != nil {
			return fmt.Errorf("rule %q: %w", name, err)
		}
		if err := o.add(name, rule); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}

func (o *orderedRules) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: rules must be a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		rule := &rawRule{}
		if err := value.Decode(rule); err != nil {
			return fmt.Errorf("rule %q: %w", key.Value, err)
		}
		if err := o.add(key.Value, rule); err != nil {
			return fmt.Errorf("line %d: %w", key.Line, err)
		}
	}
	return nil
}
